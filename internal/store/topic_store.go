package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/forum-inbound/internal/model"
	"github.com/nhle/forum-inbound/internal/receiver"
)

// TopicByID returns the topic with the given id, or nil.
func (s *SQLiteStore) TopicByID(ctx context.Context, id int64) (*model.Topic, error) {
	var t model.Topic
	err := s.db.GetContext(ctx, &t, "SELECT * FROM topics WHERE id = ?", id)
	if err != nil {
		if err = absorbNoRows(err); err != nil {
			return nil, fmt.Errorf("querying topic by id: %w", err)
		}
		return nil, nil
	}
	return &t, nil
}

// SetTopicClosed opens or closes a topic for new replies.
func (s *SQLiteStore) SetTopicClosed(ctx context.Context, id int64, closed bool) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE topics SET closed = ? WHERE id = ?", closed, id); err != nil {
		return fmt.Errorf("updating topic %d: %w", id, err)
	}
	return nil
}

// CreateTopic creates a topic and its first post in one transaction.
// Content rejections are reported as *receiver.InvalidPostError.
func (s *SQLiteStore) CreateTopic(ctx context.Context, t receiver.NewTopic) (*model.Post, error) {
	var reasons []string
	if strings.TrimSpace(t.Title) == "" {
		reasons = append(reasons, "title can't be blank")
	}
	reasons = append(reasons, validateRaw(t.Raw)...)
	if len(reasons) > 0 {
		return nil, &receiver.InvalidPostError{Reasons: reasons}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO topics (category_id, title) VALUES (?, ?)",
		t.CategoryID, t.Title)
	if err != nil {
		return nil, fmt.Errorf("inserting topic: %w", err)
	}
	topicID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading topic id: %w", err)
	}

	post, err := insertPost(ctx, tx, &model.Post{
		TopicID:  topicID,
		UserID:   t.Author.ID,
		Raw:      t.Raw,
		ViaEmail: true,
		RawEmail: string(t.RawEmail),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing topic: %w", err)
	}
	return post, nil
}

// CreateReply appends a post to an existing topic. Content rejections
// are reported as *receiver.InvalidPostError.
func (s *SQLiteStore) CreateReply(ctx context.Context, r receiver.NewReply) (*model.Post, error) {
	if reasons := validateRaw(r.Raw); len(reasons) > 0 {
		return nil, &receiver.InvalidPostError{Reasons: reasons}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	post, err := insertPost(ctx, tx, &model.Post{
		TopicID:           r.TopicID,
		UserID:            r.Author.ID,
		ReplyToPostNumber: r.ReplyToPostNumber,
		Raw:               r.Raw,
		ViaEmail:          true,
		RawEmail:          string(r.RawEmail),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reply: %w", err)
	}
	return post, nil
}

// insertPost assigns the next post number within the topic and inserts
// the post.
func insertPost(ctx context.Context, tx *sqlx.Tx, p *model.Post) (*model.Post, error) {
	if err := tx.GetContext(ctx, &p.PostNumber,
		"SELECT COALESCE(MAX(post_number), 0) + 1 FROM posts WHERE topic_id = ?",
		p.TopicID); err != nil {
		return nil, fmt.Errorf("assigning post number: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO posts (topic_id, user_id, post_number, reply_to_post_number, raw, via_email, raw_email)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.TopicID, p.UserID, p.PostNumber, p.ReplyToPostNumber, p.Raw, p.ViaEmail, p.RawEmail)
	if err != nil {
		return nil, fmt.Errorf("inserting post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading post id: %w", err)
	}
	p.ID = id

	if err := tx.GetContext(ctx, p, "SELECT * FROM posts WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("reading created post: %w", err)
	}
	return p, nil
}

// validateRaw applies the content checks shared by topics and replies.
func validateRaw(raw string) []string {
	var reasons []string
	if strings.TrimSpace(raw) == "" {
		reasons = append(reasons, "body can't be blank")
	}
	return reasons
}
