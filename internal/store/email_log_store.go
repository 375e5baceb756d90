package store

import (
	"context"
	"fmt"

	"github.com/nhle/forum-inbound/internal/model"
)

// EmailLogByReplyKey returns the outbound notification log entry the
// given reply key was minted for, or nil when the key is unknown.
func (s *SQLiteStore) EmailLogByReplyKey(ctx context.Context, key string) (*model.EmailLog, error) {
	var l model.EmailLog
	err := s.db.GetContext(ctx, &l,
		"SELECT * FROM email_logs WHERE reply_key = ?", key)
	if err != nil {
		if err = absorbNoRows(err); err != nil {
			return nil, fmt.Errorf("querying email log by reply key: %w", err)
		}
		return nil, nil
	}
	return &l, nil
}

// InsertEmailLog records an outbound notification so a later inbound
// reply can be matched back to it.
func (s *SQLiteStore) InsertEmailLog(ctx context.Context, l *model.EmailLog) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO email_logs (reply_key, user_id, topic_id, post_number, to_address)
		 VALUES (?, ?, ?, ?, ?)`,
		l.ReplyKey, l.UserID, l.TopicID, l.PostNumber, l.To)
	if err != nil {
		return 0, fmt.Errorf("inserting email log %s: %w", l.ReplyKey, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading email log id: %w", err)
	}
	l.ID = id
	return id, nil
}
