package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/nhle/forum-inbound/internal/model"
)

// fixture is an in-memory implementation of every collaborator the
// receiver drives.
type fixture struct {
	categories map[string]*model.Category
	logs       map[string]*model.EmailLog
	usersEmail map[string]*model.User
	usersName  map[string]*model.User
	usersID    map[int64]*model.User
	topics     map[int64]*model.Topic

	createdTopics  []NewTopic
	createdReplies []NewReply
	uploads        []string
	uploadErr      error
	nextPostID     int64
}

func newFixture() *fixture {
	return &fixture{
		categories: make(map[string]*model.Category),
		logs:       make(map[string]*model.EmailLog),
		usersEmail: make(map[string]*model.User),
		usersName:  make(map[string]*model.User),
		usersID:    make(map[int64]*model.User),
		topics:     make(map[int64]*model.Topic),
	}
}

func (f *fixture) addUser(u *model.User) {
	f.usersEmail[strings.ToLower(u.Email)] = u
	f.usersName[u.Username] = u
	f.usersID[u.ID] = u
}

func (f *fixture) CategoryByInboundAddress(_ context.Context, address string) (*model.Category, error) {
	return f.categories[address], nil
}

func (f *fixture) EmailLogByReplyKey(_ context.Context, key string) (*model.EmailLog, error) {
	return f.logs[key], nil
}

func (f *fixture) UserByEmail(_ context.Context, address string) (*model.User, error) {
	return f.usersEmail[strings.ToLower(address)], nil
}

func (f *fixture) UserByUsername(_ context.Context, username string) (*model.User, error) {
	return f.usersName[username], nil
}

func (f *fixture) UserByID(_ context.Context, id int64) (*model.User, error) {
	return f.usersID[id], nil
}

func (f *fixture) TopicByID(_ context.Context, id int64) (*model.Topic, error) {
	return f.topics[id], nil
}

func (f *fixture) CreateTopic(_ context.Context, t NewTopic) (*model.Post, error) {
	f.createdTopics = append(f.createdTopics, t)
	f.nextPostID++
	return &model.Post{
		ID:         f.nextPostID,
		TopicID:    100 + f.nextPostID,
		UserID:     t.Author.ID,
		PostNumber: 1,
		Raw:        t.Raw,
		ViaEmail:   true,
	}, nil
}

func (f *fixture) CreateReply(_ context.Context, r NewReply) (*model.Post, error) {
	f.createdReplies = append(f.createdReplies, r)
	f.nextPostID++
	return &model.Post{
		ID:                f.nextPostID,
		TopicID:           r.TopicID,
		UserID:            r.Author.ID,
		PostNumber:        2,
		ReplyToPostNumber: r.ReplyToPostNumber,
		Raw:               r.Raw,
		ViaEmail:          true,
	}, nil
}

func (f *fixture) Store(_ context.Context, _ int64, filename, contentType, _ string) (*model.Upload, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads = append(f.uploads, filename)
	return &model.Upload{
		OriginalFilename: filename,
		URL:              "/uploads/" + filename,
		Filesize:         12,
		ContentType:      contentType,
	}, nil
}

func (f *fixture) deps() Collaborators {
	return Collaborators{
		Categories: f,
		ReplyLogs:  f,
		Users:      f,
		Topics:     f,
		Posts:      f,
		Uploads:    f,
	}
}

func testConfig() model.EmailConfig {
	return model.EmailConfig{
		SiteName:              "Example Forum",
		ReplyByEmailAddress:   "replies+%{reply_key}@forum.example.com",
		EmailIn:               true,
		EmailInMinTrust:       model.TrustLevelBasic,
		PreviousRepliesMarker: "Previous Replies",
		SystemUsername:        "system",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// rawEmail joins header lines and a body into one RFC 5322 message.
func rawEmail(headers []string, body string) []byte {
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body)
}

func TestProcessReply(t *testing.T) {
	f := newFixture()
	f.addUser(&model.User{ID: 4, Username: "alice", Email: "alice@example.com", TrustLevel: 1, Active: true})
	f.logs["abc123"] = &model.EmailLog{ID: 1, ReplyKey: "abc123", UserID: 4, TopicID: 9, PostNumber: 3}
	f.topics[9] = &model.Topic{ID: 9, CategoryID: 1, Title: "Broken build"}

	r := New(testConfig(), f.deps(), testLogger())

	raw := rawEmail([]string{
		"From: Alice <alice@example.com>",
		"To: replies+abc123@forum.example.com",
		"Subject: Re: Broken build",
	}, "Thanks, that fixed it!\n\nOn Mon, Bob via Example Forum wrote:\n> try clearing the cache\n")

	outcome, err := r.Process(context.Background(), raw)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if outcome.Kind != OutcomeReply {
		t.Fatalf("Process() kind = %d, want OutcomeReply", outcome.Kind)
	}
	if outcome.Body != "Thanks, that fixed it!" {
		t.Errorf("Process() body = %q, want %q", outcome.Body, "Thanks, that fixed it!")
	}
	if len(f.createdReplies) != 1 {
		t.Fatalf("created %d replies, want 1", len(f.createdReplies))
	}
	reply := f.createdReplies[0]
	if reply.TopicID != 9 || reply.ReplyToPostNumber != 3 {
		t.Errorf("reply target = topic %d post %d, want topic 9 post 3", reply.TopicID, reply.ReplyToPostNumber)
	}
	if reply.Author.ID != 4 {
		t.Errorf("reply author id = %d, want 4 (from the email log)", reply.Author.ID)
	}
}

func TestProcessNewTopic(t *testing.T) {
	f := newFixture()
	f.addUser(&model.User{ID: 4, Username: "alice", Email: "alice@example.com", TrustLevel: 2, Active: true})
	f.categories["support@forum.example.com"] = &model.Category{ID: 7, Name: "Support", EmailIn: "support@forum.example.com"}

	r := New(testConfig(), f.deps(), testLogger())

	raw := rawEmail([]string{
		"From: alice@example.com",
		"To: support@forum.example.com",
		"Subject: Printer on fire",
	}, "The office printer caught fire again.\n")

	outcome, err := r.Process(context.Background(), raw)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if outcome.Kind != OutcomeNewTopic {
		t.Fatalf("Process() kind = %d, want OutcomeNewTopic", outcome.Kind)
	}
	if len(f.createdTopics) != 1 {
		t.Fatalf("created %d topics, want 1", len(f.createdTopics))
	}
	topic := f.createdTopics[0]
	if topic.Title != "Printer on fire" {
		t.Errorf("topic title = %q, want subject line", topic.Title)
	}
	if topic.CategoryID != 7 {
		t.Errorf("topic category = %d, want 7", topic.CategoryID)
	}
}

func TestProcessRejections(t *testing.T) {
	baseFixture := func() *fixture {
		f := newFixture()
		f.addUser(&model.User{ID: 4, Username: "alice", Email: "alice@example.com", TrustLevel: 1, Active: true})
		f.categories["support@forum.example.com"] = &model.Category{ID: 7, Name: "Support", EmailIn: "support@forum.example.com"}
		f.logs["abc123"] = &model.EmailLog{ID: 1, ReplyKey: "abc123", UserID: 4, TopicID: 9, PostNumber: 1}
		f.topics[9] = &model.Topic{ID: 9, Title: "Existing"}
		return f
	}

	tests := []struct {
		name    string
		prepare func(f *fixture, cfg *model.EmailConfig)
		headers []string
		body    string
		wantErr error
	}{
		{
			name:    "blank input",
			headers: nil,
			body:    "",
			wantErr: ErrEmptyEmail,
		},
		{
			name: "body that is all quoted history",
			headers: []string{
				"From: alice@example.com",
				"To: support@forum.example.com",
				"Subject: Re: thing",
			},
			body:    "On Mon, Bob wrote:\n> everything quoted\n",
			wantErr: ErrEmptyEmail,
		},
		{
			name: "unroutable recipient",
			headers: []string{
				"From: alice@example.com",
				"To: random@forum.example.com",
				"Subject: hi",
			},
			body:    "Hello there.",
			wantErr: ErrBadDestinationAddress,
		},
		{
			name: "category email disabled",
			prepare: func(_ *fixture, cfg *model.EmailConfig) {
				cfg.EmailIn = false
			},
			headers: []string{
				"From: alice@example.com",
				"To: support@forum.example.com",
				"Subject: hi",
			},
			body:    "Hello there.",
			wantErr: ErrBadDestinationAddress,
		},
		{
			name: "auto-generated message",
			headers: []string{
				"From: alice@example.com",
				"To: support@forum.example.com",
				"Subject: Out of office",
				"Auto-Submitted: auto-replied",
			},
			body:    "I am away until Monday.",
			wantErr: ErrTopicNotFound,
		},
		{
			name: "precedence bulk message",
			headers: []string{
				"From: alice@example.com",
				"To: replies+abc123@forum.example.com",
				"Subject: newsletter",
				"Precedence: bulk",
			},
			body:    "This week in the forum.",
			wantErr: ErrTopicNotFound,
		},
		{
			name: "unknown sender in a closed category",
			headers: []string{
				"From: stranger@example.com",
				"To: support@forum.example.com",
				"Subject: hi",
			},
			body:    "Let me in.",
			wantErr: ErrUserNotFound,
		},
		{
			name: "sender below minimum trust level",
			prepare: func(f *fixture, _ *model.EmailConfig) {
				f.usersEmail["alice@example.com"].TrustLevel = model.TrustLevelNew
			},
			headers: []string{
				"From: alice@example.com",
				"To: support@forum.example.com",
				"Subject: hi",
			},
			body:    "A new topic.",
			wantErr: ErrInsufficientTrustLevel,
		},
		{
			name: "reply author no longer exists",
			prepare: func(f *fixture, _ *model.EmailConfig) {
				delete(f.usersID, 4)
			},
			headers: []string{
				"From: alice@example.com",
				"To: replies+abc123@forum.example.com",
				"Subject: Re: thing",
			},
			body:    "Still here.",
			wantErr: ErrUserNotFound,
		},
		{
			name: "reply target topic is gone",
			prepare: func(f *fixture, _ *model.EmailConfig) {
				delete(f.topics, 9)
			},
			headers: []string{
				"From: alice@example.com",
				"To: replies+abc123@forum.example.com",
				"Subject: Re: thing",
			},
			body:    "Still here.",
			wantErr: ErrTopicNotFound,
		},
		{
			name: "reply target topic is closed",
			prepare: func(f *fixture, _ *model.EmailConfig) {
				f.topics[9].Closed = true
			},
			headers: []string{
				"From: alice@example.com",
				"To: replies+abc123@forum.example.com",
				"Subject: Re: thing",
			},
			body:    "One more thing.",
			wantErr: ErrTopicClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := baseFixture()
			cfg := testConfig()
			if tt.prepare != nil {
				tt.prepare(f, &cfg)
			}
			r := New(cfg, f.deps(), testLogger())

			var raw []byte
			if tt.headers != nil {
				raw = rawEmail(tt.headers, tt.body)
			}

			_, err := r.Process(context.Background(), raw)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Process() error = %v, want %v", err, tt.wantErr)
			}
			if len(f.createdTopics) != 0 || len(f.createdReplies) != 0 {
				t.Errorf("rejected message still created content: %d topics, %d replies",
					len(f.createdTopics), len(f.createdReplies))
			}
		})
	}
}

func TestProcessStrangerInOpenCategory(t *testing.T) {
	f := newFixture()
	f.addUser(&model.User{ID: 1, Username: "system", Email: "system@forum.example.com", TrustLevel: 4, Active: true})
	f.categories["ideas@forum.example.com"] = &model.Category{
		ID: 2, Name: "Ideas", EmailIn: "ideas@forum.example.com", EmailInAllowStrangers: true,
	}

	r := New(testConfig(), f.deps(), testLogger())

	raw := rawEmail([]string{
		"From: visitor@elsewhere.example.com",
		"To: ideas@forum.example.com",
		"Subject: A suggestion",
	}, "Dark mode, please.")

	outcome, err := r.Process(context.Background(), raw)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(f.createdTopics) != 1 {
		t.Fatalf("created %d topics, want 1", len(f.createdTopics))
	}
	topic := f.createdTopics[0]
	if topic.Author.Username != "system" {
		t.Errorf("author = %q, want the system user", topic.Author.Username)
	}
	want := "[quote=\"visitor@elsewhere.example.com\"]\nDark mode, please.\n[/quote]"
	if outcome.Body != want {
		t.Errorf("body = %q, want quoted wrap %q", outcome.Body, want)
	}
}

func TestProcessStrangerWithoutSystemUser(t *testing.T) {
	f := newFixture()
	f.categories["ideas@forum.example.com"] = &model.Category{
		ID: 2, Name: "Ideas", EmailIn: "ideas@forum.example.com", EmailInAllowStrangers: true,
	}

	r := New(testConfig(), f.deps(), testLogger())

	raw := rawEmail([]string{
		"From: visitor@elsewhere.example.com",
		"To: ideas@forum.example.com",
		"Subject: A suggestion",
	}, "Dark mode, please.")

	_, err := r.Process(context.Background(), raw)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Process() error = %v, want ErrUserNotFound", err)
	}
}

func TestProcessAttachments(t *testing.T) {
	multipart := strings.Join([]string{
		"From: alice@example.com",
		"To: support@forum.example.com",
		"Subject: Crash report",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="XBOUND"`,
		"",
		"--XBOUND",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		"Log attached.",
		"--XBOUND",
		"Content-Type: text/x-log",
		`Content-Disposition: attachment; filename="crash.log"`,
		"",
		"panic: boom",
		"--XBOUND--",
		"",
	}, "\r\n")

	t.Run("references are appended to the body", func(t *testing.T) {
		f := newFixture()
		f.addUser(&model.User{ID: 4, Username: "alice", Email: "alice@example.com", TrustLevel: 2, Active: true})
		f.categories["support@forum.example.com"] = &model.Category{ID: 7, Name: "Support", EmailIn: "support@forum.example.com"}

		r := New(testConfig(), f.deps(), testLogger())
		outcome, err := r.Process(context.Background(), []byte(multipart))
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if len(f.uploads) != 1 || f.uploads[0] != "crash.log" {
			t.Fatalf("uploads = %v, want [crash.log]", f.uploads)
		}
		if !strings.Contains(outcome.Body, "<a class='attachment' href='/uploads/crash.log'>crash.log</a> (12 B)") {
			t.Errorf("body %q is missing the attachment reference", outcome.Body)
		}
	})

	t.Run("a failed upload is skipped without aborting", func(t *testing.T) {
		f := newFixture()
		f.addUser(&model.User{ID: 4, Username: "alice", Email: "alice@example.com", TrustLevel: 2, Active: true})
		f.categories["support@forum.example.com"] = &model.Category{ID: 7, Name: "Support", EmailIn: "support@forum.example.com"}
		f.uploadErr = fmt.Errorf("disk full")

		r := New(testConfig(), f.deps(), testLogger())
		outcome, err := r.Process(context.Background(), []byte(multipart))
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if outcome.Body != "Log attached." {
			t.Errorf("body = %q, want the text without references", outcome.Body)
		}
		if len(f.createdTopics) != 1 {
			t.Errorf("created %d topics, want 1", len(f.createdTopics))
		}
	})
}
