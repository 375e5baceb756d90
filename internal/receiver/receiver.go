// Package receiver classifies one raw inbound email as a forum action
// — create a topic, create a reply, or a typed rejection — and
// extracts the human-authored reply text from its body. Processing is
// a single synchronous pipeline; each message is handled in complete
// isolation and no state survives the call.
package receiver

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/nhle/forum-inbound/internal/mail"
	"github.com/nhle/forum-inbound/internal/model"
)

// UserLookup resolves forum users for authorship decisions.
type UserLookup interface {
	UserByEmail(ctx context.Context, address string) (*model.User, error)
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	UserByID(ctx context.Context, id int64) (*model.User, error)
}

// TopicLookup resolves reply target topics.
type TopicLookup interface {
	TopicByID(ctx context.Context, id int64) (*model.Topic, error)
}

// NewTopic is a topic submission handed to the post-creation
// collaborator.
type NewTopic struct {
	CategoryID int64
	Title      string
	Author     *model.User
	Raw        string
	RawEmail   []byte
}

// NewReply is a reply submission handed to the post-creation
// collaborator.
type NewReply struct {
	TopicID           int64
	ReplyToPostNumber int
	Author            *model.User
	Raw               string
	RawEmail          []byte
}

// PostCreator creates forum content from accepted submissions. A
// rejection for content reasons is reported as *InvalidPostError.
type PostCreator interface {
	CreateTopic(ctx context.Context, t NewTopic) (*model.Post, error)
	CreateReply(ctx context.Context, r NewReply) (*model.Post, error)
}

// Uploader persists one attachment from a spooled file and returns a
// reference for embedding in post content.
type Uploader interface {
	Store(ctx context.Context, userID int64, filename, contentType, srcPath string) (*model.Upload, error)
}

// Collaborators bundles the external services the receiver drives.
type Collaborators struct {
	Categories CategoryLookup
	ReplyLogs  ReplyLogLookup
	Users      UserLookup
	Topics     TopicLookup
	Posts      PostCreator
	Uploads    Uploader
}

// OutcomeKind tags the result of processing one message.
type OutcomeKind int

const (
	// OutcomeNewTopic means a topic was created in a category.
	OutcomeNewTopic OutcomeKind = iota + 1

	// OutcomeReply means a reply was added to an existing topic.
	OutcomeReply
)

// Outcome is the sole externally observable result of processing. It
// carries no side effects; post creation already happened through the
// collaborators.
type Outcome struct {
	Kind OutcomeKind
	Post *model.Post

	// Body is the final extracted reply text as submitted, including
	// any appended attachment references.
	Body string
}

// Receiver runs the classification and extraction pipeline. Construct
// one per configuration; it is stateless across messages.
type Receiver struct {
	cfg    model.EmailConfig
	deps   Collaborators
	logger *slog.Logger
}

// New builds a Receiver from an explicit configuration and its
// collaborators.
func New(cfg model.EmailConfig, deps Collaborators, logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{cfg: cfg, deps: deps, logger: logger}
}

// Process runs one raw message through the pipeline and returns the
// outcome or the typed failure that aborted it. The first failure
// aborts the whole run; only attachment uploads degrade gracefully.
func (r *Receiver) Process(ctx context.Context, raw []byte) (*Outcome, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyEmail
	}

	msg, err := mail.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmailUnparsable, err)
	}

	body, err := r.extractBody(msg)
	if err != nil {
		return nil, err
	}

	route, err := resolveRoute(ctx, msg.Recipients, r.deps.Categories, r.deps.ReplyLogs, r.cfg.ReplyByEmailAddress)
	if err != nil {
		return nil, err
	}
	if route.Kind == RouteInvalid {
		return nil, ErrBadDestinationAddress
	}
	if route.Kind == RouteCategory && !r.cfg.EmailIn {
		return nil, fmt.Errorf("%w: category email is disabled", ErrBadDestinationAddress)
	}

	// Auto-generated notifications must never spawn topics or replies.
	if isAutoGenerated(msg.HeaderBlob) {
		return nil, fmt.Errorf("%w: message is auto-generated", ErrTopicNotFound)
	}

	switch route.Kind {
	case RouteCategory:
		return r.createTopic(ctx, msg, route.Category, body)
	default:
		return r.createReply(ctx, msg, route.Log, body)
	}
}

// extractBody runs selection, structural trimming, and the quoted
// marker pass, in that order. Emptiness after any stage is terminal.
func (r *Receiver) extractBody(msg *mail.Message) (string, error) {
	body, err := selectBody(msg)
	if err != nil {
		return "", err
	}

	body = trimQuotedHistory(body, r.cfg.SiteName, r.cfg.PreviousRepliesMarker)
	if strings.TrimSpace(body) == "" {
		return "", ErrEmptyEmail
	}

	body = stripQuotedMarkers(body)
	if strings.TrimSpace(body) == "" {
		return "", ErrEmptyEmail
	}

	return body, nil
}

func (r *Receiver) createTopic(ctx context.Context, msg *mail.Message, category *model.Category, body string) (*Outcome, error) {
	author, err := r.deps.Users.UserByEmail(ctx, msg.From)
	if err != nil {
		return nil, fmt.Errorf("user lookup for %s: %w", msg.From, err)
	}

	if author == nil {
		if !category.EmailInAllowStrangers {
			return nil, ErrUserNotFound
		}
		body, author, err = r.anonymizedAuthorFallback(ctx, msg.From, body)
		if err != nil {
			return nil, err
		}
	}

	if !author.HasTrustLevel(r.cfg.EmailInMinTrust) && !category.EmailInAllowStrangers {
		return nil, ErrInsufficientTrustLevel
	}

	body = r.appendAttachments(ctx, author, msg.Attachments, body)

	post, err := r.deps.Posts.CreateTopic(ctx, NewTopic{
		CategoryID: category.ID,
		Title:      msg.Subject,
		Author:     author,
		Raw:        body,
		RawEmail:   msg.Raw,
	})
	if err != nil {
		return nil, err
	}

	return &Outcome{Kind: OutcomeNewTopic, Post: post, Body: body}, nil
}

// anonymizedAuthorFallback wraps the body in a quote attributed to the
// sender address and substitutes the configured system identity as
// author. This is a deliberate workaround for stranger-friendly
// categories, not account provisioning.
func (r *Receiver) anonymizedAuthorFallback(ctx context.Context, from, body string) (string, *model.User, error) {
	system, err := r.deps.Users.UserByUsername(ctx, r.cfg.SystemUsername)
	if err != nil {
		return "", nil, fmt.Errorf("system user lookup: %w", err)
	}
	if system == nil {
		return "", nil, fmt.Errorf("%w: system user %q is missing", ErrUserNotFound, r.cfg.SystemUsername)
	}

	quoted := fmt.Sprintf("[quote=\"%s\"]\n%s\n[/quote]", from, body)
	return quoted, system, nil
}

func (r *Receiver) createReply(ctx context.Context, msg *mail.Message, log *model.EmailLog, body string) (*Outcome, error) {
	if log == nil {
		return nil, ErrEmailLogNotFound
	}

	author, err := r.deps.Users.UserByID(ctx, log.UserID)
	if err != nil {
		return nil, fmt.Errorf("user lookup for id %d: %w", log.UserID, err)
	}
	if author == nil {
		return nil, ErrUserNotFound
	}

	topic, err := r.deps.Topics.TopicByID(ctx, log.TopicID)
	if err != nil {
		return nil, fmt.Errorf("topic lookup for id %d: %w", log.TopicID, err)
	}
	if topic == nil {
		return nil, ErrTopicNotFound
	}
	if topic.Closed {
		return nil, ErrTopicClosed
	}

	body = r.appendAttachments(ctx, author, msg.Attachments, body)

	post, err := r.deps.Posts.CreateReply(ctx, NewReply{
		TopicID:           topic.ID,
		ReplyToPostNumber: log.PostNumber,
		Author:            author,
		Raw:               body,
		RawEmail:          msg.Raw,
	})
	if err != nil {
		return nil, err
	}

	return &Outcome{Kind: OutcomeReply, Post: post, Body: body}, nil
}

// autoGeneratedPatterns match header fields that mark a message as
// machine-generated: vacation responders, list traffic, and bulk
// senders.
var autoGeneratedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^auto-submitted:\s*auto-(generated|replied)`),
	regexp.MustCompile(`(?im)^precedence:\s*(list|junk|bulk|auto_reply)`),
	regexp.MustCompile(`(?im)^x-autoreply:`),
	regexp.MustCompile(`(?im)^x-autorespond:`),
	regexp.MustCompile(`(?im)^x-auto-response-suppress:`),
}

func isAutoGenerated(headerBlob string) bool {
	for _, pattern := range autoGeneratedPatterns {
		if pattern.MatchString(headerBlob) {
			return true
		}
	}
	return false
}
