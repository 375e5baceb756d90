package receiver

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/nhle/forum-inbound/internal/model"
)

// replyKeyPlaceholder is the single placeholder token the configured
// reply-address template must carry.
const replyKeyPlaceholder = "%{reply_key}"

// RouteKind tags the routing decision for one inbound message.
type RouteKind int

const (
	// RouteInvalid means no recipient address matched a destination.
	RouteInvalid RouteKind = iota

	// RouteCategory means a recipient matched a category's inbound
	// address; the message creates a new topic.
	RouteCategory

	// RouteReply means a recipient matched the reply-address template
	// and its key resolved to a pending email log entry.
	RouteReply
)

// Route is the destination folded out of the recipient list. Exactly
// one of Category or Log is set for the non-invalid kinds.
type Route struct {
	Kind     RouteKind
	Category *model.Category
	Log      *model.EmailLog
}

// CategoryLookup resolves a recipient address to a category that
// accepts inbound email, or nil when none matches.
type CategoryLookup interface {
	CategoryByInboundAddress(ctx context.Context, address string) (*model.Category, error)
}

// ReplyLogLookup resolves a captured reply key to the outbound
// notification it was minted for, or nil when the key is unknown.
type ReplyLogLookup interface {
	EmailLogByReplyKey(ctx context.Context, key string) (*model.EmailLog, error)
}

// compileReplyPattern turns the reply-address template into a matcher
// capturing the reply key. A template without the placeholder yields
// no matcher; reply routing is then simply never taken.
func compileReplyPattern(template string) (*regexp.Regexp, error) {
	if !strings.Contains(template, replyKeyPlaceholder) {
		return nil, nil
	}
	escaped := regexp.QuoteMeta(template)
	pattern := strings.Replace(escaped, regexp.QuoteMeta(replyKeyPlaceholder), `([[:alnum:]]+)`, 1)
	matcher, err := regexp.Compile(`(?i)^` + pattern + `$`)
	if err != nil {
		return nil, fmt.Errorf("compiling reply address template %q: %w", template, err)
	}
	return matcher, nil
}

// resolveRoute folds the recipient list into a routing decision. The
// first address yielding a non-invalid match wins; later addresses are
// not consulted, and recipient order is authoritative.
func resolveRoute(
	ctx context.Context,
	recipients []string,
	categories CategoryLookup,
	logs ReplyLogLookup,
	template string,
) (Route, error) {
	matcher, err := compileReplyPattern(template)
	if err != nil {
		return Route{}, err
	}

	for _, address := range recipients {
		route, err := resolveAddress(ctx, address, categories, logs, matcher)
		if err != nil {
			return Route{}, err
		}
		if route.Kind != RouteInvalid {
			return route, nil
		}
	}

	return Route{Kind: RouteInvalid}, nil
}

// resolveAddress classifies a single recipient address. Category
// inbound addresses take precedence over the reply template; an
// address that fits the template syntactically but whose key does not
// resolve stays invalid.
func resolveAddress(
	ctx context.Context,
	address string,
	categories CategoryLookup,
	logs ReplyLogLookup,
	matcher *regexp.Regexp,
) (Route, error) {
	category, err := categories.CategoryByInboundAddress(ctx, address)
	if err != nil {
		return Route{}, fmt.Errorf("category lookup for %s: %w", address, err)
	}
	if category != nil {
		return Route{Kind: RouteCategory, Category: category}, nil
	}

	if matcher != nil {
		if m := matcher.FindStringSubmatch(address); len(m) == 2 {
			log, err := logs.EmailLogByReplyKey(ctx, m[1])
			if err != nil {
				return Route{}, fmt.Errorf("email log lookup for key %s: %w", m[1], err)
			}
			if log != nil {
				return Route{Kind: RouteReply, Log: log}, nil
			}
		}
	}

	return Route{Kind: RouteInvalid}, nil
}
