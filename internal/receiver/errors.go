package receiver

import (
	"errors"
	"strings"
)

// Every failure below is terminal for the current message; nothing is
// retried internally. The caller translates the classification into a
// bounce or notification.
var (
	// ErrEmptyEmail reports empty raw input or no usable body text at
	// any extraction stage.
	ErrEmptyEmail = errors.New("email is empty")

	// ErrEmailUnparsable reports a structural or charset decoding
	// failure.
	ErrEmailUnparsable = errors.New("email could not be parsed")

	// ErrBadDestinationAddress reports that no recipient address
	// routes to a valid destination, or that category email is
	// administratively disabled.
	ErrBadDestinationAddress = errors.New("no recipient address routes to a destination")

	// ErrTopicNotFound reports a missing reply target topic, or a
	// message flagged as auto-generated.
	ErrTopicNotFound = errors.New("topic not found")

	// ErrTopicClosed reports a reply target closed to new replies.
	ErrTopicClosed = errors.New("topic is closed")

	// ErrEmailLogNotFound reports that a reply token did not resolve
	// to a pending log entry.
	ErrEmailLogNotFound = errors.New("email log entry not found")

	// ErrUserNotFound reports an unresolvable sender where stranger
	// posting is disallowed.
	ErrUserNotFound = errors.New("no user found for sender address")

	// ErrInsufficientTrustLevel reports a resolved sender below the
	// required trust level.
	ErrInsufficientTrustLevel = errors.New("sender lacks required trust level")
)

// InvalidPostError reports that the post-creation collaborator
// rejected the content. Reasons carries its validation messages.
type InvalidPostError struct {
	Reasons []string
}

func (e *InvalidPostError) Error() string {
	return "invalid post: " + strings.Join(e.Reasons, ", ")
}
