package model

import "time"

// EmailLog records an outbound notification whose reply-to address
// embeds a reply key. An inbound message addressed to that key is a
// reply to the notified post.
type EmailLog struct {
	// ID is the internal unique identifier for this log entry.
	ID int64 `db:"id" json:"id"`

	// ReplyKey is the opaque token embedded in the outbound
	// notification's reply address.
	ReplyKey string `db:"reply_key" json:"reply_key"`

	// UserID is the recipient of the notification; replies matched by
	// the key are authored as this user.
	UserID int64 `db:"user_id" json:"user_id"`

	// TopicID is the topic the notification was about.
	TopicID int64 `db:"topic_id" json:"topic_id"`

	// PostNumber is the notified post's position in the topic; an
	// inbound reply targets it.
	PostNumber int `db:"post_number" json:"post_number"`

	// To is the address the notification was sent to.
	To string `db:"to_address" json:"to_address"`

	// CreatedAt is when the notification was sent.
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
