package model

import "time"

// Topic is a discussion thread composed of posts.
type Topic struct {
	// ID is the internal unique identifier for this topic.
	ID int64 `db:"id" json:"id"`

	// CategoryID is the category the topic was created in.
	CategoryID int64 `db:"category_id" json:"category_id"`

	// Title is the topic headline, taken from the email subject when
	// the topic was created by mail.
	Title string `db:"title" json:"title"`

	// Closed marks the topic as no longer accepting replies.
	Closed bool `db:"closed" json:"closed"`

	// CreatedAt is when the topic was created.
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Post is a single message inside a topic.
type Post struct {
	// ID is the internal unique identifier for this post.
	ID int64 `db:"id" json:"id"`

	// TopicID is the topic this post belongs to.
	TopicID int64 `db:"topic_id" json:"topic_id"`

	// UserID is the author of the post.
	UserID int64 `db:"user_id" json:"user_id"`

	// PostNumber is the 1-based position within the topic.
	PostNumber int `db:"post_number" json:"post_number"`

	// ReplyToPostNumber is the post this one replies to, 0 for none.
	ReplyToPostNumber int `db:"reply_to_post_number" json:"reply_to_post_number"`

	// Raw is the post content as submitted, before rendering.
	Raw string `db:"raw" json:"raw"`

	// ViaEmail marks posts that arrived through the mail receiver.
	ViaEmail bool `db:"via_email" json:"via_email"`

	// RawEmail retains the original message bytes for posts created
	// by mail, for later inspection.
	RawEmail string `db:"raw_email" json:"raw_email"`

	// CreatedAt is when the post was created.
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
