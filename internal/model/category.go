package model

// Category is a forum category that may accept new topics by email.
type Category struct {
	// ID is the internal unique identifier for this category.
	ID int64 `db:"id" json:"id"`

	// Name is the human-readable category title.
	Name string `db:"name" json:"name"`

	// EmailIn is the inbound address for creating topics in this
	// category, empty when the category does not accept email.
	EmailIn string `db:"email_in" json:"email_in"`

	// EmailInAllowStrangers permits unregistered senders to post into
	// this category under a substituted system identity.
	EmailInAllowStrangers bool `db:"email_in_allow_strangers" json:"email_in_allow_strangers"`
}
