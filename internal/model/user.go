package model

// Trust levels mirror the forum's progression ladder. Email-in posting
// requires at least the configured minimum level unless the target
// category accepts strangers.
const (
	TrustLevelNew     = 0
	TrustLevelBasic   = 1
	TrustLevelMember  = 2
	TrustLevelRegular = 3
	TrustLevelLeader  = 4
)

// User is a forum account that can author posts.
type User struct {
	// ID is the internal unique identifier for this user.
	ID int64 `db:"id" json:"id"`

	// Username is the unique handle shown on posts.
	Username string `db:"username" json:"username"`

	// Email is the address the user registered with. Inbound mail is
	// matched against it case-insensitively.
	Email string `db:"email" json:"email"`

	// TrustLevel is the user's position on the trust ladder.
	TrustLevel int `db:"trust_level" json:"trust_level"`

	// Active reports whether the account may post at all.
	Active bool `db:"active" json:"active"`
}

// HasTrustLevel reports whether the user meets the given minimum level.
func (u *User) HasTrustLevel(minimum int) bool {
	return u.TrustLevel >= minimum
}
