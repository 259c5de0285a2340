// Package model defines the data structures used throughout the application.
package model

import "time"

// Column ceilings. Validation and the SQL schema both read these.
const (
	MaxUsernameLength        = 150
	MaxSelfDescriptionLength = 40
	MaxCompanyNameLength     = 40
	MaxTitleLength           = 60
	MaxSummaryLength         = 10000
	MaxIPAddressLength       = 45 // long enough for IPv4-mapped IPv6
)

// User represents a registered account.
//
// PasswordHash is a bcrypt hash and never leaves the server, hence json:"-".
type User struct {
	ID           int64     `json:"id"         db:"id"`
	Username     string    `json:"username"   db:"username"`
	PasswordHash string    `json:"-"          db:"password_hash"`
	DateJoined   time.Time `json:"dateJoined" db:"date_joined"`
}

func (u User) String() string {
	return u.Username
}

// Token is the opaque bearer credential of a User. There is exactly one per
// user; it is created together with the account and never rotated
// automatically.
type Token struct {
	Key       string    `json:"token"   db:"key"`
	UserID    int64     `json:"-"       db:"user_id"`
	CreatedAt time.Time `json:"created" db:"created"`
}

// Reviewer is the author profile attached one-to-one to a User.
//
// SelfDescription is a pointer because "no description" and "empty
// description" are different states in the database (NULL vs '').
//
// Username is joined in from users for display; it is not a reviewers column.
type Reviewer struct {
	ID              int64   `json:"id"              db:"id"`
	UserID          int64   `json:"user"            db:"user_id"`
	SelfDescription *string `json:"selfDescription" db:"self_description"`

	Username string `json:"username" db:"-"`
}

// String is the owning user's username.
func (r Reviewer) String() string {
	return r.Username
}
