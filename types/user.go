package types

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account in the system. Accounts are created either by
// password signup or on first Google sign-in; a record always carries at
// least one of {password hash, Google subject id}.
type User struct {
	// ID is the unique identifier of the user.
	ID uuid.UUID `json:"id" db:"id"`

	// Username is the unique handle chosen at signup, or derived from the
	// Google display name for provider-created accounts.
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// Name is the user's display name. Empty for password signups.
	Name string `json:"name,omitempty" db:"name"`

	// Avatar is the URL of the user's profile picture, if any.
	Avatar string `json:"avatar,omitempty" db:"avatar"`

	// PasswordHash stores the bcrypt hash of the user's password. Empty for
	// Google-only accounts. Never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// GoogleID is the Google subject ("sub") claim linked to this account.
	// Empty until the user signs in with Google.
	GoogleID string `json:"-" db:"google_id"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
