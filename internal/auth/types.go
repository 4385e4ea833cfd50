package auth

import (
	"errors"
	"regexp"
	"time"
)

// emailPattern is a pragmatic format check, not full RFC 5322 validation.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// maxEmailLength is the maximum allowed email length.
const maxEmailLength = 254

// IsValidEmail checks if an email address meets format requirements.
func IsValidEmail(email string) bool {
	return len(email) <= maxEmailLength && emailPattern.MatchString(email)
}

// User represents an account that can authenticate and trigger actions.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`

	// PasswordHash is empty for accounts that only sign in through the
	// external identity provider.
	PasswordHash string `json:"-"` // never serialised

	// IsAdmin grants the management tier: user, action, tag and event
	// administration. Non-admins can list and trigger actions only.
	IsAdmin   bool      `json:"is_admin"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session represents a login session. The ID is the opaque bearer token
// handed to the client; presenting it is the only proof of identity.
type Session struct {
	ID        string    `json:"sid"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Sentinel errors for auth operations.
var (
	// ErrInvalidCredentials is returned for unknown email, wrong password
	// and inactive accounts alike, so login failures don't reveal which
	// accounts exist.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already registered")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidToken    = errors.New("invalid identity token")

	// ErrAdminExists is returned by Bootstrap when an active admin
	// account already exists.
	ErrAdminExists = errors.New("admin account already exists")
)
