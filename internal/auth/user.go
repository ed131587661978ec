// Package auth presents the backend's authentication API as a single
// observable session: one current user, a broadcast feed of changes, and
// operations that keep both in sync with the backend.
//
// FILES:
//   - session.go: SessionChannel state synchronization
//   - user.go:    identity and sign-in result types
package auth

import "time"

// Role discriminates anonymous from registered principals.
type Role string

const (
	RoleAnonymous  Role = "anonymous"
	RoleRegistered Role = "registered"
)

// User is the principal known to the backend. Values are immutable once
// received; a later operation replaces the whole value, never mutates it.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email,omitempty"`
	Role        Role      `json:"role"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Anonymous reports whether the user signed in without credentials.
func (u *User) Anonymous() bool {
	return u != nil && u.Role == RoleAnonymous
}

// AuthResult is the outcome of a completed sign-in exchange. The token is
// handed to the caller (and its token storage); the session channel does not
// retain it.
type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
