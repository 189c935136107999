package domain

import "time"

// User is the identity carried by the backend-issued token.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
}

// Session is the authenticated identity plus the token backing all
// gated actions. A non-nil Session always holds a token that decoded
// into three segments with a valid JSON payload.
type Session struct {
	Token     string    `json:"-"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Expired reports whether the session's expiry claim has passed.
// Sessions without an exp claim never expire client-side.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// AuthGrant is the backend's answer to a code exchange.
type AuthGrant struct {
	Token string
	User  User
}
