package core

import (
	"time"
)

// DefaultSessionDuration is the default lifetime for a dashboard login session (24 hours).
const DefaultSessionDuration = 24 * time.Hour

// Session represents an authenticated dashboard session with expiry tracking.
// Sessions are created after a successful password login and stored server-side;
// the browser holds only the opaque session ID cookie.
type Session struct {
	// ID is the unique session identifier (base64 URL-encoded random bytes)
	ID string

	// CreatedAt is when the session was created
	CreatedAt time.Time

	// ExpiresAt is when the session becomes invalid
	ExpiresAt time.Time
}

// NewSession creates a new Session with the given ID and default 24-hour expiration.
// CreatedAt is set to the current time.
func NewSession(id string) Session {
	now := time.Now()
	return Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(DefaultSessionDuration),
	}
}

// NewSessionWithDuration creates a new Session with a custom expiration duration.
// CreatedAt is set to the current time.
func NewSessionWithDuration(id string, duration time.Duration) Session {
	now := time.Now()
	return Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
	}
}

// IsExpired returns true if the session has passed its expiration time.
func (s Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// TimeRemaining returns the duration until the session expires.
// Returns a negative duration if already expired.
func (s Session) TimeRemaining() time.Duration {
	return time.Until(s.ExpiresAt)
}

// Refresh returns a copy of the session with its expiry extended to
// duration from now. Used for sliding expiration on dashboard activity.
func (s Session) Refresh(duration time.Duration) Session {
	s.ExpiresAt = time.Now().Add(duration)
	return s
}
