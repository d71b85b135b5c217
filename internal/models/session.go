package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle position of a bearer token.
type SessionState int

const (
	SessionAbsent SessionState = iota
	SessionActive
	SessionExpired
)

// String returns the state name for logging.
func (s SessionState) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionExpired:
		return "expired"
	default:
		return "absent"
	}
}

// Session is a persisted bearer token bound to one user.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Token     string    `json:"-"`
	UserID    uuid.UUID `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Classify reports whether the session is still usable at the given instant.
// A nil session is absent. A session expiring exactly at now is still active.
func (s *Session) Classify(now time.Time) SessionState {
	if s == nil {
		return SessionAbsent
	}
	if s.ExpiresAt.Before(now) {
		return SessionExpired
	}
	return SessionActive
}
