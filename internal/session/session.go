// Package session provides database-backed bearer token sessions.
// Tokens are opaque random strings stored in the sessions table with an
// expiry; expired rows are evicted lazily when they are presented and,
// optionally, by a periodic sweep.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"themegallery/internal/auth"
	"themegallery/internal/models"
)

// DefaultTTL is how long a session stays valid after it is issued.
const DefaultTTL = 7 * 24 * time.Hour

// Store is the persistence the manager needs. *store.SessionStore satisfies it.
type Store interface {
	Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*models.Session, error)
	FindWithUser(ctx context.Context, token string) (*models.Session, *models.User, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteByToken(ctx context.Context, token string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Toucher records account activity. *store.UserStore satisfies it.
type Toucher interface {
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

// Manager issues, validates and destroys sessions.
type Manager struct {
	sessions Store
	users    Toucher
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a session manager. A non-positive ttl means DefaultTTL.
func NewManager(sessions Store, users Toucher, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions: sessions,
		users:    users,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create issues a new session for the user and returns its token and expiry.
func (m *Manager) Create(ctx context.Context, userID uuid.UUID) (string, time.Time, error) {
	token, err := auth.GenerateToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session create: %w", err)
	}
	expiresAt := m.now().Add(m.ttl)
	if _, err := m.sessions.Create(ctx, userID, token, expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate resolves a token to its user. It returns (nil, nil) when the
// token is unknown, expired, or belongs to a deactivated account. An
// expired session is deleted; a valid one touches the user's last login.
// At most one of those writes happens per call.
func (m *Manager) Validate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}

	sess, user, err := m.sessions.FindWithUser(ctx, token)
	if err != nil {
		return nil, err
	}

	switch sess.Classify(m.now()) {
	case models.SessionAbsent:
		return nil, nil
	case models.SessionExpired:
		if err := m.sessions.DeleteByID(ctx, sess.ID); err != nil {
			return nil, err
		}
		slog.Debug("expired session evicted", "user_id", sess.UserID)
		return nil, nil
	}

	if !user.IsActive {
		return nil, nil
	}

	if err := m.users.TouchLastLogin(ctx, user.ID); err != nil {
		return nil, err
	}
	now := m.now()
	user.LastLoginAt = &now
	return user, nil
}

// Destroy deletes every session carrying the token. Unknown tokens are not
// an error.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, err := m.sessions.DeleteByToken(ctx, token)
	return err
}

// IsAdmin reports whether the token belongs to an ADMIN or SUPER_ADMIN.
// Any failure yields false.
func (m *Manager) IsAdmin(ctx context.Context, token string) bool {
	user, err := m.Validate(ctx, token)
	if err != nil {
		slog.Warn("session validation failed", "error", err)
		return false
	}
	return user != nil && user.IsAdmin()
}

// Sweep deletes all expired sessions and returns how many were removed.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	return m.sessions.DeleteExpired(ctx, m.now())
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.Sweep(ctx)
			if err != nil {
				slog.Error("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired sessions swept", "count", n)
			}
		}
	}
}
