package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"themegallery/internal/models"
)

// SessionStore persists bearer tokens in the sessions table.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

const sessionColumns = `id, token, user_id, expires_at, created_at`

// Create inserts a session row for the user.
func (s *SessionStore) Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*models.Session, error) {
	sess := &models.Session{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sessions (token, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING `+sessionColumns,
		token, userID, expiresAt,
	).Scan(&sess.ID, &sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// FindWithUser looks up a session by token together with its owner.
// Returns (nil, nil, nil) when no session has the token.
func (s *SessionStore) FindWithUser(ctx context.Context, token string) (*models.Session, *models.User, error) {
	sess := &models.Session{}
	u := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.token, s.user_id, s.expires_at, s.created_at,
		       u.id, u.username, u.email, u.name, u.password_hash, u.role, u.is_active,
		       u.last_login_at, u.profile_url, u.totp_secret, u.totp_enabled, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1
	`, token).Scan(
		&sess.ID, &sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt,
		&u.ID, &u.Username, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.LastLoginAt, &u.ProfileURL, &u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find session: %w", err)
	}
	return sess, u, nil
}

// DeleteByID removes a single session row.
func (s *SessionStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteByToken removes every session carrying the token and returns how
// many rows were deleted.
func (s *SessionStore) DeleteByToken(ctx context.Context, token string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return 0, fmt.Errorf("delete session by token: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteForUser removes all of a user's sessions except the one with keepToken
// (pass "" to remove them all).
func (s *SessionStore) DeleteForUser(ctx context.Context, userID uuid.UUID, keepToken string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = $1 AND token <> $2`, userID, keepToken)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteExpired removes sessions that expired before now.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
