package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"themegallery/internal/auth"
	"themegallery/internal/models"
)

// setupLockKey is the advisory lock that serializes first-run bootstrap.
const setupLockKey = 72_001

// UserStore handles all user-related database operations.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// NewUser holds the fields needed to create an account.
type NewUser struct {
	Username string
	Email    *string
	Name     *string
	Password string
	Role     models.Role
}

// ProfileUpdate lists the profile fields to change. A nil Username leaves
// it untouched; ProfileURL is only applied when SetProfileURL is true, and
// a nil ProfileURL then clears it.
type ProfileUpdate struct {
	Username      *string
	SetProfileURL bool
	ProfileURL    *string
}

const userColumns = `id, username, email, name, password_hash, role, is_active,
	last_login_at, profile_url, totp_secret, totp_enabled, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.LastLoginAt, &u.ProfileURL, &u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserStore) findOne(ctx context.Context, what, query string, arg any) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by %s: %w", what, err)
	}
	return u, nil
}

// FindByID retrieves a user by their UUID. Returns nil if not found.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.findOne(ctx, "id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByUsername retrieves a user by exact username. Returns nil if not found.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, "username", `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// Count returns the number of accounts.
func (s *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// List returns all users ordered by creation date.
func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Create inserts a new user with a bcrypt-hashed password.
func (s *UserStore) Create(ctx context.Context, nu NewUser) (*models.User, error) {
	return s.insert(ctx, s.db, nu)
}

// CreateFirst inserts the bootstrap account, but only while the users
// table is empty. Concurrent callers are serialized by an advisory lock so
// at most one succeeds; the rest get ErrSetupCompleted.
func (s *UserStore) CreateFirst(ctx context.Context, nu NewUser) (*models.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, setupLockKey); err != nil {
		return nil, fmt.Errorf("setup lock: %w", err)
	}

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return nil, ErrSetupCompleted
	}

	u, err := s.insert(ctx, tx, nu)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit setup: %w", err)
	}
	return u, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *UserStore) insert(ctx context.Context, q execer, nu NewUser) (*models.User, error) {
	hash, err := auth.HashPassword(nu.Password)
	if err != nil {
		return nil, err
	}
	if nu.Role == "" {
		nu.Role = models.RoleUser
	}

	u, err := scanUser(q.QueryRowContext(ctx, `
		INSERT INTO users (username, email, name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		nu.Username, nu.Email, nu.Name, hash, nu.Role,
	))
	if err != nil {
		return nil, mapUserConflict(err, "create user")
	}
	return u, nil
}

// mapUserConflict converts unique violations on users into sentinel errors.
func mapUserConflict(err error, op string) error {
	if constraint, ok := uniqueViolation(err); ok {
		if strings.Contains(constraint, "email") {
			return ErrEmailTaken
		}
		return ErrUsernameTaken
	}
	return fmt.Errorf("%s: %w", op, err)
}

// UsernameTakenByOther reports whether a different account owns username.
func (s *UserStore) UsernameTakenByOther(ctx context.Context, username string, self uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND id <> $2)`,
		username, self,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// UpdateProfile applies a profile change and returns the updated user, or
// nil if the user does not exist. A username collision that slips past
// UsernameTakenByOther is reported as ErrUsernameTaken.
func (s *UserStore) UpdateProfile(ctx context.Context, id uuid.UUID, p ProfileUpdate) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		UPDATE users SET
			username    = COALESCE($2::text, username),
			profile_url = CASE WHEN $3::boolean THEN $4::text ELSE profile_url END,
			updated_at  = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, p.Username, p.SetProfileURL, p.ProfileURL,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapUserConflict(err, "update profile")
	}
	return u, nil
}

// UpdatePassword replaces the stored password digest.
func (s *UserStore) UpdatePassword(ctx context.Context, id uuid.UUID, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2
	`, hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// TouchLastLogin records activity on the account.
func (s *UserStore) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

// UpdateRole changes a user's role. Returns nil if the user does not exist.
func (s *UserStore) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error) {
	return s.updateOne(ctx, "update role",
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns, id, role)
}

// SetActive enables or disables an account. Returns nil if the user does not exist.
func (s *UserStore) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error) {
	return s.updateOne(ctx, "set active",
		`UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns, id, active)
}

func (s *UserStore) updateOne(ctx context.Context, op, query string, args ...any) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// SetTOTPSecret saves a pending TOTP secret (during 2FA setup).
func (s *UserStore) SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_secret = $1, totp_enabled = FALSE, updated_at = NOW() WHERE id = $2
	`, secret, id)
	if err != nil {
		return fmt.Errorf("set totp secret: %w", err)
	}
	return nil
}

// EnableTOTP marks 2FA as active for a user (after successful code verification).
func (s *UserStore) EnableTOTP(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_enabled = TRUE, updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}
	return nil
}

// ResetTOTP clears the TOTP secret and disables 2FA for a user.
func (s *UserStore) ResetTOTP(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_secret = NULL, totp_enabled = FALSE, updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("reset totp: %w", err)
	}
	return nil
}
