// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"themegallery/internal/models"
)

// ThemeStore handles all gallery theme database operations.
type ThemeStore struct {
	db *sql.DB
}

// NewThemeStore creates a new ThemeStore.
func NewThemeStore(db *sql.DB) *ThemeStore {
	return &ThemeStore{db: db}
}

// themeColumns lists the theme columns, qualified with the "t" alias.
const themeColumns = `t.id, t.theme_id, t.name, t.description, t.creator_name, t.category,
	t.status, t.theme_json, t.likes_count, t.views_count, t.creator_id, t.created_at, t.updated_at`

// creatorColumns lists the public creator fields joined as "u".
const creatorColumns = `u.id, u.username, u.name, u.profile_url`

// themeSelect joins each theme with its optional creator.
const themeSelect = `SELECT ` + themeColumns + `, ` + creatorColumns + `
	FROM themes t
	LEFT JOIN users u ON u.id = t.creator_id`

// scanTheme scans a theme row with its creator columns.
func scanTheme(row scanner) (*models.Theme, error) {
	var (
		t           models.Theme
		creatorID   uuid.NullUUID
		creatorName sql.NullString
		displayName *string
		profileURL  *string
	)
	err := row.Scan(
		&t.ID, &t.ThemeID, &t.Name, &t.Description, &t.CreatorName, &t.Category,
		&t.Status, &t.ThemeJSON, &t.LikesCount, &t.ViewsCount, &t.CreatorID, &t.CreatedAt, &t.UpdatedAt,
		&creatorID, &creatorName, &displayName, &profileURL,
	)
	if err != nil {
		return nil, err
	}
	if creatorID.Valid {
		t.Creator = &models.Creator{
			ID:         creatorID.UUID,
			Username:   creatorName.String,
			Name:       displayName,
			ProfileURL: profileURL,
		}
	}
	return &t, nil
}

// List returns themes matching the filter, newest first. Search is a
// case-insensitive substring match over name, creator name and description.
func (s *ThemeStore) List(ctx context.Context, f models.ThemeFilter) ([]models.Theme, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("t.category = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, likePattern(f.Search))
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(t.name ILIKE $%d OR t.creator_name ILIKE $%d OR t.description ILIKE $%d)", n, n, n))
	}

	query := themeSelect
	if len(where) > 0 {
		query += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\tORDER BY t.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	defer rows.Close()

	items := []models.Theme{}
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		items = append(items, *t)
	}
	return items, rows.Err()
}

// FindByID retrieves a theme by its internal UUID. Returns nil if not found.
func (s *ThemeStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Theme, error) {
	t, err := scanTheme(s.db.QueryRowContext(ctx, themeSelect+` WHERE t.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find theme by id: %w", err)
	}
	return t, nil
}

// IncrementViewsByThemeID bumps views_count by one without any per-identity
// dedup and returns the updated theme, or nil if the slug does not resolve.
// This path does not write theme_views, so views_count can exceed the
// number of recorded viewers.
func (s *ThemeStore) IncrementViewsByThemeID(ctx context.Context, themeID string) (*models.Theme, error) {
	t, err := scanTheme(s.db.QueryRowContext(ctx, `
		WITH t AS (
			UPDATE themes SET views_count = views_count + 1
			WHERE theme_id = $1
			RETURNING *
		)
		SELECT `+themeColumns+`, `+creatorColumns+`
		FROM t
		LEFT JOIN users u ON u.id = t.creator_id
	`, themeID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("increment theme views: %w", err)
	}
	return t, nil
}

// Create inserts a new theme and returns it with generated fields. The
// status defaults to PENDING and the counters start at zero.
func (s *ThemeStore) Create(ctx context.Context, t *models.Theme) (*models.Theme, error) {
	if t.Status == "" {
		t.Status = models.ThemeStatusPending
	}
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO themes (theme_id, name, description, creator_name, category, status, theme_json, creator_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, t.ThemeID, t.Name, t.Description, t.CreatorName, t.Category, t.Status, t.ThemeJSON, t.CreatorID,
	).Scan(&id)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && strings.Contains(constraint, "theme_id") {
			return nil, ErrThemeIDConflict
		}
		return nil, fmt.Errorf("create theme: %w", err)
	}

	created, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("create theme: row %s vanished after insert", id)
	}
	return created, nil
}

// UpdateStatus changes a theme's moderation status and returns the
// previous status with the updated theme. Returns ErrThemeNotFound if the
// theme does not exist.
func (s *ThemeStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ThemeStatus) (models.ThemeStatus, *models.Theme, error) {
	var previous models.ThemeStatus
	err := s.db.QueryRowContext(ctx, `
		WITH old AS (SELECT status FROM themes WHERE id = $1 FOR UPDATE)
		UPDATE themes SET status = $2, updated_at = NOW()
		FROM old
		WHERE themes.id = $1
		RETURNING old.status
	`, id, status).Scan(&previous)
	if err == sql.ErrNoRows {
		return "", nil, ErrThemeNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("update theme status: %w", err)
	}

	t, err := s.FindByID(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if t == nil {
		return "", nil, ErrThemeNotFound
	}
	return previous, t, nil
}

// Delete removes a theme and, through cascades, its likes and views.
func (s *ThemeStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM themes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete theme: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrThemeNotFound
	}
	return nil
}
