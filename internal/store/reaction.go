// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// reaction.go keeps the like and first-view relations of a theme in step
// with the cached counters on the theme row. Each operation runs in one
// transaction that first locks the theme row, so concurrent requests for
// the same theme are serialized and the (theme_id, user_token) unique
// constraint is never raced into an error.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"themegallery/internal/models"
)

// ReactionStore records likes and views per client identity.
type ReactionStore struct {
	db *sql.DB
}

// NewReactionStore creates a new ReactionStore.
func NewReactionStore(db *sql.DB) *ReactionStore {
	return &ReactionStore{db: db}
}

// lockTheme takes a row lock on the theme and returns its current counters.
func lockTheme(ctx context.Context, tx *sql.Tx, themeID uuid.UUID) (likes, views int, err error) {
	err = tx.QueryRowContext(ctx,
		`SELECT likes_count, views_count FROM themes WHERE id = $1 FOR UPDATE`, themeID,
	).Scan(&likes, &views)
	if err == sql.ErrNoRows {
		return 0, 0, ErrThemeNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("lock theme: %w", err)
	}
	return likes, views, nil
}

// ToggleLike flips the like of userToken on a theme. An existing like is
// removed, otherwise one is added. likes_count is recomputed from the
// theme_likes rows in the same transaction, so it cannot drift or go
// negative. Returns ErrThemeNotFound if the theme does not exist.
func (s *ReactionStore) ToggleLike(ctx context.Context, themeID uuid.UUID, userToken string) (*models.LikeResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, _, err := lockTheme(ctx, tx, themeID); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM theme_likes WHERE theme_id = $1 AND user_token = $2`, themeID, userToken)
	if err != nil {
		return nil, fmt.Errorf("delete like: %w", err)
	}
	removed, _ := res.RowsAffected()

	active := removed == 0
	if active {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO theme_likes (theme_id, user_token) VALUES ($1, $2)
			ON CONFLICT (theme_id, user_token) DO NOTHING
		`, themeID, userToken); err != nil {
			return nil, fmt.Errorf("insert like: %w", err)
		}
	}

	var count int
	err = tx.QueryRowContext(ctx, `
		UPDATE themes
		SET likes_count = GREATEST(0, (SELECT COUNT(*) FROM theme_likes WHERE theme_id = $1))
		WHERE id = $1
		RETURNING likes_count
	`, themeID).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("update likes count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit like: %w", err)
	}
	return &models.LikeResult{Count: count, Active: active}, nil
}

// RecordView counts the first view of a theme by userToken. Repeat views
// by the same identity leave the counter unchanged. Returns the resulting
// views_count, or ErrThemeNotFound if the theme does not exist.
func (s *ReactionStore) RecordView(ctx context.Context, themeID uuid.UUID, userToken string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, views, err := lockTheme(ctx, tx, themeID)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO theme_views (theme_id, user_token) VALUES ($1, $2)
		ON CONFLICT (theme_id, user_token) DO NOTHING
	`, themeID, userToken)
	if err != nil {
		return 0, fmt.Errorf("insert view: %w", err)
	}
	inserted, _ := res.RowsAffected()
	if inserted == 0 {
		return views, tx.Commit()
	}

	// views_count is also bumped by the slug lookup, so it is incremented
	// rather than recomputed from theme_views.
	err = tx.QueryRowContext(ctx, `
		UPDATE themes SET views_count = views_count + 1
		WHERE id = $1
		RETURNING views_count
	`, themeID).Scan(&views)
	if err != nil {
		return 0, fmt.Errorf("update views count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit view: %w", err)
	}
	return views, nil
}

// Recount rebuilds likes_count from theme_likes for every theme and
// returns how many rows were corrected.
func (s *ReactionStore) Recount(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE themes t
		SET likes_count = c.n
		FROM (
			SELECT th.id, COUNT(l.id) AS n
			FROM themes th
			LEFT JOIN theme_likes l ON l.theme_id = th.id
			GROUP BY th.id
		) c
		WHERE t.id = c.id AND t.likes_count <> c.n
	`)
	if err != nil {
		return 0, fmt.Errorf("recount likes: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
