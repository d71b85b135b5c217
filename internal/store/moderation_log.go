// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// moderation_log.go records moderation actions on themes for audit. Each
// entry captures which theme changed, who changed it, and the status
// transition.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"themegallery/internal/models"
)

// Moderation actions.
const (
	ModerationStatusChange = "status_change"
	ModerationDelete       = "delete"
)

// ModerationLogEntry represents a single moderation event.
type ModerationLogEntry struct {
	ID         int64               `json:"id"`
	ThemeID    uuid.UUID           `json:"themeId"`
	ActorID    *uuid.UUID          `json:"actorId"`
	Action     string              `json:"action"`
	FromStatus *models.ThemeStatus `json:"fromStatus"`
	ToStatus   *models.ThemeStatus `json:"toStatus"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// ModerationLogStore handles moderation log operations.
type ModerationLogStore struct {
	db *sql.DB
}

// NewModerationLogStore creates a new ModerationLogStore.
func NewModerationLogStore(db *sql.DB) *ModerationLogStore {
	return &ModerationLogStore{db: db}
}

// Log records a moderation event. Failures are logged, not returned: the
// moderation action itself has already been applied.
func (s *ModerationLogStore) Log(ctx context.Context, themeID, actorID uuid.UUID, action string, from, to *models.ThemeStatus) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO moderation_log (theme_id, actor_id, action, from_status, to_status)
		VALUES ($1, $2, $3, $4, $5)
	`, themeID, actorID, action, from, to)
	if err != nil {
		slog.Warn("failed to log moderation action",
			"theme_id", themeID,
			"actor_id", actorID,
			"action", action,
			"error", err,
		)
		return
	}
	slog.Debug("moderation action logged", "theme_id", themeID, "action", action)
}

// RecentEntries returns the most recent moderation events, newest first.
func (s *ModerationLogStore) RecentEntries(ctx context.Context, limit int) ([]ModerationLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, theme_id, actor_id, action, from_status, to_status, created_at
		FROM moderation_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query moderation log: %w", err)
	}
	defer rows.Close()

	entries := []ModerationLogEntry{}
	for rows.Next() {
		var e ModerationLogEntry
		if err := rows.Scan(&e.ID, &e.ThemeID, &e.ActorID, &e.Action, &e.FromStatus, &e.ToStatus, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan moderation log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
