// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// ThemeStatus tracks where a submitted theme is in moderation.
type ThemeStatus string

const (
	ThemeStatusPending  ThemeStatus = "PENDING"
	ThemeStatusApproved ThemeStatus = "APPROVED"
	ThemeStatusRejected ThemeStatus = "REJECTED"
	ThemeStatusBroken   ThemeStatus = "BROKEN"
)

// ThemeStatuses lists every status in display order.
var ThemeStatuses = []ThemeStatus{
	ThemeStatusPending,
	ThemeStatusApproved,
	ThemeStatusRejected,
	ThemeStatusBroken,
}

// Valid reports whether s is a known moderation status.
func (s ThemeStatus) Valid() bool {
	for _, known := range ThemeStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Theme is a submitted gallery artifact. LikesCount and ViewsCount cache the
// row counts of theme_likes and theme_views for this theme.
type Theme struct {
	ID          uuid.UUID   `json:"id"`
	ThemeID     string      `json:"themeId"` // public slug
	Name        string      `json:"name"`
	Description string      `json:"description"`
	CreatorName string      `json:"creatorName"`
	Category    string      `json:"category"`
	Status      ThemeStatus `json:"status"`
	ThemeJSON   string      `json:"themeJson"`
	LikesCount  int         `json:"likesCount"`
	ViewsCount  int         `json:"viewsCount"`
	CreatorID   *uuid.UUID  `json:"creatorId"`
	Creator     *Creator    `json:"creator,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// ThemeFilter narrows a theme listing. Zero values mean "no filter".
type ThemeFilter struct {
	Status   ThemeStatus
	Category string
	Search   string
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	Count  int  `json:"likesCount"`
	Active bool `json:"isLiked"`
}
