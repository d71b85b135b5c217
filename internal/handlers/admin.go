// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"themegallery/internal/apierror"
	"themegallery/internal/cache"
	"themegallery/internal/middleware"
	"themegallery/internal/models"
	"themegallery/internal/store"
)

// Moderation log paging.
const (
	defaultLogLimit = 50
	maxLogLimit     = 200
)

const userNotFoundMsg = "User not found"

// Admin groups all moderation and user management handlers.
type Admin struct {
	themeStore    *store.ThemeStore
	userStore     *store.UserStore
	sessionStore  *store.SessionStore
	reactionStore *store.ReactionStore
	modLog        *store.ModerationLogStore
	gallery       *cache.GalleryCache
}

// NewAdmin creates a new Admin handler group. gallery may be nil.
func NewAdmin(
	themeStore *store.ThemeStore,
	userStore *store.UserStore,
	sessionStore *store.SessionStore,
	reactionStore *store.ReactionStore,
	modLog *store.ModerationLogStore,
	gallery *cache.GalleryCache,
) *Admin {
	return &Admin{
		themeStore:    themeStore,
		userStore:     userStore,
		sessionStore:  sessionStore,
		reactionStore: reactionStore,
		modLog:        modLog,
		gallery:       gallery,
	}
}

// Themes lists every theme regardless of status, optionally filtered by
// status and search text.
func (h *Admin) Themes(w http.ResponseWriter, r *http.Request) {
	filter := models.ThemeFilter{
		Status: models.ThemeStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, r, apierror.Validation("Invalid status filter"))
		return
	}

	themes, err := h.themeStore.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "themes": themes})
}

type statusRequest struct {
	Status models.ThemeStatus `json:"status"`
}

// UpdateThemeStatus moves a theme to another moderation status.
func (h *Admin) UpdateThemeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id", themeNotFoundMsg)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !req.Status.Valid() {
		writeError(w, r, apierror.Validation("Invalid status"))
		return
	}

	previous, theme, err := h.themeStore.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, themeNotFound(err))
		return
	}

	actor := middleware.UserFromCtx(r.Context())
	h.modLog.Log(r.Context(), theme.ID, actor.ID, store.ModerationStatusChange, &previous, &theme.Status)
	h.gallery.InvalidateAll(r.Context())

	slog.Info("theme status changed", "theme_id", theme.ThemeID, "from", previous, "to", theme.Status, "actor", actor.Username)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "theme": theme})
}

// DeleteTheme removes a theme together with its likes and views.
func (h *Admin) DeleteTheme(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id", themeNotFoundMsg)
	if err != nil {
		writeError(w, r, err)
		return
	}

	theme, err := h.themeStore.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if theme == nil {
		writeError(w, r, apierror.NotFound(themeNotFoundMsg))
		return
	}

	if err := h.themeStore.Delete(r.Context(), id); err != nil {
		writeError(w, r, themeNotFound(err))
		return
	}

	actor := middleware.UserFromCtx(r.Context())
	h.modLog.Log(r.Context(), theme.ID, actor.ID, store.ModerationDelete, &theme.Status, nil)
	h.gallery.InvalidateAll(r.Context())

	slog.Info("theme deleted", "theme_id", theme.ThemeID, "actor", actor.Username)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Users lists all accounts.
func (h *Admin) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.userStore.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "users": users})
}

type updateUserRequest struct {
	Role     *models.Role `json:"role"`
	IsActive *bool        `json:"isActive"`
}

// UpdateUser changes the role and/or active flag of an account.
// Deactivating an account revokes all of its sessions.
func (h *Admin) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id", userNotFoundMsg)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Role == nil && req.IsActive == nil {
		writeError(w, r, apierror.Validation("Nothing to update"))
		return
	}
	if req.Role != nil && !req.Role.Valid() {
		writeError(w, r, apierror.Validation("Invalid role"))
		return
	}

	actor := middleware.UserFromCtx(r.Context())
	if actor.ID == id {
		if req.Role != nil && *req.Role != actor.Role {
			writeError(w, r, apierror.Validation("You cannot change your own role"))
			return
		}
		if req.IsActive != nil && !*req.IsActive {
			writeError(w, r, apierror.Validation("You cannot deactivate your own account"))
			return
		}
	}

	user, err := h.userStore.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, r, apierror.NotFound(userNotFoundMsg))
		return
	}

	if req.Role != nil && *req.Role != user.Role {
		if user, err = h.userStore.UpdateRole(r.Context(), id, *req.Role); err != nil || user == nil {
			writeError(w, r, userUpdateError(err))
			return
		}
	}
	if req.IsActive != nil && *req.IsActive != user.IsActive {
		if user, err = h.userStore.SetActive(r.Context(), id, *req.IsActive); err != nil || user == nil {
			writeError(w, r, userUpdateError(err))
			return
		}
		if !user.IsActive {
			if _, err := h.sessionStore.DeleteForUser(r.Context(), id, ""); err != nil {
				writeError(w, r, err)
				return
			}
		}
	}

	slog.Info("user updated", "user_id", user.ID, "role", user.Role, "active", user.IsActive, "actor", actor.Username)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// userUpdateError reports a failed update, or a row that vanished mid-request.
func userUpdateError(err error) error {
	if err != nil {
		return err
	}
	return apierror.NotFound(userNotFoundMsg)
}

// ModerationLog returns the most recent moderation actions.
func (h *Admin) ModerationLog(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, apierror.Validation("Invalid limit"))
			return
		}
		limit = min(n, maxLogLimit)
	}

	entries, err := h.modLog.RecentEntries(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "entries": entries})
}

// Recount rebuilds every theme's like counter from the like rows.
func (h *Admin) Recount(w http.ResponseWriter, r *http.Request) {
	corrected, err := h.reactionStore.Recount(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if corrected > 0 {
		h.gallery.InvalidateAll(r.Context())
	}
	slog.Info("like counters recounted", "corrected", corrected)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "corrected": corrected})
}
