// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"

	"themegallery/internal/apierror"
	"themegallery/internal/cache"
	"themegallery/internal/middleware"
	"themegallery/internal/models"
	"themegallery/internal/slug"
	"themegallery/internal/store"
)

// themeIDAttempts bounds retries when a generated public id collides.
const themeIDAttempts = 3

const themeNotFoundMsg = "Theme not found"

// Themes groups the public gallery handlers.
type Themes struct {
	themeStore    *store.ThemeStore
	reactionStore *store.ReactionStore
	gallery       *cache.GalleryCache
}

// NewThemes creates a new Themes handler group. gallery may be nil.
func NewThemes(themeStore *store.ThemeStore, reactionStore *store.ReactionStore, gallery *cache.GalleryCache) *Themes {
	return &Themes{
		themeStore:    themeStore,
		reactionStore: reactionStore,
		gallery:       gallery,
	}
}

// List returns approved themes, newest first, optionally narrowed by
// category and search text.
func (h *Themes) List(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	if themes, ok := h.gallery.Get(r.Context(), category, search); ok {
		writeJSON(w, http.StatusOK, map[string]any{"themes": themes})
		return
	}

	themes, err := h.themeStore.List(r.Context(), models.ThemeFilter{
		Status:   models.ThemeStatusApproved,
		Category: category,
		Search:   search,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.gallery.Set(r.Context(), category, search, themes)

	writeJSON(w, http.StatusOK, map[string]any{"themes": themes})
}

type submitRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CreatorName string          `json:"creatorName"`
	Category    string          `json:"category"`
	ThemeJSON   json.RawMessage `json:"themeJson"`
}

// themeJSONText accepts the payload either as an embedded object or as a
// string holding the serialized object.
func (req *submitRequest) themeJSONText() string {
	raw := strings.TrimSpace(string(req.ThemeJSON))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(req.ThemeJSON, &s); err == nil {
			return s
		}
	}
	if raw == "null" {
		return ""
	}
	return raw
}

// Submit stores a new theme for moderation. When the request carries a
// valid session the theme is attributed to that user.
func (h *Themes) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	creator := middleware.UserFromCtx(r.Context())
	theme := &models.Theme{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		CreatorName: strings.TrimSpace(req.CreatorName),
		Category:    strings.TrimSpace(req.Category),
		ThemeJSON:   req.themeJSONText(),
		Status:      models.ThemeStatusPending,
	}
	if creator != nil {
		theme.CreatorID = &creator.ID
		if theme.CreatorName == "" {
			theme.CreatorName = creator.Username
		}
	}
	if theme.CreatorName == "" {
		theme.CreatorName = "Anonymous"
	}

	if msg := validateTheme(theme.Name, theme.Description, theme.CreatorName, theme.Category, theme.ThemeJSON); msg != "" {
		writeError(w, r, apierror.Validation(msg))
		return
	}

	created, err := h.create(r, theme)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("theme submitted", "theme_id", created.ThemeID, "creator", created.CreatorName)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "theme": created})
}

// create inserts theme under a fresh public id, retrying on collision.
func (h *Themes) create(r *http.Request, theme *models.Theme) (*models.Theme, error) {
	for range themeIDAttempts {
		id, err := slug.ThemeID(theme.Name)
		if err != nil {
			return nil, err
		}
		theme.ThemeID = id

		created, err := h.themeStore.Create(r.Context(), theme)
		if errors.Is(err, store.ErrThemeIDConflict) {
			continue
		}
		return created, err
	}
	return nil, fmt.Errorf("create theme: no free theme id after %d attempts", themeIDAttempts)
}

// BySlug returns a theme by its public id. Every fetch increments the
// view counter, independent of the per-identity view endpoint.
func (h *Themes) BySlug(w http.ResponseWriter, r *http.Request) {
	theme, err := h.themeStore.IncrementViewsByThemeID(r.Context(), chi.URLParam(r, "themeId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if theme == nil {
		writeError(w, r, apierror.NotFound(themeNotFoundMsg))
		return
	}
	writeJSON(w, http.StatusOK, theme)
}

// ExportJSON sends the stored theme payload as a file download.
func (h *Themes) ExportJSON(w http.ResponseWriter, r *http.Request) {
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
	if !gjson.Valid(theme.ThemeJSON) {
		writeError(w, r, apierror.Integrity("Invalid theme JSON in database",
			fmt.Errorf("theme %s: stored payload is not valid JSON", theme.ID)))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, slug.Filename(theme.Name)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(theme.ThemeJSON)); err != nil {
		slog.Warn("write theme export failed", "theme_id", theme.ID, "error", err)
	}
}

type reactionRequest struct {
	UserToken string `json:"userToken"`
}

// reactionTarget parses the theme id and the caller identity of a like or
// view request.
func reactionTarget(w http.ResponseWriter, r *http.Request) (*reactionRequest, error) {
	var req reactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	req.UserToken = strings.TrimSpace(req.UserToken)
	if req.UserToken == "" {
		return nil, apierror.Validation("userToken is required")
	}
	return &req, nil
}

// themeNotFound maps the store sentinel to a 404.
func themeNotFound(err error) error {
	if errors.Is(err, store.ErrThemeNotFound) {
		return apierror.NotFound(themeNotFoundMsg)
	}
	return err
}

// Like toggles the like of the identity in the body.
func (h *Themes) Like(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id", themeNotFoundMsg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := reactionTarget(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.reactionStore.ToggleLike(r.Context(), id, req.UserToken)
	if err != nil {
		writeError(w, r, themeNotFound(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// View records the first view of the identity in the body.
func (h *Themes) View(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id", themeNotFoundMsg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := reactionTarget(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views, err := h.reactionStore.RecordView(r.Context(), id, req.UserToken)
	if err != nil {
		writeError(w, r, themeNotFound(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"viewsCount": views})
}
