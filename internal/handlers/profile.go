// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"themegallery/internal/apierror"
	"themegallery/internal/middleware"
	"themegallery/internal/store"
)

type profileRequest struct {
	Username   *string `json:"username"`
	ProfileURL *string `json:"profileUrl"`
}

// UpdateProfile changes the username and/or profile URL of the current
// user. An empty profileUrl clears it.
func (a *Auth) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())

	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var update store.ProfileUpdate
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if msg := validateUsername(username); msg != "" {
			writeError(w, r, apierror.Validation(msg))
			return
		}
		if username != user.Username {
			taken, err := a.userStore.UsernameTakenByOther(r.Context(), username, user.ID)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if taken {
				writeError(w, r, apierror.Validation("Username already taken"))
				return
			}
		}
		update.Username = &username
	}
	if req.ProfileURL != nil {
		profileURL := strings.TrimSpace(*req.ProfileURL)
		update.SetProfileURL = true
		if profileURL != "" {
			if msg := validateProfileURL(profileURL); msg != "" {
				writeError(w, r, apierror.Validation(msg))
				return
			}
			update.ProfileURL = &profileURL
		}
	}

	updated, err := a.userStore.UpdateProfile(r.Context(), user.ID, update)
	if errors.Is(err, store.ErrUsernameTaken) {
		writeError(w, r, apierror.Validation("Username already taken"))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if updated == nil {
		writeError(w, r, apierror.NotFound("User not found"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": updated})
}
