// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"themegallery/internal/apierror"
	"themegallery/internal/models"
	"themegallery/internal/store"
)

const setupCompletedMsg = "Setup already completed. An administrator account already exists."

// Setup creates the first account of a fresh installation. It is only
// accepted while the users table is empty and always grants SUPER_ADMIN.
func (a *Auth) Setup(w http.ResponseWriter, r *http.Request) {
	n, err := a.userStore.Count(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if n > 0 {
		writeError(w, r, apierror.Validation(setupCompletedMsg))
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.normalize()
	if msg := req.validate(); msg != "" {
		writeError(w, r, apierror.Validation(msg))
		return
	}

	user, err := a.userStore.CreateFirst(r.Context(), store.NewUser{
		Username: req.Username,
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     models.RoleSuperAdmin,
	})
	if errors.Is(err, store.ErrSetupCompleted) {
		writeError(w, r, apierror.Validation(setupCompletedMsg))
		return
	}
	if err != nil {
		writeError(w, r, userConflict(err))
		return
	}

	token, _, err := a.sessions.Create(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("initial setup completed", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
		"message": "Super administrator account created",
		"token":   token,
	})
}
