// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers of the theme gallery API.
// Handlers are grouped by concern (auth, themes, admin) and receive their
// dependencies through the handler struct. Every handler is the error
// boundary for its request: failures are rendered as JSON via apierror.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"themegallery/internal/apierror"
)

// maxBodyBytes bounds request bodies. Theme payloads are the largest input.
const maxBodyBytes = 1 << 20

// writeJSON sends v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write json response failed", "error", err)
	}
}

// writeError sends err as a JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apierror.Write(w, r, err)
}

// decodeJSON reads the request body into dst. An empty body leaves dst
// untouched; malformed JSON is a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierror.Validation("Request body too large")
		}
		return apierror.Validation("Invalid JSON body")
	}
	return nil
}

// pathUUID parses a UUID URL parameter. A malformed id cannot name an
// existing row, so it is reported as not found.
func pathUUID(r *http.Request, name, notFound string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apierror.NotFound(notFound)
	}
	return id, nil
}
