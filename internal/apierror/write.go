// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package apierror

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// body is the JSON shape of every error response.
type body struct {
	Error string `json:"error"`
}

// Write sends err as a JSON error response. Internal and integrity errors
// are logged with their cause; clients only see the message.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	e := From(err)
	status := e.Status()

	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", e.Error(),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body{Error: e.Message})
}
