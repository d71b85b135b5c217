// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router tests verify the HTTP routing configuration, middleware
// chains, and the health endpoint.
package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themegallery/internal/handlers"
	"themegallery/internal/middleware"
	"themegallery/internal/models"
)

// tokenValidator resolves bearer tokens from a fixed map.
type tokenValidator map[string]*models.User

func (v tokenValidator) Validate(_ context.Context, token string) (*models.User, error) {
	return v[token], nil
}

// newTestRouter builds the router with handler groups that have no stores.
// Only paths rejected before any store access may be exercised.
func newTestRouter(limiter *middleware.RateLimiter) http.Handler {
	v := tokenValidator{
		"user-token":  {ID: uuid.New(), Username: "user", Role: models.RoleUser, IsActive: true},
		"admin-token": {ID: uuid.New(), Username: "admin", Role: models.RoleAdmin, IsActive: true},
	}
	return New(v, limiter,
		handlers.NewAuth(nil, nil, nil),
		handlers.NewThemes(nil, nil, nil),
		handlers.NewAdmin(nil, nil, nil, nil, nil, nil),
	)
}

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)

	healthHandler(w, r)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("content-type: got %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field: got %q, want %q", body["status"], "ok")
	}
}

func TestRouteGuards(t *testing.T) {
	router := newTestRouter(nil)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health", "GET", "/health", "", http.StatusOK},
		{"me anonymous", "GET", "/api/auth/me", "", http.StatusUnauthorized},
		{"me unknown token", "GET", "/api/auth/me", "stale", http.StatusUnauthorized},
		{"change password anonymous", "POST", "/api/auth/change-password", "", http.StatusUnauthorized},
		{"profile anonymous", "PATCH", "/api/profile/update", "", http.StatusUnauthorized},
		{"2fa setup anonymous", "POST", "/api/auth/2fa/setup", "", http.StatusUnauthorized},
		{"admin themes anonymous", "GET", "/api/admin/themes", "", http.StatusUnauthorized},
		{"admin themes as user", "GET", "/api/admin/themes", "user-token", http.StatusForbidden},
		{"admin users as user", "GET", "/api/admin/users", "user-token", http.StatusForbidden},
		{"update user as admin", "PATCH", "/api/admin/users/" + uuid.NewString(), "admin-token", http.StatusForbidden},
		{"admin themes bad status", "GET", "/api/admin/themes?status=DRAFT", "admin-token", http.StatusBadRequest},
		{"like malformed id", "POST", "/api/themes/not-a-uuid/like", "", http.StatusNotFound},
		{"export malformed id", "GET", "/api/themes/not-a-uuid/json", "", http.StatusNotFound},
		{"unknown route", "GET", "/api/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestRateLimitedRoutes(t *testing.T) {
	limiter := middleware.NewRateLimiter(0.001, 1)
	defer limiter.Stop()
	router := newTestRouter(limiter)

	send := func(path string) int {
		req := httptest.NewRequest("POST", path, strings.NewReader(`{"userToken":"u1"}`))
		req.RemoteAddr = "203.0.113.9:4000"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusNotFound, send("/api/themes/not-a-uuid/like"))
	assert.Equal(t, http.StatusTooManyRequests, send("/api/themes/not-a-uuid/like"))

	// Unlimited routes are unaffected by the exhausted bucket.
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
