// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"themegallery/internal/apierror"
	"themegallery/internal/auth"
	"themegallery/internal/models"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// UserKey is the context key for the authenticated user.
	UserKey contextKey = "user"

	// TokenKey is the context key for the bearer token the user presented.
	TokenKey contextKey = "token"

	// authErrKey holds the error of a session lookup that could not complete.
	authErrKey contextKey = "auth_error"
)

// Validator resolves a bearer token to a user. *session.Manager satisfies it.
type Validator interface {
	Validate(ctx context.Context, token string) (*models.User, error)
}

// LoadUser resolves the bearer token on the request, if any, and stores
// the user in the request context. Downstream handlers can access it via
// UserFromCtx(). This middleware does NOT enforce authentication: when the
// lookup itself fails, public routes continue anonymously and RequireRole
// answers 500.
func LoadUser(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := v.Validate(r.Context(), token)
			if err != nil {
				slog.Warn("session validation failed", "path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authErrKey, err)))
				return
			}

			if user != nil {
				ctx := context.WithValue(r.Context(), UserKey, user)
				ctx = context.WithValue(ctx, TokenKey, token)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests without a valid session with 401.
// Must be applied after LoadUser in the middleware chain.
func RequireAuth(next http.Handler) http.Handler {
	return RequireRole(models.RoleUser)(next)
}

// RequireRole rejects requests whose user is missing (401) or ranks below
// role (403). A session lookup that failed in LoadUser yields 500.
// Must be applied after LoadUser.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err, ok := r.Context().Value(authErrKey).(error); ok {
				apierror.Write(w, r, apierror.Internal(fmt.Errorf("validate session: %w", err)))
				return
			}
			switch auth.Authorize(UserFromCtx(r.Context()), role) {
			case auth.Unauthenticated:
				apierror.Write(w, r, apierror.Unauthenticated("Unauthorized"))
				return
			case auth.Forbidden:
				apierror.Write(w, r, apierror.Forbidden("Forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromCtx extracts the authenticated user from the request context.
// Returns nil if the request is not authenticated.
func UserFromCtx(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserKey).(*models.User)
	return user
}

// TokenFromCtx returns the bearer token of the authenticated request.
func TokenFromCtx(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}
