// Package router sets up all HTTP routes and middleware chains for the
// theme gallery API. Routes are organized into public, session and admin
// groups with the appropriate middleware stacks.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"themegallery/internal/handlers"
	"themegallery/internal/middleware"
	"themegallery/internal/models"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. limiter may be nil to disable rate limiting.
func New(
	validator middleware.Validator,
	limiter *middleware.RateLimiter,
	auth *handlers.Auth,
	themes *handlers.Themes,
	admin *handlers.Admin,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadUser(validator))

	limited := func(h http.HandlerFunc) http.Handler {
		if limiter == nil {
			return h
		}
		return limiter.Middleware(h)
	}

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/setup", limited(auth.Setup))

		r.Route("/auth", func(r chi.Router) {
			r.Method(http.MethodPost, "/register", limited(auth.Register))
			r.Method(http.MethodPost, "/login", limited(auth.Login))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Post("/logout", auth.Logout)
				r.Get("/me", auth.Me)
				r.Post("/change-password", auth.ChangePassword)
				r.Post("/2fa/setup", auth.TwoFASetup)
				r.Post("/2fa/enable", auth.TwoFAEnable)
				r.Post("/2fa/disable", auth.TwoFADisable)
			})
		})

		r.With(middleware.RequireAuth).Patch("/profile/update", auth.UpdateProfile)

		// Public gallery. Submission attaches the creator when a session is present.
		r.Route("/themes", func(r chi.Router) {
			r.Get("/", themes.List)
			r.Method(http.MethodPost, "/", limited(themes.Submit))
			r.Get("/by-id/{themeId}", themes.BySlug)
			r.Get("/{id}/json", themes.ExportJSON)
			r.Method(http.MethodPost, "/{id}/like", limited(themes.Like))
			r.Method(http.MethodPost, "/{id}/view", limited(themes.View))
		})

		// Moderation, ADMIN and above.
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin))

			r.Get("/themes", admin.Themes)
			r.Patch("/themes/{id}/status", admin.UpdateThemeStatus)
			r.Delete("/themes/{id}", admin.DeleteTheme)
			r.Get("/moderation-log", admin.ModerationLog)
			r.Post("/recount", admin.Recount)

			r.Get("/users", admin.Users)
			r.With(middleware.RequireRole(models.RoleSuperAdmin)).Patch("/users/{id}", admin.UpdateUser)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
