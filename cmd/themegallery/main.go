// Package main is the entry point for the theme gallery API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"themegallery/internal/cache"
	"themegallery/internal/config"
	"themegallery/internal/database"
	"themegallery/internal/handlers"
	"themegallery/internal/middleware"
	"themegallery/internal/router"
	"themegallery/internal/session"
	"themegallery/internal/store"
)

func main() {
	// Load configuration from the environment (and .env, if present).
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON everywhere else.
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"cache", cfg.CacheEnabled(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed sample themes in development (no-op if themes already exist).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey for the gallery cache (optional, app works without it).
	var gallery *cache.GalleryCache
	if cfg.CacheEnabled() {
		valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		defer valkeyClient.Close()
		gallery = cache.NewGalleryCache(valkeyClient, cfg.GalleryTTL)
	} else {
		slog.Warn("valkey not configured, gallery cache disabled")
	}

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	themeStore := store.NewThemeStore(db)
	reactionStore := store.NewReactionStore(db)
	modLogStore := store.NewModerationLogStore(db)

	sessions := session.NewManager(sessionStore, userStore, cfg.SessionTTL)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Expired sessions are evicted lazily on read; the sweeper removes the
	// ones nobody presents again.
	if cfg.SessionSweepInterval > 0 {
		go sessions.RunSweeper(ctx, cfg.SessionSweepInterval)
	}

	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		slog.Error("invalid TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, trusted...)
	defer limiter.Stop()

	// Create handler groups with their dependencies.
	authHandlers := handlers.NewAuth(sessions, userStore, sessionStore)
	themeHandlers := handlers.NewThemes(themeStore, reactionStore, gallery)
	adminHandlers := handlers.NewAdmin(themeStore, userStore, sessionStore, reactionStore, modLogStore, gallery)

	// Set up the Chi router with all middleware and routes.
	r := router.New(sessions, limiter, authHandlers, themeHandlers, adminHandlers)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
