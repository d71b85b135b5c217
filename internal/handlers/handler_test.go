// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// Unit tests run against go-sqlmock; integration tests use PostgreSQL and
// are skipped when it is unavailable.
package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themegallery/internal/auth"
	"themegallery/internal/database"
	"themegallery/internal/middleware"
	"themegallery/internal/models"
	"themegallery/internal/session"
	"themegallery/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "themegallery")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "themegallery")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testEnv holds all dependencies for handler tests.
type testEnv struct {
	DB            *sql.DB
	Sessions      *session.Manager
	UserStore     *store.UserStore
	SessionStore  *store.SessionStore
	ThemeStore    *store.ThemeStore
	ReactionStore *store.ReactionStore
	ModLog        *store.ModerationLogStore
	Auth          *Auth
	Themes        *Themes
	Admin         *Admin
}

// newEnv wires every handler group over db without a gallery cache.
func newEnv(db *sql.DB) *testEnv {
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	themeStore := store.NewThemeStore(db)
	reactionStore := store.NewReactionStore(db)
	modLog := store.NewModerationLogStore(db)
	sessions := session.NewManager(sessionStore, userStore, session.DefaultTTL)

	return &testEnv{
		DB:            db,
		Sessions:      sessions,
		UserStore:     userStore,
		SessionStore:  sessionStore,
		ThemeStore:    themeStore,
		ReactionStore: reactionStore,
		ModLog:        modLog,
		Auth:          NewAuth(sessions, userStore, sessionStore),
		Themes:        NewThemes(themeStore, reactionStore, nil),
		Admin:         NewAdmin(themeStore, userStore, sessionStore, reactionStore, modLog, nil),
	}
}

// newTestEnv creates an environment backed by the test database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newEnv(testDB(t))
}

// newMockEnv creates an environment backed by sqlmock. Expectations are
// verified when the test finishes.
func newMockEnv(t *testing.T) (*testEnv, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return newEnv(db), mock
}

// jsonRequest builds a request with a JSON body. An empty body sends none.
func jsonRequest(method, path, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withUser adds an authenticated user and token to a request, the way
// middleware.LoadUser does.
func withUser(r *http.Request, u *models.User, token string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserKey, u)
	ctx = context.WithValue(ctx, middleware.TokenKey, token)
	return r.WithContext(ctx)
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// serve runs h and returns the recorded response.
func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, r)
	return rr
}

// decodeBody decodes a JSON object response.
func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}

// assertError checks the status and error message of a JSON error response.
func assertError(t *testing.T, rr *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	assert.Equal(t, status, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, msg, decodeBody(t, rr)["error"])
}

var userRowColumns = []string{
	"id", "username", "email", "name", "password_hash", "role", "is_active",
	"last_login_at", "profile_url", "totp_secret", "totp_enabled", "created_at", "updated_at",
}

// testUser returns an active user with the given password.
func testUser(t *testing.T, username, password string, role models.Role) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	now := time.Now()
	return &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// userRows returns a result set holding u.
func userRows(u *models.User) *sqlmock.Rows {
	var secret any
	if u.TOTPSecret != nil {
		secret = *u.TOTPSecret
	}
	var profileURL any
	if u.ProfileURL != nil {
		profileURL = *u.ProfileURL
	}
	return sqlmock.NewRows(userRowColumns).AddRow(
		u.ID.String(), u.Username, nil, nil, u.PasswordHash, string(u.Role), u.IsActive,
		nil, profileURL, secret, u.TOTPEnabled, u.CreatedAt, u.UpdatedAt,
	)
}

var themeRowColumns = []string{
	"id", "theme_id", "name", "description", "creator_name", "category",
	"status", "theme_json", "likes_count", "views_count", "creator_id", "created_at", "updated_at",
	"creator_id", "creator_username", "creator_name", "creator_profile_url",
}

// themeRows returns a result set holding th without a creator.
func themeRows(th *models.Theme) *sqlmock.Rows {
	return sqlmock.NewRows(themeRowColumns).AddRow(
		th.ID.String(), th.ThemeID, th.Name, th.Description, th.CreatorName, th.Category,
		string(th.Status), th.ThemeJSON, th.LikesCount, th.ViewsCount, nil, th.CreatedAt, th.UpdatedAt,
		nil, nil, nil, nil,
	)
}

// testTheme returns an approved theme with a valid payload.
func testTheme(name string) *models.Theme {
	now := time.Now()
	return &models.Theme{
		ID:          uuid.New(),
		ThemeID:     "test-" + uuid.NewString()[:8],
		Name:        name,
		Description: "A test theme",
		CreatorName: "tester",
		Category:    "dark",
		Status:      models.ThemeStatusApproved,
		ThemeJSON:   `{"colors":{"bg":"#000"}}`,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// cleanUsers removes test users by username.
func cleanUsers(t *testing.T, db *sql.DB, usernames ...string) {
	t.Helper()
	for _, name := range usernames {
		db.Exec("DELETE FROM users WHERE username = $1", name)
	}
}

// cleanThemes removes test themes by internal id.
func cleanThemes(t *testing.T, db *sql.DB, ids ...uuid.UUID) {
	t.Helper()
	for _, id := range ids {
		db.Exec("DELETE FROM themes WHERE id = $1", id)
	}
}
