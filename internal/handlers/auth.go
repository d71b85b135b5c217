package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"themegallery/internal/apierror"
	"themegallery/internal/auth"
	"themegallery/internal/middleware"
	"themegallery/internal/models"
	"themegallery/internal/session"
	"themegallery/internal/store"
)

// Auth groups all account and authentication HTTP handlers.
type Auth struct {
	sessions     *session.Manager
	userStore    *store.UserStore
	sessionStore *store.SessionStore
}

// NewAuth creates a new Auth handler group.
func NewAuth(sessions *session.Manager, userStore *store.UserStore, sessionStore *store.SessionStore) *Auth {
	return &Auth{
		sessions:     sessions,
		userStore:    userStore,
		sessionStore: sessionStore,
	}
}

// tokenResponse is returned by every endpoint that opens a session.
type tokenResponse struct {
	Token     string       `json:"token"`
	User      *models.User `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type registerRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Email    *string `json:"email"`
	Name     *string `json:"name"`
}

// normalize trims the fields and turns blank optional fields into nil.
func (req *registerRequest) normalize() {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = trimOptional(req.Email)
	req.Name = trimOptional(req.Name)
}

// validate returns the first problem with the request, or "".
func (req *registerRequest) validate() string {
	if req.Username == "" || req.Password == "" {
		return "Username and password are required"
	}
	if msg := validateUsername(req.Username); msg != "" {
		return msg
	}
	if msg := validatePassword(req.Password); msg != "" {
		return msg
	}
	if req.Email != nil {
		if msg := validateEmail(*req.Email); msg != "" {
			return msg
		}
	}
	if req.Name != nil && len(*req.Name) > maxNameLen {
		return "Name is too long (max 100 characters)"
	}
	return ""
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// userConflict maps a store uniqueness error to a 409.
func userConflict(err error) error {
	switch {
	case errors.Is(err, store.ErrUsernameTaken):
		return apierror.Conflict("Username already taken")
	case errors.Is(err, store.ErrEmailTaken):
		return apierror.Conflict("Email already registered")
	}
	return err
}

// Register creates a USER account and opens a session for it.
func (a *Auth) Register(w http.ResponseWriter, r *http.Request) {
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

	user, err := a.userStore.Create(r.Context(), store.NewUser{
		Username: req.Username,
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     models.RoleUser,
	})
	if err != nil {
		writeError(w, r, userConflict(err))
		return
	}

	token, expiresAt, err := a.sessions.Create(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token, User: user, ExpiresAt: expiresAt})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// Login verifies credentials (and the TOTP code when 2FA is enabled) and
// issues a bearer token.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, r, apierror.Validation("Username and password are required"))
		return
	}

	user, err := a.userStore.FindByUsername(r.Context(), req.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		auth.RejectPassword(req.Password)
		writeError(w, r, apierror.Unauthenticated("Invalid username or password"))
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, r, apierror.Unauthenticated("Invalid username or password"))
		return
	}
	if !user.IsActive {
		writeError(w, r, apierror.Forbidden("Account is disabled"))
		return
	}

	if user.TOTPEnabled {
		if strings.TrimSpace(req.Code) == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error":             "Two-factor code required",
				"twoFactorRequired": true,
			})
			return
		}
		if user.TOTPSecret == nil || !auth.ValidateTOTP(req.Code, *user.TOTPSecret) {
			writeError(w, r, apierror.Unauthenticated("Invalid two-factor code"))
			return
		}
	}

	token, expiresAt, err := a.sessions.Create(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.userStore.TouchLastLogin(r.Context(), user.ID); err != nil {
		slog.Warn("touch last login failed", "user_id", user.ID, "error", err)
	}
	now := time.Now()
	user.LastLoginAt = &now

	slog.Info("user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, User: user, ExpiresAt: expiresAt})
}

// Logout destroys the session of the presented bearer token.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), middleware.TokenFromCtx(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me returns the authenticated user.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": middleware.UserFromCtx(r.Context())})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword replaces the password after re-verifying the current one.
// Every other session of the user is revoked.
func (a *Auth) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, r, apierror.Validation("Current password and new password are required"))
		return
	}
	if msg := validatePassword(req.NewPassword); msg != "" {
		writeError(w, r, apierror.Validation(msg))
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		writeError(w, r, apierror.Validation("Current password is incorrect"))
		return
	}

	if err := a.userStore.UpdatePassword(r.Context(), user.ID, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	revoked, err := a.sessionStore.DeleteForUser(r.Context(), user.ID, middleware.TokenFromCtx(r.Context()))
	if err != nil {
		slog.Warn("revoke sessions after password change failed", "user_id", user.ID, "error", err)
	}
	slog.Info("password changed", "user_id", user.ID, "revoked_sessions", revoked)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// TwoFASetup generates a new TOTP secret for the user and returns the
// enrollment data. 2FA stays disabled until TwoFAEnable confirms a code.
func (a *Auth) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user.TOTPEnabled {
		writeError(w, r, apierror.Validation("Two-factor authentication is already enabled"))
		return
	}

	enrollment, err := auth.NewTOTPEnrollment(user.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.userStore.SetTOTPSecret(r.Context(), user.ID, enrollment.Secret); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, enrollment)
}

type codeRequest struct {
	Code string `json:"code"`
}

// TwoFAEnable turns on 2FA after the user proves the authenticator works.
func (a *Auth) TwoFAEnable(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())

	var req codeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if user.TOTPSecret == nil {
		writeError(w, r, apierror.Validation("Two-factor setup has not been started"))
		return
	}
	if !auth.ValidateTOTP(req.Code, *user.TOTPSecret) {
		writeError(w, r, apierror.Validation("Invalid two-factor code"))
		return
	}

	if err := a.userStore.EnableTOTP(r.Context(), user.ID); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("2fa enabled", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type passwordRequest struct {
	Password string `json:"password"`
}

// TwoFADisable clears the TOTP secret after re-verifying the password.
func (a *Auth) TwoFADisable(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())

	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, r, apierror.Validation("Password is incorrect"))
		return
	}

	if err := a.userStore.ResetTOTP(r.Context(), user.ID); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("2fa disabled", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
