package handlers

import (
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"themegallery/internal/auth"
)

// Validation limits for account and theme fields.
const (
	minUsernameLen    = 3
	maxUsernameLen    = 50
	maxNameLen        = 100
	maxDescriptionLen = 2_000
	maxCategoryLen    = 50
	maxCreatorNameLen = 100
	maxThemeJSONLen   = 512 << 10
	maxProfileURLLen  = 2_048
)

// validateUsername checks a trimmed username and returns the first error found.
func validateUsername(username string) string {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen {
		return "Username must be at least 3 characters"
	}
	if n > maxUsernameLen {
		return "Username is too long (max 50 characters)"
	}
	return ""
}

// validatePassword checks a new password against the length bounds.
func validatePassword(password string) string {
	if len(password) < auth.MinPasswordLen {
		return "Password must be at least 6 characters"
	}
	if len(password) > auth.MaxPasswordLen {
		return "Password is too long (max 72 bytes)"
	}
	return ""
}

// validateEmail accepts an empty address or a single plain address.
func validateEmail(email string) string {
	if email == "" {
		return ""
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "Invalid email address"
	}
	return ""
}

// validateProfileURL accepts an absolute http(s) URL.
func validateProfileURL(raw string) string {
	if len(raw) > maxProfileURLLen {
		return "Profile URL is too long"
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "Invalid profile URL"
	}
	return ""
}

// validateTheme checks a theme submission and returns the first error found.
func validateTheme(name, description, creatorName, category, themeJSON string) string {
	if name == "" {
		return "Name is required"
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "Name is too long (max 100 characters)"
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return "Description is too long (max 2,000 characters)"
	}
	if utf8.RuneCountInString(creatorName) > maxCreatorNameLen {
		return "Creator name is too long (max 100 characters)"
	}
	if category == "" {
		return "Category is required"
	}
	if utf8.RuneCountInString(category) > maxCategoryLen {
		return "Category is too long (max 50 characters)"
	}
	if strings.TrimSpace(themeJSON) == "" {
		return "Theme JSON is required"
	}
	if len(themeJSON) > maxThemeJSONLen {
		return "Theme JSON is too large (max 512 KiB)"
	}
	if !isJSONObject(themeJSON) {
		return "Theme JSON must be a valid JSON object"
	}
	return ""
}

// isJSONObject reports whether s is well-formed JSON whose top level is an object.
func isJSONObject(s string) bool {
	return gjson.Valid(s) && gjson.Parse(s).IsObject()
}
