// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's permission level in the gallery.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// roleRank orders roles from least to most privileged.
var roleRank = map[Role]int{
	RoleUser:       1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants at least the privileges of required.
// Unknown roles never satisfy any requirement.
func (r Role) AtLeast(required Role) bool {
	have, ok := roleRank[r]
	if !ok {
		return false
	}
	need, ok := roleRank[required]
	if !ok {
		return false
	}
	return have >= need
}

// User represents a gallery account.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Email        *string    `json:"email"`
	Name         *string    `json:"name"`
	PasswordHash string     `json:"-"` // Never serialize the hash
	Role         Role       `json:"role"`
	IsActive     bool       `json:"isActive"`
	LastLoginAt  *time.Time `json:"lastLoginAt"`
	ProfileURL   *string    `json:"profileUrl"`
	TOTPSecret   *string    `json:"-"`
	TOTPEnabled  bool       `json:"totpEnabled"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// IsAdmin returns true if the user may access the moderation panel.
func (u *User) IsAdmin() bool {
	return u.Role.AtLeast(RoleAdmin)
}

// Creator is the public projection of a user attached to a theme.
type Creator struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	Name       *string   `json:"name"`
	ProfileURL *string   `json:"profileUrl"`
}
