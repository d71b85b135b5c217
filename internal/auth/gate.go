// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import "themegallery/internal/models"

// Decision is the outcome of an authorization check.
type Decision int

const (
	Unauthenticated Decision = iota
	Forbidden
	Allowed
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Forbidden:
		return "forbidden"
	default:
		return "unauthenticated"
	}
}

// Authorize classifies a resolved user against the role a route requires.
// A nil user is unauthenticated.
func Authorize(user *models.User, required models.Role) Decision {
	if user == nil {
		return Unauthenticated
	}
	if !user.Role.AtLeast(required) {
		return Forbidden
	}
	return Allowed
}
