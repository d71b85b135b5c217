// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings,
// public theme identifiers and download filenames.
package slug

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
)

const (
	// maxBaseLen caps the slug part of a theme id.
	maxBaseLen = 60

	// suffixBytes is the random entropy appended to theme ids (8 hex chars).
	suffixBytes = 4
)

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, or space.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
	// whitespaceRun matches one or more whitespace characters.
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Generate creates a URL-friendly slug from the given string.
// Example: "Hello, World! 2026" → "hello-world-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = strings.ReplaceAll(result, " ", "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}

// ThemeID returns a public theme identifier: the slug of name, capped in
// length, followed by a random hex suffix so equal names do not collide.
// Example: "Midnight Ocean" → "midnight-ocean-3f9a01bc"
func ThemeID(name string) (string, error) {
	base := Generate(whitespaceRun.ReplaceAllString(name, " "))
	if len(base) > maxBaseLen {
		base = strings.Trim(base[:maxBaseLen], "-")
	}
	if base == "" {
		base = "theme"
	}

	b := make([]byte, suffixBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base + "-" + hex.EncodeToString(b), nil
}

// Filename returns the download filename for a theme export: the name
// lowercased with every whitespace run replaced by a hyphen, plus ".json".
// Example: "My  Dark Theme" → "my-dark-theme.json"
func Filename(name string) string {
	base := whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	base = strings.Map(func(r rune) rune {
		switch r {
		case '"', '\\', '/':
			return -1
		}
		return r
	}, base)
	if base == "" {
		base = "theme"
	}
	return base + ".json"
}
