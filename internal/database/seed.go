package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// seedTheme is a demo gallery entry inserted in development.
type seedTheme struct {
	themeID     string
	name        string
	description string
	creatorName string
	category    string
	themeJSON   string
}

var seedThemes = []seedTheme{
	{
		themeID:     "midnight-ocean-demo",
		name:        "Midnight Ocean",
		description: "Deep blues with a teal accent.",
		creatorName: "gallery",
		category:    "dark",
		themeJSON:   `{"colors":{"background":"#0b1d2a","foreground":"#d8e6f0","accent":"#2bb3a3"}}`,
	},
	{
		themeID:     "paper-light-demo",
		name:        "Paper Light",
		description: "A calm off-white reading theme.",
		creatorName: "gallery",
		category:    "light",
		themeJSON:   `{"colors":{"background":"#faf8f2","foreground":"#2a2a2a","accent":"#b5542f"}}`,
	},
}

// Seed populates the database with demo themes for development. It does not
// create users: the first account is made through the setup endpoint.
// No-op when any theme already exists.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM themes").Scan(&count); err != nil {
		return fmt.Errorf("seed check themes: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	for _, t := range seedThemes {
		_, err := db.Exec(`
			INSERT INTO themes (theme_id, name, description, creator_name, category, status, theme_json)
			VALUES ($1, $2, $3, $4, $5, 'APPROVED', $6)
			ON CONFLICT (theme_id) DO NOTHING
		`, t.themeID, t.name, t.description, t.creatorName, t.category, t.themeJSON)
		if err != nil {
			return fmt.Errorf("seed insert theme %s: %w", t.themeID, err)
		}
	}

	slog.Info("database seeded with demo themes", "count", len(seedThemes))
	return nil
}
