package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// initDB initializes and returns the SQLite site registry. An empty path
// places the database next to the executable.
func initDB(dbPath string) *sql.DB {
	if dbPath == "" {
		exePath, err := os.Executable()
		if err != nil {
			slog.Error("Error getting executable path", "error", err)
			os.Exit(1)
		}
		dbPath = filepath.Join(filepath.Dir(exePath), "hotdeal.db")
	}
	slog.Debug("Initializing database", "path", dbPath)

	db, err := sql.Open("sqlite", dbPath) // Use "sqlite" driver name
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}

	createSitesTable := `
	CREATE TABLE IF NOT EXISTS sites (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		board_url TEXT NOT NULL,
		title_selector TEXT NOT NULL,
		link_selector TEXT NOT NULL DEFAULT '',
		comment_selector TEXT NOT NULL DEFAULT '',
		date_selector TEXT NOT NULL DEFAULT '',
		content_selector TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(createSitesTable); err != nil {
		slog.Error("Failed to create sites table", "error", err)
		os.Exit(1)
	}
	slog.Debug("Database initialized successfully")

	return db
}

// addSite registers a board, replacing any existing registration with the
// same name.
func addSite(db *sql.DB, site SiteConfig) error {
	_, err := db.Exec(`
		INSERT INTO sites (name, board_url, title_selector, link_selector, comment_selector, date_selector, content_selector)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			board_url = excluded.board_url,
			title_selector = excluded.title_selector,
			link_selector = excluded.link_selector,
			comment_selector = excluded.comment_selector,
			date_selector = excluded.date_selector,
			content_selector = excluded.content_selector`,
		site.Name, site.BoardURL, site.TitleSelector, site.LinkSelector,
		site.CommentSelector, site.DateSelector, site.ContentSelector)
	if err != nil {
		return fmt.Errorf("failed to register site %q: %w", site.Name, err)
	}

	slog.Info("Registered site", "name", site.Name, "url", site.BoardURL)
	return nil
}

// listSites returns all registered boards in registration order.
func listSites(db *sql.DB) ([]SiteConfig, error) {
	rows, err := db.Query(`
		SELECT id, name, board_url, title_selector, link_selector, comment_selector, date_selector, content_selector
		FROM sites ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sites []SiteConfig
	for rows.Next() {
		var s SiteConfig
		err := rows.Scan(&s.ID, &s.Name, &s.BoardURL, &s.TitleSelector,
			&s.LinkSelector, &s.CommentSelector, &s.DateSelector, &s.ContentSelector)
		if err != nil {
			slog.Error("Error scanning site row", "error", err)
			continue
		}
		sites = append(sites, s)
	}

	return sites, rows.Err()
}

// removeSite deletes a board registration by name.
func removeSite(db *sql.DB, name string) error {
	result, err := db.Exec("DELETE FROM sites WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to remove site %q: %w", name, err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("no site named %q", name)
	}
	return nil
}
