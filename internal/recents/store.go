// Package recents persists launch history for the app grid in SQLite so the
// recency ordering survives restarts.
package recents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"trayhop/internal/applist"
)

// ErrEmptyIdentifier is returned when an entry has no identifier.
var ErrEmptyIdentifier = errors.New("recents: identifier required")

// nowFn is a test seam for launch timestamps.
var nowFn = time.Now

// Entry is one remembered app.
type Entry struct {
	applist.Entry
	LastUsed    time.Time `json:"lastUsed"`
	LaunchCount int       `json:"launchCount"`
}

// Store is a SQLite-backed launch history. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath places the database next to the config file.
func DefaultPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "recents.sqlite")
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("recents: path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("recents: mkdir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("recents: open: %w", err)
	}
	// A single connection serializes writers without SQLITE_BUSY retries.
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func migrate(db *sql.DB) error {
	statements := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS entries (
			identifier TEXT PRIMARY KEY,
			display_name TEXT NOT NULL DEFAULT '',
			icon TEXT NOT NULL DEFAULT '',
			last_used_unix_ms INTEGER NOT NULL,
			launch_count INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS entries_last_used ON entries(last_used_unix_ms DESC);`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("recents: migration failed: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record marks entry as launched now. Display name and icon are refreshed
// when non-empty.
func (s *Store) Record(ctx context.Context, entry applist.Entry) error {
	id := strings.TrimSpace(entry.Identifier)
	if id == "" {
		return ErrEmptyIdentifier
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO entries (identifier, display_name, icon, last_used_unix_ms, launch_count)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(identifier) DO UPDATE SET
			display_name = CASE WHEN excluded.display_name <> '' THEN excluded.display_name ELSE entries.display_name END,
			icon = CASE WHEN excluded.icon <> '' THEN excluded.icon ELSE entries.icon END,
			last_used_unix_ms = excluded.last_used_unix_ms,
			launch_count = entries.launch_count + 1`,
		id, entry.DisplayName, entry.Icon, nowFn().UnixMilli())
	if err != nil {
		return fmt.Errorf("recents: record %s: %w", id, err)
	}
	return nil
}

// List returns up to limit entries, most recently used first. Ties keep
// insertion order. limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT identifier, display_name, icon, last_used_unix_ms, launch_count
		FROM entries ORDER BY last_used_unix_ms DESC, rowid ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recents: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			lastUsed int64
		)
		if err := rows.Scan(&e.Identifier, &e.DisplayName, &e.Icon, &lastUsed, &e.LaunchCount); err != nil {
			return nil, fmt.Errorf("recents: scan: %w", err)
		}
		e.LastUsed = time.UnixMilli(lastUsed)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recents: list: %w", err)
	}
	return out, nil
}

// AppEntries returns List as plain app list entries, ready for projection.
func (s *Store) AppEntries(ctx context.Context, limit int) ([]applist.Entry, error) {
	list, err := s.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]applist.Entry, len(list))
	for i, e := range list {
		out[i] = e.Entry
	}
	return out, nil
}

// Remove forgets identifier. Removing an unknown identifier is not an error.
func (s *Store) Remove(ctx context.Context, identifier string) error {
	id := strings.TrimSpace(identifier)
	if id == "" {
		return ErrEmptyIdentifier
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE identifier = ?`, id); err != nil {
		return fmt.Errorf("recents: remove %s: %w", id, err)
	}
	return nil
}
