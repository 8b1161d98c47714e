// Package sqlite implements the repository interfaces on SQLite.
//
// We use modernc.org/sqlite — a pure Go translation of SQLite — so the
// binary builds without CGo and cross-compiles anywhere Go runs. The
// database is a single file (or ":memory:" in tests).
//
// The schema enforces the invariants the service layer relies on:
// UNIQUE indexes on icons.slug and categories.slug back the optimistic
// slug generation (a losing racer gets a constraint violation, mapped to
// apperror.ErrConflict), and the download counter is only ever mutated by
// an atomic UPDATE ... SET downloads = downloads + 1.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the repository
// interfaces (see the compile-time checks in the per-entity files).
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath, applies pragmas
// and migrations, and seeds the default categories.
//
// dbPath examples:
//   - "data/gallery.db" — file-based, persistent
//   - ":memory:"        — in-memory, used by tests
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows one writer at a time. Capping the pool at a single
	// connection serialises writes in the pool instead of surfacing
	// SQLITE_BUSY, and keeps ":memory:" databases coherent (each new
	// connection to ":memory:" would otherwise see its own empty DB).
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress — a web
	// server hits the DB from many requests at once.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Writers briefly block each other even in WAL mode; wait instead of
	// failing with SQLITE_BUSY under concurrent requests.
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	// Foreign keys are off by default in SQLite; icons reference users.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Callers defer this right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it
// idempotent — safe to run on every startup.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			role          TEXT NOT NULL DEFAULT 'user',
			password_hash TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS categories (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			slug       TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating categories table: %w", err)
	}

	// icons.slug is UNIQUE: this constraint, not the pre-insert probe, is
	// what actually guarantees slug uniqueness under concurrent uploads.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS icons (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id),
			name         TEXT NOT NULL,
			slug         TEXT NOT NULL UNIQUE,
			description  TEXT NOT NULL DEFAULT '',
			category     TEXT NOT NULL,
			size         TEXT NOT NULL DEFAULT '',
			tags         TEXT NOT NULL DEFAULT '',
			file_path    TEXT NOT NULL,
			preview_path TEXT NOT NULL DEFAULT '',
			file_type    TEXT NOT NULL,
			file_size    INTEGER NOT NULL,
			downloads    INTEGER NOT NULL DEFAULT 0,
			is_approved  INTEGER NOT NULL DEFAULT 0,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_icons_user_id ON icons(user_id);
		CREATE INDEX IF NOT EXISTS idx_icons_category ON icons(category);
		CREATE INDEX IF NOT EXISTS idx_icons_is_approved ON icons(is_approved);
		CREATE INDEX IF NOT EXISTS idx_icons_created_at ON icons(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating icons table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating settings table: %w", err)
	}

	return db.seedCategories()
}

// defaultCategories is the initial taxonomy a fresh deployment starts with.
var defaultCategories = []struct{ name, slug string }{
	{"System", "system"},
	{"Productivity", "productivity"},
	{"Development", "development"},
	{"Design", "design"},
	{"Social", "social"},
	{"Entertainment", "entertainment"},
	{"Utilities", "utilities"},
	{"Games", "games"},
	{"Other", "other"},
}

// seedCategories inserts the default set only into an empty table, so
// admin edits and deletions survive restarts.
func (db *DB) seedCategories() error {
	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return fmt.Errorf("counting categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	for _, c := range defaultCategories {
		_, err := db.conn.Exec(
			`INSERT INTO categories (id, name, slug, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			xid.New().String(), c.name, c.slug, now, now,
		)
		if err != nil {
			return fmt.Errorf("seeding category %q: %w", c.slug, err)
		}
	}
	return nil
}

// escapeLike lowercases a user-supplied search term and escapes the LIKE
// wildcards so "50%" matches literally. Pair with `LIKE ? ESCAPE '\'`.
func escapeLike(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite doesn't export a typed error for this, so we match
// the stable message SQLite itself produces.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
