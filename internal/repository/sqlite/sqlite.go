// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary builds
// without CGo. Pass ":memory:" for a throwaway database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements every repository
// interface in internal/repository.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// PRAGMAS GO IN THE DSN, NOT IN AN Exec:
// foreign_keys is per connection and off by default. database/sql keeps a
// pool, so
//
//	db.Exec("PRAGMA foreign_keys = ON")
//
// only switches it on for whichever connection ran that statement. A later
// DELETE FROM users on another pooled connection would then leave the
// user's token, reviewer and reviews behind, with no error. modernc.org/sqlite
// applies every _pragma in the DSN each time it opens a connection, so all
// of them enforce the ON DELETE CASCADE clauses in migrate.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is its own empty database.
	if strings.HasPrefix(dbPath, ":memory:") {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func dsn(dbPath string) string {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
	}
	if !strings.HasPrefix(dbPath, ":memory:") {
		// WAL lets readers proceed while a request is writing.
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + strings.Join(pragmas, "&")
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// migrate creates the schema. Every statement is idempotent, so it runs on
// each start.
//
// Column ceilings are enforced twice: by the serializer with friendly
// messages, and by CHECK constraints here so nothing bypassing the API can
// store an oversized value.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			date_joined   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// One token per user: user_id is UNIQUE.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS auth_tokens (
			key     TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			created DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating auth_tokens table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS reviewers (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id          INTEGER NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			self_description TEXT CHECK (self_description IS NULL OR length(self_description) <= 40)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating reviewers table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS companies (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL CHECK (length(name) <= 40)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating companies table: %w", err)
	}

	// submission_date is TEXT holding YYYY-MM-DD: it is a calendar date, not
	// an instant, and must not pick up a time zone on the way back out.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS reviews (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			reviewer_id     INTEGER NOT NULL REFERENCES reviewers(id) ON DELETE CASCADE,
			company_id      INTEGER NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			rating          INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
			title           TEXT NOT NULL CHECK (length(title) <= 60),
			summary         TEXT NOT NULL CHECK (length(summary) <= 10000),
			submission_date TEXT NOT NULL,
			ip_address      TEXT NOT NULL CHECK (length(ip_address) <= 45)
		);
		CREATE INDEX IF NOT EXISTS idx_reviews_reviewer_id ON reviews(reviewer_id);
		CREATE INDEX IF NOT EXISTS idx_reviews_company_id ON reviews(company_id);
	`)
	if err != nil {
		return fmt.Errorf("creating reviews table: %w", err)
	}

	return nil
}
