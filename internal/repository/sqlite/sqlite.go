// Package sqlite implements the repository interfaces on an embedded SQLite
// database via the pure-Go modernc.org/sqlite driver (no CGo, cross-compiles
// anywhere Go does).
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql at init time.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and hands out the typed repositories.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows a single writer, and a ":memory:" database exists per
	// connection. One pooled connection covers both.
	conn.SetMaxOpenConns(1)

	// Force an immediate connection so a bad path surfaces here, not on
	// the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite.
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

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns the user repository over this connection.
func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

// Webpages returns the redirect-target repository over this connection.
func (db *DB) Webpages() *WebpageDB {
	return &WebpageDB{conn: db.conn}
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it safe to
// run on every start.
//
// Name, email, and phone deliberately carry no UNIQUE constraint: the
// uniqueness rule is cross-column (a new name may not equal an existing
// email, etc.) and is enforced by the sign-up probe, not the schema.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS roles (
			id                 TEXT PRIMARY KEY,
			name               TEXT NOT NULL,
			is_all_permissions INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS groups (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS permissions (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL DEFAULT '',
			key         TEXT NOT NULL,
			router      TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS role_groups (
			role_id  TEXT NOT NULL REFERENCES roles(id),
			group_id TEXT NOT NULL REFERENCES groups(id),
			PRIMARY KEY (role_id, group_id)
		);

		CREATE TABLE IF NOT EXISTS group_permissions (
			group_id      TEXT NOT NULL REFERENCES groups(id),
			permission_id TEXT NOT NULL REFERENCES permissions(id),
			PRIMARY KEY (group_id, permission_id)
		);

		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL DEFAULT '',
			phone         TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			login_type    TEXT NOT NULL DEFAULT 'ACCOUNT',
			first_name    TEXT NOT NULL DEFAULT '',
			last_name     TEXT NOT NULL DEFAULT '',
			image_url     TEXT NOT NULL DEFAULT '',
			date_of_birth DATETIME,
			role_id       TEXT REFERENCES roles(id),
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_users_name  ON users(name);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
		CREATE INDEX IF NOT EXISTS idx_users_phone ON users(phone);

		CREATE TABLE IF NOT EXISTS webpages (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL DEFAULT '',
			key         TEXT NOT NULL UNIQUE,
			url         TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return nil
}
