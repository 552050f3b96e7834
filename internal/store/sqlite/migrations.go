package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// created_at columns hold Unix nanoseconds so ordering survives both drivers.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL UNIQUE,
		verified   INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS credentials (
		user_id       TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		password_hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS links (
		id              TEXT PRIMARY KEY,
		short_code      TEXT NOT NULL UNIQUE,
		destination_url TEXT NOT NULL,
		owner_id        TEXT NOT NULL DEFAULT '',
		guest_id        TEXT NOT NULL DEFAULT '',
		click_count     INTEGER NOT NULL DEFAULT 0,
		created_at      INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_links_owner ON links(owner_id, created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_links_guest ON links(guest_id, created_at DESC, id DESC)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error applying migration: %w", err)
		}
	}
	return nil
}
