package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL UNIQUE,
		verified   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS credentials (
		user_id       UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		password_hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS links (
		id              UUID PRIMARY KEY,
		short_code      VARCHAR(64) NOT NULL UNIQUE,
		destination_url TEXT NOT NULL,
		owner_id        TEXT NOT NULL DEFAULT '',
		guest_id        TEXT NOT NULL DEFAULT '',
		click_count     BIGINT NOT NULL DEFAULT 0 CHECK (click_count >= 0),
		created_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_links_owner ON links(owner_id, created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_links_guest ON links(guest_id, created_at DESC, id DESC)`,
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("error applying migration: %w", err)
		}
	}
	return nil
}
