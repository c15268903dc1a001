package db

import (
	"context"
	"fmt"
)

// schema is kept portable between postgres and sqlite: TEXT ids, BIGINT unix millis.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL,
    email TEXT NOT NULL,
    password_hash TEXT NULL,
    display_image_url TEXT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_unique ON users (email)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_username_unique ON users (username)`,

	`CREATE TABLE IF NOT EXISTS identities (
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    provider TEXT NOT NULL,
    provider_user_id TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    CONSTRAINT identities_provider_unique UNIQUE (provider, provider_user_id),
    CONSTRAINT identities_user_provider_unique UNIQUE (user_id, provider)
)`,
	`CREATE INDEX IF NOT EXISTS identities_user_id_idx ON identities (user_id)`,

	`CREATE TABLE IF NOT EXISTS clients (
    id TEXT PRIMARY KEY,
    public_id TEXT NOT NULL,
    name TEXT NOT NULL,
    secret TEXT NOT NULL,
    created_at BIGINT NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS clients_public_id_unique ON clients (public_id)`,

	`CREATE TABLE IF NOT EXISTS client_redirect_urls (
    client_id TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
    url TEXT NOT NULL,
    PRIMARY KEY (client_id, url)
)`,
	`CREATE TABLE IF NOT EXISTS client_origins (
    client_id TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
    origin TEXT NOT NULL,
    PRIMARY KEY (client_id, origin)
)`,
}

// Migrate applies the schema. Every statement is idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i, err)
		}
	}
	return nil
}
