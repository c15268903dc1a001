package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"identity-broker/internal/auth"
	"identity-broker/internal/db"
)

type SQLStore struct {
	db *db.DB
}

func NewSQLStore(d *db.DB) *SQLStore {
	return &SQLStore{db: d}
}

type clientRow struct {
	ID        string `db:"id"`
	PublicID  string `db:"public_id"`
	Name      string `db:"name"`
	Secret    string `db:"secret"`
	CreatedAt int64  `db:"created_at"`
}

func (s *SQLStore) ByPublicID(ctx context.Context, publicID string) (*Client, error) {
	var row clientRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT id, public_id, name, secret, created_at FROM clients WHERE public_id = ?`), publicID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select client: %w", err)
	}

	c := &Client{
		ID:        row.ID,
		PublicID:  row.PublicID,
		Name:      row.Name,
		Secret:    row.Secret,
		CreatedAt: db.FromMillis(row.CreatedAt),
	}

	if err := s.db.SelectContext(ctx, &c.RedirectURLs, s.db.Rebind(
		`SELECT url FROM client_redirect_urls WHERE client_id = ? ORDER BY url`), row.ID); err != nil {
		return nil, fmt.Errorf("select redirect urls: %w", err)
	}
	if err := s.db.SelectContext(ctx, &c.AllowedOrigins, s.db.Rebind(
		`SELECT origin FROM client_origins WHERE client_id = ? ORDER BY origin`), row.ID); err != nil {
		return nil, fmt.Errorf("select origins: %w", err)
	}

	return c, nil
}

func (s *SQLStore) Create(ctx context.Context, c *Client) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertClient(ctx, tx, c); err != nil {
		return err
	}
	return tx.Commit()
}

func insertClient(ctx context.Context, tx *sqlx.Tx, c *Client) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO clients (id, public_id, name, secret, created_at) VALUES (?, ?, ?, ?, ?)`),
		c.ID, c.PublicID, c.Name, c.Secret, db.ToMillis(c.CreatedAt))
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("client %s: %w", c.PublicID, auth.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}

	for _, u := range c.RedirectURLs {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO client_redirect_urls (client_id, url) VALUES (?, ?)`), c.ID, u); err != nil {
			return fmt.Errorf("insert redirect url: %w", err)
		}
	}
	for _, o := range c.AllowedOrigins {
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO client_origins (client_id, origin) VALUES (?, ?)`), c.ID, o); err != nil {
			return fmt.Errorf("insert origin: %w", err)
		}
	}
	return nil
}
