package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"identity-broker/internal/auth"
	"identity-broker/internal/db"
)

type SQLStore struct {
	db  *db.DB
	now func() time.Time
}

func NewSQLStore(d *db.DB) *SQLStore {
	return &SQLStore{db: d, now: time.Now}
}

type userRow struct {
	ID              string         `db:"id"`
	Username        string         `db:"username"`
	Email           string         `db:"email"`
	PasswordHash    sql.NullString `db:"password_hash"`
	DisplayImageURL sql.NullString `db:"display_image_url"`
	CreatedAt       int64          `db:"created_at"`
}

type identityRow struct {
	Provider       string `db:"provider"`
	ProviderUserID string `db:"provider_user_id"`
}

const userColumns = `u.id, u.username, u.email, u.password_hash, u.display_image_url, u.created_at`

func (s *SQLStore) ByID(ctx context.Context, id string) (*Record, error) {
	return s.one(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = ?`, id)
}

func (s *SQLStore) ByEmail(ctx context.Context, email string) (*Record, error) {
	return s.one(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = ?`, email)
}

func (s *SQLStore) ByFederatedIdentity(ctx context.Context, provider auth.Provider, providerUserID string) (*Record, error) {
	return s.one(ctx, `SELECT `+userColumns+`
FROM users u
JOIN identities i ON i.user_id = u.id
WHERE i.provider = ? AND i.provider_user_id = ?`, provider.String(), providerUserID)
}

func (s *SQLStore) one(ctx context.Context, query string, args ...any) (*Record, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}

	var ids []identityRow
	if err := s.db.SelectContext(ctx, &ids, s.db.Rebind(
		`SELECT provider, provider_user_id FROM identities WHERE user_id = ?`), row.ID); err != nil {
		return nil, fmt.Errorf("select identities: %w", err)
	}

	rec := &Record{
		Principal: Principal{
			ID:                  row.ID,
			Username:            row.Username,
			Email:               row.Email,
			DisplayImageURL:     row.DisplayImageURL.String,
			FederatedIdentities: make(map[auth.Provider]string, len(ids)),
			CreatedAt:           db.FromMillis(row.CreatedAt),
		},
		PasswordHash: row.PasswordHash.String,
	}
	for _, i := range ids {
		rec.FederatedIdentities[auth.Provider(i.Provider)] = i.ProviderUserID
	}
	return rec, nil
}

func (s *SQLStore) Create(ctx context.Context, rec *Record) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created := db.ToMillis(rec.CreatedAt)
	_, err = tx.ExecContext(ctx, tx.Rebind(`
INSERT INTO users (id, username, email, password_hash, display_image_url, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.Username, rec.Email, nullable(rec.PasswordHash), nullable(rec.DisplayImageURL), created, created)
	if err != nil {
		return mapWriteErr("insert user", err)
	}

	for p, sub := range rec.FederatedIdentities {
		if err := insertIdentity(ctx, tx, rec.ID, p, sub, created); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return mapWriteErr("commit user", err)
	}
	return nil
}

func (s *SQLStore) LinkIdentity(ctx context.Context, userID string, provider auth.Provider, providerUserID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := db.ToMillis(s.now())
	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET updated_at = ? WHERE id = ?`), now, userID)
	if err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return auth.ErrNotFound
	}

	if err := insertIdentity(ctx, tx, userID, provider, providerUserID, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapWriteErr("commit identity", err)
	}
	return nil
}

func insertIdentity(ctx context.Context, tx *sqlx.Tx, userID string, provider auth.Provider, providerUserID string, at int64) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`
INSERT INTO identities (user_id, provider, provider_user_id, created_at)
VALUES (?, ?, ?, ?)`), userID, provider.String(), providerUserID, at)
	if err != nil {
		return mapWriteErr("insert identity", err)
	}
	return nil
}

func mapWriteErr(op string, err error) error {
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, auth.ErrAlreadyExists)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
