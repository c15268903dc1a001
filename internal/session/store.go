package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExists   = errors.New("session id already in use")
)

// Session maps an opaque handle to a principal. It stores only identity
// pointers, never credentials.
type Session struct {
	SessionID         string    `json:"session_id"`
	UserID            string    `json:"user_id"`
	CreatedAt         time.Time `json:"created_at"`
	AbsoluteExpiresAt time.Time `json:"absolute_expires_at"`
	// ExpiresAt is the effective expiry; with an idle timeout it slides
	// forward but never past AbsoluteExpiresAt.
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists sessions.
//
// Create must fail with ErrExists rather than overwrite a live handle.
// Update must fail with ErrNotFound rather than recreate a deleted handle.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, sessionID string) error
}
