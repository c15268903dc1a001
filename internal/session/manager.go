package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"identity-broker/internal/auth"
	"identity-broker/internal/logger"
)

// Manager creates, resolves and destroys sessions.
type Manager struct {
	store Store
	ttl   time.Duration
	idle  time.Duration
	now   func() time.Time
}

type Config struct {
	// TTL is the absolute lifetime of a session.
	TTL time.Duration
	// IdleTimeout, when positive, expires a session that has not been
	// resolved for this long.
	IdleTimeout time.Duration
}

func NewManager(store Store, cfg Config) *Manager {
	return &Manager{
		store: store,
		ttl:   cfg.TTL,
		idle:  cfg.IdleTimeout,
		now:   time.Now,
	}
}

// Create allocates a fresh handle for userID. Handles are never reused.
func (m *Manager) Create(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, errors.New("session: missing user id")
	}

	now := m.now().UTC()
	abs := now.Add(m.ttl)

	for attempt := 0; attempt < 2; attempt++ {
		id, err := GenerateID()
		if err != nil {
			return nil, err
		}
		s := Session{
			SessionID:         id,
			UserID:            userID,
			CreatedAt:         now,
			AbsoluteExpiresAt: abs,
			ExpiresAt:         m.window(now, abs),
		}

		err = m.store.Create(ctx, s)
		if errors.Is(err, ErrExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		return &s, nil
	}
	return nil, errors.New("session: could not allocate a unique id")
}

// Resolve returns the live session for handle. Unknown and expired handles
// both return auth.ErrUnauthenticated; an expired handle is deleted.
func (m *Manager) Resolve(ctx context.Context, handle string) (*Session, error) {
	if handle == "" {
		return nil, auth.ErrUnauthenticated
	}

	s, err := m.store.Get(ctx, handle)
	if errors.Is(err, ErrNotFound) {
		return nil, auth.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	now := m.now().UTC()
	if !now.Before(s.ExpiresAt) {
		if err := m.store.Delete(ctx, handle); err != nil {
			logger.Warn("failed to delete expired session", map[string]any{"error": err})
		}
		return nil, auth.ErrUnauthenticated
	}

	if m.idle > 0 {
		next := m.window(now, s.AbsoluteExpiresAt)
		if next.After(s.ExpiresAt) {
			s.ExpiresAt = next
			err := m.store.Update(ctx, *s)
			if errors.Is(err, ErrNotFound) {
				return nil, auth.ErrUnauthenticated
			}
			if err != nil {
				return nil, fmt.Errorf("extend session: %w", err)
			}
		}
	}

	return s, nil
}

// Destroy terminates the session. Destroying an unknown handle is not an error.
func (m *Manager) Destroy(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}
	if err := m.store.Delete(ctx, handle); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (m *Manager) window(now, abs time.Time) time.Time {
	if m.idle <= 0 {
		return abs
	}
	if exp := now.Add(m.idle); exp.Before(abs) {
		return exp
	}
	return abs
}
