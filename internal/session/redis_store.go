package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "session:",
	}
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisStore) Create(ctx context.Context, s Session) error {
	if s.SessionID == "" || s.UserID == "" {
		return fmt.Errorf("session: missing session_id or user_id")
	}

	data, ttl, err := encode(s)
	if err != nil {
		return err
	}

	ok, err := r.client.SetNX(ctx, r.key(s.SessionID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("session: create: %w", err)
	}
	if !ok {
		return ErrExists
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	val, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}

	var s Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}

	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.key(sessionID)).Err()
}

// Update rewrites a live session. SET XX keeps a concurrently destroyed
// handle destroyed.
func (r *RedisStore) Update(ctx context.Context, s Session) error {
	if s.SessionID == "" {
		return fmt.Errorf("session: missing session_id")
	}

	if time.Until(s.ExpiresAt) <= 0 {
		if err := r.Delete(ctx, s.SessionID); err != nil {
			return err
		}
		return ErrNotFound
	}

	data, ttl, err := encode(s)
	if err != nil {
		return err
	}

	ok, err := r.client.SetXX(ctx, r.key(s.SessionID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("session: update: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func encode(s Session) ([]byte, time.Duration, error) {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil, 0, fmt.Errorf("session: expires_at must be in the future")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, 0, fmt.Errorf("session: failed to marshal: %w", err)
	}
	return data, ttl, nil
}
