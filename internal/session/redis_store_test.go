package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newRedisStore(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	s := Session{
		SessionID:         "abc",
		UserID:            "u1",
		CreatedAt:         now,
		AbsoluteExpiresAt: now.Add(time.Hour),
		ExpiresAt:         now.Add(time.Hour),
	}
	require.NoError(t, store.Create(ctx, s))
	assert.True(t, mr.Exists("session:abc"))
	assert.Greater(t, mr.TTL("session:abc"), 59*time.Minute)

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.ExpiresAt.Equal(s.ExpiresAt))

	assert.ErrorIs(t, store.Create(ctx, s), ErrExists)

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreUpdateDoesNotResurrect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newRedisStore(t)

	s := Session{SessionID: "abc", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Create(ctx, s))

	s.ExpiresAt = time.Now().Add(2 * time.Hour)
	require.NoError(t, store.Update(ctx, s))
	assert.Greater(t, mr.TTL("session:abc"), 119*time.Minute)

	require.NoError(t, store.Delete(ctx, "abc"))
	assert.ErrorIs(t, store.Update(ctx, s), ErrNotFound)
	assert.False(t, mr.Exists("session:abc"))
}

func TestRedisStoreKeyExpires(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, store.Create(ctx, Session{SessionID: "abc", UserID: "u1", ExpiresAt: time.Now().Add(time.Minute)}))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreRejectsIncomplete(t *testing.T) {
	t.Parallel()
	store, _ := newRedisStore(t)

	err := store.Create(context.Background(), Session{SessionID: "abc", ExpiresAt: time.Now().Add(time.Minute)})
	require.Error(t, err)

	err = store.Create(context.Background(), Session{SessionID: "abc", UserID: "u1", ExpiresAt: time.Now().Add(-time.Minute)})
	require.Error(t, err)
}

func TestManagerOverRedis(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newRedisStore(t)
	m := NewManager(store, Config{TTL: time.Hour, IdleTimeout: 30 * time.Minute})

	s, err := m.Create(ctx, "u1")
	require.NoError(t, err)

	got, err := m.Resolve(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, s.SessionID, got.SessionID)

	require.NoError(t, m.Destroy(ctx, s.SessionID))
	_, err = m.Resolve(ctx, s.SessionID)
	require.Error(t, err)
}
