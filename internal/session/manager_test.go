package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identity-broker/internal/auth"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: time.Now().UTC()} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newManager(store Store, cfg Config, clock *fakeClock) *Manager {
	m := NewManager(store, cfg)
	m.now = clock.Now
	return m
}

func TestManagerLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newManager(NewMemoryStore(), Config{TTL: time.Hour}, newFakeClock())

	s, err := m.Create(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, s.SessionID, 43)
	assert.Equal(t, s.AbsoluteExpiresAt, s.ExpiresAt)

	got, err := m.Resolve(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	require.NoError(t, m.Destroy(ctx, s.SessionID))

	_, err = m.Resolve(ctx, s.SessionID)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestManagerHandlesAreUnique(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newManager(NewMemoryStore(), Config{TTL: time.Hour}, newFakeClock())

	a, err := m.Create(ctx, "u1")
	require.NoError(t, err)
	b, err := m.Create(ctx, "u1")
	require.NoError(t, err)

	assert.NotEqual(t, a.SessionID, b.SessionID, "a principal may hold several sessions")
}

func TestManagerExpiredLooksLikeGuest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore()
	m := newManager(store, Config{TTL: time.Hour}, clock)

	s, err := m.Create(ctx, "u1")
	require.NoError(t, err)

	clock.Advance(time.Hour)

	_, errExpired := m.Resolve(ctx, s.SessionID)
	_, errUnknown := m.Resolve(ctx, "never-issued")
	_, errEmpty := m.Resolve(ctx, "")

	assert.ErrorIs(t, errExpired, auth.ErrUnauthenticated)
	assert.Equal(t, errUnknown, errExpired)
	assert.Equal(t, errEmpty, errExpired)

	_, err = store.Get(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrNotFound, "expired handle is cleaned up")
}

func TestManagerIdleTimeoutSlidesUpToAbsolute(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newFakeClock()
	m := newManager(NewMemoryStore(), Config{TTL: time.Hour, IdleTimeout: 20 * time.Minute}, clock)

	s, err := m.Create(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, s.CreatedAt.Add(20*time.Minute), s.ExpiresAt)

	// keep it alive with activity
	for i := 0; i < 5; i++ {
		clock.Advance(15 * time.Minute)
		got, err := m.Resolve(ctx, s.SessionID)
		if s.CreatedAt.Add(time.Hour).After(clock.Now()) {
			require.NoError(t, err, "step %d", i)
			assert.False(t, got.ExpiresAt.After(got.AbsoluteExpiresAt))
		} else {
			assert.ErrorIs(t, err, auth.ErrUnauthenticated, "absolute expiry wins at step %d", i)
		}
	}
}

func TestManagerIdleTimeoutExpires(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newFakeClock()
	m := newManager(NewMemoryStore(), Config{TTL: time.Hour, IdleTimeout: 10 * time.Minute}, clock)

	s, err := m.Create(ctx, "u1")
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)
	_, err = m.Resolve(ctx, s.SessionID)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestMemoryStoreDoesNotResurrect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()
	s := Session{SessionID: "h", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}

	require.NoError(t, store.Create(ctx, s))
	assert.ErrorIs(t, store.Create(ctx, s), ErrExists)

	require.NoError(t, store.Delete(ctx, "h"))
	assert.ErrorIs(t, store.Update(ctx, s), ErrNotFound)

	_, err := store.Get(ctx, "h")
	assert.ErrorIs(t, err, ErrNotFound)
}
