package client

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identity-broker/internal/auth"
	"identity-broker/internal/db"
)

func newSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	d, err := db.Open(context.Background(), db.DriverSQLite, filepath.Join(t.TempDir(), "clients.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	require.NoError(t, d.Migrate(context.Background()))
	return NewSQLStore(d)
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sql":    newSQLStore(t),
	}
}

func TestIsRedirectAllowedExactMatchOnly(t *testing.T) {
	t.Parallel()

	c := &Client{RedirectURLs: []string{"https://app.example.com/cb"}}

	tests := []struct {
		url  string
		want bool
	}{
		{"https://app.example.com/cb", true},
		{"https://app.example.com/cb/", false},
		{"http://app.example.com/cb", false},
		{"https://evil.app.example.com/cb", false},
		{"https://app.example.com/cb?x=1", false},
		{"https://app.example.com/c", false},
		{"HTTPS://app.example.com/cb", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRedirectAllowed(c, tt.url), tt.url)
	}
	assert.False(t, IsRedirectAllowed(nil, "https://app.example.com/cb"))
}

func TestRegistryRegisterAndValidate(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			reg := NewRegistry(store)

			c, err := reg.Register(ctx, " Demo App ", []string{"https://app"}, []string{"https://app/cb", " https://app/cb ", ""})
			require.NoError(t, err)
			assert.Equal(t, "Demo App", c.Name)
			assert.Len(t, c.Secret, 64)
			assert.Equal(t, []string{"https://app/cb"}, c.RedirectURLs)

			got, err := reg.Validate(ctx, c.PublicID, "https://app/cb")
			require.NoError(t, err)
			assert.Equal(t, c.ID, got.ID)
			assert.Equal(t, []string{"https://app"}, got.AllowedOrigins)
			assert.True(t, c.CreatedAt.Equal(got.CreatedAt))

			_, err = reg.Validate(ctx, c.PublicID, "https://app/cb/")
			assert.ErrorIs(t, err, auth.ErrInvalidRedirect)

			_, err = reg.Validate(ctx, "missing", "https://app/cb")
			assert.ErrorIs(t, err, auth.ErrUnknownClient)

			_, err = reg.Lookup(ctx, "")
			assert.ErrorIs(t, err, auth.ErrUnknownClient)
		})
	}
}

func TestRegistryRegisterRequiresRedirect(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(NewMemoryStore())

	_, err := reg.Register(context.Background(), "x", nil, []string{" "})
	require.Error(t, err)

	_, err = reg.Register(context.Background(), "", nil, []string{"https://a"})
	require.Error(t, err)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, &Client{ID: "1", PublicID: "c1", RedirectURLs: []string{"https://a"}}))

	c, err := store.ByPublicID(ctx, "c1")
	require.NoError(t, err)
	c.RedirectURLs[0] = "https://evil"

	again, err := store.ByPublicID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a"}, again.RedirectURLs)

	err = store.Create(ctx, &Client{ID: "2", PublicID: "c1"})
	assert.ErrorIs(t, err, auth.ErrAlreadyExists)
}
