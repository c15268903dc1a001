package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identity-broker/internal/auth"
)

type stubProvider struct{ kind auth.Provider }

func (s stubProvider) Kind() auth.Provider { return s.kind }
func (s stubProvider) AuthCodeURL(_, _ string) string { return "https://idp/auth" }
func (s stubProvider) ExchangeCode(context.Context, string, string) (*auth.Identity, error) {
	return &auth.Identity{Provider: s.kind}, nil
}

func TestRegistryDispatch(t *testing.T) {
	t.Parallel()
	r := &Registry{Google: stubProvider{auth.ProviderGoogle}}

	p, err := r.Get(auth.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, auth.ProviderGoogle, p.Kind())

	_, err = r.Get(auth.ProviderFacebook)
	assert.ErrorIs(t, err, auth.ErrProviderNotConfigured)

	_, err = r.Get(auth.ProviderLocal)
	assert.ErrorIs(t, err, auth.ErrUnknownProvider)

	_, err = r.Get(auth.Provider("github"))
	assert.ErrorIs(t, err, auth.ErrUnknownProvider)

	assert.Equal(t, []auth.Provider{auth.ProviderGoogle}, r.Enabled())
}
