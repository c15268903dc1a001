package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"local", "google", "facebook", "keycloak"} {
		p, err := ParseProvider(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.String())
	}

	_, err := ParseProvider("github")
	require.ErrorIs(t, err, ErrUnknownProvider)

	_, err = ParseProvider("Google")
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestProviderFederated(t *testing.T) {
	t.Parallel()

	assert.False(t, ProviderLocal.Federated())
	assert.False(t, Provider("github").Federated())
	assert.False(t, Provider("").Federated())
	for _, p := range FederatedProviders {
		assert.True(t, p.Federated(), p)
	}
}
