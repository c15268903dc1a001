package keycloak

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebase(t *testing.T) {
	t.Parallel()

	got, err := Rebase("http://keycloak:8080/realms/broker/protocol/openid-connect/auth", "https://sso.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://sso.example.com/realms/broker/protocol/openid-connect/auth", got)

	_, err = Rebase("http://keycloak:8080/x", "not a url")
	require.Error(t, err)
}
