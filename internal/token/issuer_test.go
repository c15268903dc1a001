package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte(strings.Repeat("k", 32))

func alice() Subject {
	return Subject{ID: "u1", Username: "alice", Email: "alice@x.com"}
}

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()
	iss := NewIssuer(secret, "identity-broker", time.Hour)

	raw, err := iss.Issue(alice(), "c1")
	require.NoError(t, err)

	claims, err := iss.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "c1", claims.ClientID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@x.com", claims.Email)
	assert.Equal(t, "identity-broker", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"c1"}, claims.Audience)
	assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestVerifyExpiredNoGrace(t *testing.T) {
	t.Parallel()
	now := time.Now()
	iss := NewIssuer(secret, "identity-broker", time.Hour).WithClock(func() time.Time { return now })

	raw, err := iss.Issue(alice(), "c1")
	require.NoError(t, err)

	issuedAt := now.Truncate(time.Second)
	later := iss.WithClock(func() time.Time { return issuedAt.Add(time.Hour + time.Second) })
	_, err = later.Verify(raw)
	assert.ErrorIs(t, err, ErrExpired)

	justBefore := iss.WithClock(func() time.Time { return issuedAt.Add(time.Hour - time.Second) })
	_, err = justBefore.Verify(raw)
	require.NoError(t, err)
}

func TestVerifyRejectsForgeries(t *testing.T) {
	t.Parallel()
	iss := NewIssuer(secret, "identity-broker", time.Hour)

	raw, err := iss.Issue(alice(), "c1")
	require.NoError(t, err)

	other := NewIssuer([]byte(strings.Repeat("z", 32)), "identity-broker", time.Hour)
	forged, err := other.Issue(alice(), "c1")
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x" + "." + parts[2]

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "identity-broker",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "identity-broker",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(secret)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "identity-broker"},
	}).SignedString(secret)
	require.NoError(t, err)

	wrongIssuer, err := NewIssuer(secret, "someone-else", time.Hour).Issue(alice(), "c1")
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"wrong secret": forged,
		"tampered":     tampered,
		"alg none":     none,
		"alg hs512":    hs512,
		"no exp":       noExp,
		"wrong issuer": wrongIssuer,
		"garbage":      "not-a-token",
		"empty":        "",
	} {
		_, err := iss.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalid, name)
	}
}

func TestIssueRequiresSubjectAndClient(t *testing.T) {
	t.Parallel()
	iss := NewIssuer(secret, "identity-broker", time.Hour)

	_, err := iss.Issue(Subject{}, "c1")
	require.Error(t, err)
	_, err = iss.Issue(alice(), "")
	require.Error(t, err)
}
