package federation

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"identity-broker/internal/auth"
)

// stateClaims is the wire form of the pending state. Short keys keep the
// provider redirect URL small.
type stateClaims struct {
	ClientID    string `json:"cid,omitempty"`
	RedirectURL string `json:"rurl,omitempty"`
	Nonce       string `json:"nonce"`
	Provider    string `json:"prv"`
	jwt.RegisteredClaims
}

// StateCodec seals a PendingState into a signed, expiring state value.
type StateCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewStateCodec(secret []byte, ttl time.Duration) *StateCodec {
	return &StateCodec{secret: secret, ttl: ttl, now: time.Now}
}

func (c *StateCodec) Encode(kind auth.Provider, pending auth.PendingState) (string, error) {
	if pending.Nonce == "" {
		return "", errors.New("state: nonce is required")
	}

	now := c.now().UTC()
	claims := stateClaims{
		ClientID:    pending.TargetClientID,
		RedirectURL: pending.TargetRedirectURL,
		Nonce:       pending.Nonce,
		Provider:    kind.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("state: sign: %w", err)
	}
	return s, nil
}

// Decode verifies raw and returns the pending state it carries. Every
// failure wraps auth.ErrStateInvalid.
func (c *StateCodec) Decode(kind auth.Provider, raw string) (auth.PendingState, error) {
	if raw == "" {
		return auth.PendingState{}, fmt.Errorf("%w: missing", auth.ErrStateInvalid)
	}

	var claims stateClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return auth.PendingState{}, fmt.Errorf("%w: %v", auth.ErrStateInvalid, err)
	}
	if claims.Provider != kind.String() {
		return auth.PendingState{}, fmt.Errorf("%w: issued for %q", auth.ErrStateInvalid, claims.Provider)
	}
	if claims.Nonce == "" {
		return auth.PendingState{}, fmt.Errorf("%w: missing nonce", auth.ErrStateInvalid)
	}

	return auth.PendingState{
		TargetClientID:    claims.ClientID,
		TargetRedirectURL: claims.RedirectURL,
		Nonce:             claims.Nonce,
	}, nil
}
