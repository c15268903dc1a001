package identity

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 8
	// bcrypt ignores everything after 72 bytes.
	maxPasswordLen = 72
)

var ErrWeakPassword = errors.New("password must be between 8 and 72 bytes")

type hasher struct {
	cost  int
	dummy []byte
}

func newHasher(cost int) *hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("identity-broker-dummy-password"), cost)
	return &hasher{cost: cost, dummy: dummy}
}

// Hash hashes a plaintext password using bcrypt.
func (h *hasher) Hash(password string) (string, error) {
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return "", ErrWeakPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compares password with hash. An empty hash is compared against a
// dummy so that every failure costs one bcrypt comparison.
func (h *hasher) Verify(hash, password string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
