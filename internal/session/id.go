package session

import (
	"fmt"

	"identity-broker/internal/utils"
)

const idBytes = 32 // 256 bits

// GenerateID generates a cryptographically secure session ID.
func GenerateID() (string, error) {
	id, err := utils.RandomString(idBytes)
	if err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return id, nil
}
