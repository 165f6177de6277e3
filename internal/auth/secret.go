package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateSecret returns n cryptographically secure random bytes encoded
// as standard base64. 32 bytes yields a 44-character string.
func GenerateSecret(n int) (string, error) {
	const op = "auth.GenerateSecret"

	if n <= 0 {
		return "", fmt.Errorf("%s: byte length must be positive, got %d", op, n)
	}

	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return base64.StdEncoding.EncodeToString(b), nil
}
