// Package secrets generates opaque random tokens.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Generate returns a URL-safe random token with 256 bits of entropy.
// Used for status-check tokens handed to applicants; the token is a
// lookup key, not a credential, so it is stored as-is.
func Generate() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
