// Package authutil contains helpers shared by the token and sign-in flows.
package authutil

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// DefaultTokenBytes is the entropy of access tokens.
const DefaultTokenBytes = 48

// GenerateToken returns n random bytes encoded as URL-safe base64.
func GenerateToken(n int) (string, error) {
	tokenBytes := make([]byte, n)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(tokenBytes), nil
}
