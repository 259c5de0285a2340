package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenKeyLength is the length of a generated key in hex characters.
const TokenKeyLength = 40

// GenerateTokenKey returns a new random, opaque token key: 20 bytes from the
// OS CSPRNG, hex encoded.
func GenerateTokenKey() (string, error) {
	buf := make([]byte, TokenKeyLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generating token key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
