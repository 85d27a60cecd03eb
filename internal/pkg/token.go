package pkg

import (
	"crypto/rand"
	"fmt"
)

const (
	tokenLength   = 8
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateToken - generates an opaque 8-character credential. The
// length is part of the wire contract, so entropy comes from the
// alphabet and crypto/rand; the storage layer stays the final
// authority on uniqueness.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}

	return string(buf), nil
}

// GenerateTokenPair - mints a fresh access/refresh pair.
func GenerateTokenPair() (string, string, error) {
	access, err := GenerateToken()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, err := GenerateToken()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return access, refresh, nil
}
