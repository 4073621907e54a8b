package random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Random provides session secrets and can be mocked for testing
type Random interface {
	// Hex returns n random bytes, hex encoded
	Hex(n int) (string, error)
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Hex returns n bytes from crypto/rand as 2n hex characters
func (r *CryptoRandom) Hex(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
