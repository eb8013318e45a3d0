package accounts

import (
	"crypto/rand"
	"encoding/hex"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultTokenBytes is the entropy of generated confirmation codes and reset tokens
const DefaultTokenBytes = 32

// minTokenBytes keeps generated tokens at or above 128 bits
const minTokenBytes = 16

// TokenGenerator produces opaque one-time tokens
type TokenGenerator func() (string, error)

// GenerateToken returns a hex encoded token with DefaultTokenBytes of entropy
func GenerateToken() (string, error) {
	return GenerateTokenWithSize(DefaultTokenBytes)
}

// GenerateTokenWithSize returns a hex encoded token read from crypto/rand.
// Sizes below 16 bytes are raised to 16.
func GenerateTokenWithSize(size int) (string, error) {
	if size < minTokenBytes {
		size = minTokenBytes
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read random bytes for token")
	}

	return hex.EncodeToString(buf), nil
}

func tokenGeneratorWithSize(size int) TokenGenerator {
	return func() (string, error) {
		return GenerateTokenWithSize(size)
	}
}
