package internal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

// DefaultSecretBytes is the secret size used when a caller passes n <= 0.
const DefaultSecretBytes = 32

// MaxSecretBytes bounds secret generation requests.
const MaxSecretBytes = 1024

// NewSecret returns n cryptographically random bytes.
func NewSecret(n int) ([]byte, error) {
	if n <= 0 {
		n = DefaultSecretBytes
	}
	if n > MaxSecretBytes {
		return nil, errors.New("secret size too large")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// NewSecretHex returns n random bytes as 2n lowercase hex characters.
func NewSecretHex(n int) (string, error) {
	raw, err := NewSecret(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// NewTokenID returns a random version 4 UUID for use as a jti.
func NewTokenID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
