package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// SecretHasher hashes and checks client secrets.
type SecretHasher interface {
	Hash(secret string) (string, error)
	Verify(hashed, secret string) error
}

// BcryptSecretHasher implements SecretHasher using bcrypt.
type BcryptSecretHasher struct {
	Cost int
}

// NewBcryptSecretHasher creates a new BcryptSecretHasher.
// Default cost is bcrypt.DefaultCost if cost <= 0.
func NewBcryptSecretHasher(cost int) *BcryptSecretHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptSecretHasher{Cost: cost}
}

// Hash generates a bcrypt hash for the given secret.
func (h *BcryptSecretHasher) Hash(secret string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(secret), h.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash generation failed: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify returns nil when secret matches hashed.
func (h *BcryptSecretHasher) Verify(hashed, secret string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(secret))
}

var _ SecretHasher = (*BcryptSecretHasher)(nil)
