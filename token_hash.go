package taskboard

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Prefixes of the opaque secrets handed out by this service.
const (
	APIKeyPrefix       = "tm_"
	AccessTokenPrefix  = "mcp_"
	ClientIDPrefix     = "client_"
	ClientSecretPrefix = "secret_"
)

// HashToken returns the hex SHA-256 digest under which a secret is stored.
func HashToken(token string) string {
	hasher := sha256.New()
	hasher.Write([]byte(token))
	hashedBytes := hasher.Sum(nil)
	return hex.EncodeToString(hashedBytes)
}

// GenerateSecret returns prefix followed by 32 random bytes in unpadded base64url.
func GenerateSecret(prefix string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(b), nil
}
