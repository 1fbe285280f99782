package taskboard

import (
	"crypto/subtle"

	"golang.org/x/oauth2"
)

// CodeChallengeMethodS256 is the only PKCE transform accepted.
const CodeChallengeMethodS256 = "S256"

// S256Challenge computes base64url(SHA-256(verifier)).
func S256Challenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// VerifyPKCE reports whether verifier hashes to the stored challenge.
// The comparison takes the same time for every mismatching challenge of equal length.
func VerifyPKCE(challenge, verifier string) bool {
	if challenge == "" || verifier == "" {
		return false
	}
	computed := S256Challenge(verifier)
	return subtle.ConstantTimeCompare([]byte(challenge), []byte(computed)) == 1
}
