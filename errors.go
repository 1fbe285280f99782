package taskboard

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedCredential is returned before any lookup when a credential has the wrong shape.
	ErrMalformedCredential = errors.New("malformed credential")
	// ErrUnknownCredential covers unknown and revoked credentials alike.
	ErrUnknownCredential = errors.New("unknown credential")
	ErrExpiredCredential = errors.New("credential expired")

	// ErrInvalidGrant wraps every reason a code exchange is refused.
	ErrInvalidGrant     = errors.New("invalid grant")
	ErrCodeReplayed     = errors.New("authorization code already used")
	ErrClientMismatch   = errors.New("client_id does not match authorization code")
	ErrRedirectMismatch = errors.New("redirect_uri does not match authorization code")
	ErrPKCEMismatch     = errors.New("code_verifier does not match code_challenge")
)

// grantError tags reason as an exchange rejection.
func grantError(reason error) error {
	return fmt.Errorf("%w: %w", ErrInvalidGrant, reason)
}
