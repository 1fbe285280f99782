package cache

import (
	"context"
	"errors"
	"time"
)

// ErrStateNotFound is returned for unknown, expired or already consumed login states.
var ErrStateNotFound = errors.New("login state not found")

// DefaultLoginStateTTL bounds how long a user may take at the identity provider.
const DefaultLoginStateTTL = 10 * time.Minute

// LoginState is what the login redirect must hand back to the callback.
type LoginState struct {
	CallbackURL  string `json:"callback_url"`
	CodeVerifier string `json:"code_verifier"`
}

// LoginStateStore keeps interactive login state between the redirect and the callback.
// Consume returns a state at most once.
type LoginStateStore interface {
	Put(ctx context.Context, state string, value LoginState, ttl time.Duration) error
	Consume(ctx context.Context, state string) (*LoginState, error)
}
