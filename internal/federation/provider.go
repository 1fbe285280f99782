// Package federation signs users in through an external OAuth2 identity provider.
package federation

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// Login failures. The callback answers 502 on the first two.
var (
	ErrExchangeCodeFailed    = errors.New("login provider rejected the authorization code")
	ErrFetchUserInfoFailed   = errors.New("login provider returned no usable profile")
	ErrProviderMisconfigured = errors.New("login provider client id and secret are required")
)

// ExternalUserInfo holds standardized user information retrieved from an external OAuth2 provider.
type ExternalUserInfo struct {
	ProviderUserID string // Unique ID of the user within the external provider
	Email          string
	Name           string
	Username       string
	PictureURL     string
}

// SubjectID is the local user id derived from the provider subject, e.g. "github:42".
func (u *ExternalUserInfo) SubjectID(provider string) string {
	return provider + ":" + u.ProviderUserID
}

// DisplayName prefers the full name and falls back to the username.
func (u *ExternalUserInfo) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// OAuth2Provider is an external identity provider used for interactive login.
type OAuth2Provider interface {
	// Name returns the unique identifier for the provider (e.g. "github").
	Name() string

	// AuthCodeURL generates the URL the user is redirected to. state protects against CSRF.
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string

	// ExchangeCode exchanges an authorization code for an OAuth2 token.
	ExchangeCode(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)

	// FetchUserInfo uses an access token to retrieve the user's profile.
	FetchUserInfo(ctx context.Context, token *oauth2.Token) (*ExternalUserInfo, error)
}
