package taskboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.pilab.hu/taskboard/domain"
)

// TokenClaims is what a valid bearer token resolves to.
type TokenClaims struct {
	TokenHash string
	ClientID  string
	UserID    string
	ProjectID string // empty for tokens issued before the user had a project
	Scope     string
	ExpiresAt time.Time
}

// TokenService validates bearer tokens. Validation never writes.
type TokenService struct {
	repo domain.TokenRepository
	now  func() time.Time
}

// NewTokenService creates a new TokenService instance
func NewTokenService(repo domain.TokenRepository) *TokenService {
	return &TokenService{repo: repo, now: time.Now}
}

// SetClock overrides the time source. Tests only.
func (s *TokenService) SetClock(now func() time.Time) { s.now = now }

// Validate resolves a bearer token. A token is valid strictly before its expiry instant.
func (s *TokenService) Validate(ctx context.Context, bearer string) (*TokenClaims, error) {
	if bearer == "" {
		return nil, ErrMalformedCredential
	}

	tokenHash := HashToken(bearer)
	token, err := s.repo.GetAccessToken(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUnknownCredential
		}
		return nil, fmt.Errorf("failed to look up access token: %w", err)
	}

	if !s.now().Before(token.ExpiresAt) {
		return nil, ErrExpiredCredential
	}

	return &TokenClaims{
		TokenHash: tokenHash,
		ClientID:  token.ClientID,
		UserID:    token.UserID,
		ProjectID: token.ProjectID,
		Scope:     token.Scope,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// BindProject points an issued token at another project. Ownership is checked by the caller.
func (s *TokenService) BindProject(ctx context.Context, tokenHash, projectID string) error {
	if err := s.repo.UpdateTokenProject(ctx, tokenHash, projectID); err != nil {
		return fmt.Errorf("failed to bind token to project: %w", err)
	}
	return nil
}
