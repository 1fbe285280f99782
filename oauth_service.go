package taskboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/internal/audit"
	"go.pilab.hu/taskboard/internal/metrics"
	"go.pilab.hu/taskboard/log"
)

// OAuthService issues PKCE-bound authorization codes and redeems them for access tokens.
type OAuthService struct {
	codes  domain.AuthCodeRepository
	tokens domain.TokenRepository
	config *ProviderConfig
	logger log.Logger
	now    func() time.Time
}

// NewOAuthService creates a new OAuthService.
func NewOAuthService(
	codes domain.AuthCodeRepository,
	tokens domain.TokenRepository,
	config *ProviderConfig,
	logger log.Logger,
) *OAuthService {
	if config == nil {
		config = NewDefaultConfig("http://localhost:8080")
	}
	return &OAuthService{
		codes:  codes,
		tokens: tokens,
		config: config,
		logger: log.OrNop(logger),
		now:    time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (s *OAuthService) SetClock(now func() time.Time) { s.now = now }

// IssueRequest holds the already validated parameters of an authorization request.
type IssueRequest struct {
	ClientID      string
	UserID        string
	ProjectID     string // empty when the user owns no project yet
	RedirectURI   string
	CodeChallenge string
	Scope         string
}

// IssueCode persists a fresh single-use code and returns it.
// Client, session and PKCE method checks happen before this call.
func (s *OAuthService) IssueCode(ctx context.Context, req IssueRequest) (string, error) {
	if req.ClientID == "" || req.UserID == "" || req.RedirectURI == "" || req.CodeChallenge == "" {
		return "", fmt.Errorf("%w: incomplete authorization request", domain.ErrInvalidInput)
	}

	code, err := GenerateSecret("")
	if err != nil {
		return "", err
	}

	scope := req.Scope
	if scope == "" {
		scope = s.config.Scope
	}

	now := s.now()
	authCode := &domain.AuthCode{
		Code:          code,
		ClientID:      req.ClientID,
		UserID:        req.UserID,
		ProjectID:     req.ProjectID,
		RedirectURI:   req.RedirectURI,
		CodeChallenge: req.CodeChallenge,
		Scope:         scope,
		ExpiresAt:     now.Add(s.config.AuthCodeTTL),
		Used:          false,
		CreatedAt:     now,
	}
	if err := s.codes.SaveAuthCode(ctx, authCode); err != nil {
		return "", fmt.Errorf("failed to save auth code: %w", err)
	}

	metrics.AuthCodesIssuedTotal.Inc()
	audit.Log(audit.ActionCodeIssued, req.UserID, req.ProjectID, req.ClientID, "", nil)

	return code, nil
}

// ExchangeRequest holds the parameters of a token request.
type ExchangeRequest struct {
	Code         string
	ClientID     string
	CodeVerifier string
	RedirectURI  string
}

// TokenGrant is the result of a successful exchange. AccessToken is never stored.
type TokenGrant struct {
	AccessToken string
	UserID      string
	ProjectID   string
	Scope       string
	ExpiresIn   int
	ExpiresAt   time.Time
}

// Exchange redeems a code for an access token.
//
// The code is consumed before any other check, so a request that fails on
// client, redirect URI or verifier burns the code and the flow must restart.
func (s *OAuthService) Exchange(ctx context.Context, req ExchangeRequest) (*TokenGrant, error) {
	now := s.now()

	authCode, err := s.codes.RedeemAuthCode(ctx, req.Code, now)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("failed to redeem auth code: %w", err)
		}
		return nil, s.reject(ctx, req, s.classifyUnredeemable(ctx, req.Code, now))
	}

	if authCode.ClientID != req.ClientID {
		return nil, s.reject(ctx, req, ErrClientMismatch)
	}
	if authCode.RedirectURI != req.RedirectURI {
		return nil, s.reject(ctx, req, ErrRedirectMismatch)
	}
	if !VerifyPKCE(authCode.CodeChallenge, req.CodeVerifier) {
		return nil, s.reject(ctx, req, ErrPKCEMismatch)
	}

	raw, err := GenerateSecret(AccessTokenPrefix)
	if err != nil {
		return nil, err
	}
	token := &domain.AccessToken{
		TokenHash: HashToken(raw),
		ClientID:  authCode.ClientID,
		UserID:    authCode.UserID,
		ProjectID: authCode.ProjectID,
		Scope:     authCode.Scope,
		ExpiresAt: now.Add(s.config.AccessTokenTTL),
		CreatedAt: now,
	}
	if err := s.tokens.SaveAccessToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}

	metrics.TokensIssuedTotal.Inc()
	audit.Log(audit.ActionCodeRedeemed, authCode.UserID, authCode.ProjectID, authCode.ClientID, "", nil)

	return &TokenGrant{
		AccessToken: raw,
		UserID:      authCode.UserID,
		ProjectID:   authCode.ProjectID,
		Scope:       authCode.Scope,
		ExpiresIn:   int(s.config.AccessTokenTTL.Seconds()),
		ExpiresAt:   token.ExpiresAt,
	}, nil
}

// classifyUnredeemable looks at a code the atomic update did not match.
// The result is for logs and metrics only; callers see invalid_grant either way.
func (s *OAuthService) classifyUnredeemable(ctx context.Context, code string, now time.Time) error {
	if code == "" {
		return ErrUnknownCredential
	}
	existing, err := s.codes.GetAuthCode(ctx, code)
	switch {
	case err != nil:
		return ErrUnknownCredential
	case existing.Used:
		return ErrCodeReplayed
	case existing.IsExpired(now):
		return ErrExpiredCredential
	default:
		// Lost a race that has since committed.
		return ErrCodeReplayed
	}
}

func (s *OAuthService) reject(ctx context.Context, req ExchangeRequest, reason error) error {
	label := rejectionLabel(reason)
	metrics.ExchangeRejectedTotal.WithLabelValues(label).Inc()
	s.logger.Warn(ctx, "Token exchange rejected", map[string]interface{}{
		"client_id": req.ClientID,
		"reason":    label,
	})
	err := grantError(reason)
	audit.Log(audit.ActionExchangeRejected, req.ClientID, "", "", label, err)
	return err
}

func rejectionLabel(reason error) string {
	switch {
	case errors.Is(reason, ErrUnknownCredential):
		return "unknown_code"
	case errors.Is(reason, ErrExpiredCredential):
		return "expired"
	case errors.Is(reason, ErrCodeReplayed):
		return "replayed"
	case errors.Is(reason, ErrClientMismatch):
		return "client_mismatch"
	case errors.Is(reason, ErrRedirectMismatch):
		return "redirect_mismatch"
	case errors.Is(reason, ErrPKCEMismatch):
		return "pkce_mismatch"
	}
	return "other"
}
