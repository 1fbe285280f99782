package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.pilab.hu/taskboard"
	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/internal/audit"
	"go.pilab.hu/taskboard/internal/auth"
	"go.pilab.hu/taskboard/internal/metrics"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MaxRedirectURIs bounds the allow-list of a single client.
	MaxRedirectURIs = 10
	// MaxClientNameLength bounds client_name in runes.
	MaxClientNameLength = 256

	// TokenEndpointAuthMethod is the only method advertised to registered clients.
	TokenEndpointAuthMethod = "client_secret_post"
)

// ErrInvalidClientSecret is returned when a presented client secret does not match.
var ErrInvalidClientSecret = errors.New("invalid client secret")

// ValidationError names the registration field that was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Registration is the dynamic client registration request.
//
//nolint:tagliatelle
type Registration struct {
	ClientName    string   `json:"client_name"`
	RedirectURIs  []string `json:"redirect_uris"`
	GrantTypes    []string `json:"grant_types,omitempty"`
	ResponseTypes []string `json:"response_types,omitempty"`
}

// RegisteredClient is the registration response. ClientSecret is shown only here.
//
//nolint:tagliatelle
type RegisteredClient struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret"`
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at"`
}

// Registry handles dynamic registration and lookup of OAuth clients.
type Registry struct {
	store  domain.ClientRepository
	hasher auth.SecretHasher
	now    func() time.Time
}

// NewRegistry creates a Registry. A nil hasher selects bcrypt at the default cost.
func NewRegistry(store domain.ClientRepository, hasher auth.SecretHasher) *Registry {
	if hasher == nil {
		hasher = auth.NewBcryptSecretHasher(bcrypt.DefaultCost)
	}
	return &Registry{store: store, hasher: hasher, now: time.Now}
}

// Validate checks registration metadata without touching the store.
func (r *Registration) Validate() error {
	name := strings.TrimSpace(r.ClientName)
	if name == "" {
		return &ValidationError{Field: "client_name", Reason: "is required"}
	}
	if len([]rune(name)) > MaxClientNameLength {
		return &ValidationError{Field: "client_name", Reason: fmt.Sprintf("must be at most %d characters", MaxClientNameLength)}
	}
	if len(r.RedirectURIs) == 0 {
		return &ValidationError{Field: "redirect_uris", Reason: "must contain at least one URI"}
	}
	if len(r.RedirectURIs) > MaxRedirectURIs {
		return &ValidationError{Field: "redirect_uris", Reason: fmt.Sprintf("must contain at most %d URIs", MaxRedirectURIs)}
	}
	for i, raw := range r.RedirectURIs {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ValidationError{Field: fmt.Sprintf("redirect_uris[%d]", i), Reason: "must be an absolute URI"}
		}
		if u.Fragment != "" {
			return &ValidationError{Field: fmt.Sprintf("redirect_uris[%d]", i), Reason: "must not contain a fragment"}
		}
	}
	return nil
}

// Register validates and stores a new client.
func (s *Registry) Register(ctx context.Context, reg Registration) (*RegisteredClient, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	clientID, err := taskboard.GenerateSecret(taskboard.ClientIDPrefix)
	if err != nil {
		return nil, err
	}
	secret, err := taskboard.GenerateSecret(taskboard.ClientSecretPrefix)
	if err != nil {
		return nil, err
	}
	secretHash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	cl := &domain.OAuthClient{
		ClientID:     clientID,
		SecretHash:   secretHash,
		Name:         strings.TrimSpace(reg.ClientName),
		RedirectURIs: append([]string(nil), reg.RedirectURIs...),
		CreatedAt:    now,
	}
	if err := s.store.CreateClient(ctx, cl); err != nil {
		return nil, fmt.Errorf("failed to store client: %w", err)
	}

	metrics.ClientsRegisteredTotal.Inc()
	audit.Log(audit.ActionClientRegistered, clientID, "", clientID, cl.Name, nil)

	grantTypes := reg.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = []string{"authorization_code"}
	}
	responseTypes := reg.ResponseTypes
	if len(responseTypes) == 0 {
		responseTypes = []string{"code"}
	}

	return &RegisteredClient{
		ClientID:                clientID,
		ClientSecret:            secret,
		ClientName:              cl.Name,
		RedirectURIs:            cl.RedirectURIs,
		GrantTypes:              grantTypes,
		ResponseTypes:           responseTypes,
		TokenEndpointAuthMethod: TokenEndpointAuthMethod,
		ClientIDIssuedAt:        now.Unix(),
	}, nil
}

// ValidateClient reports whether the client exists and redirectURI is an exact member of its allow-list.
func (s *Registry) ValidateClient(ctx context.Context, clientID, redirectURI string) bool {
	if clientID == "" || redirectURI == "" {
		return false
	}
	cl, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return false
	}
	return cl.AllowsRedirect(redirectURI)
}

// GetClient retrieves a client by ID
func (s *Registry) GetClient(ctx context.Context, clientID string) (*domain.OAuthClient, error) {
	return s.store.GetClient(ctx, clientID)
}

// AuthenticateClient checks a presented client secret.
func (s *Registry) AuthenticateClient(ctx context.Context, clientID, secret string) (*domain.OAuthClient, error) {
	cl, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if cl.SecretHash == "" {
		return nil, ErrInvalidClientSecret
	}
	if err := s.hasher.Verify(cl.SecretHash, secret); err != nil {
		return nil, ErrInvalidClientSecret
	}
	return cl, nil
}
