package taskboard

import (
	"strings"
	"time"
)

// DefaultScope is the single capability bundle granted to tool hosts.
const DefaultScope = "mcp:tools"

// ProviderConfig describes the authorization server and the protected tool resource.
type ProviderConfig struct {
	Issuer         string        `json:"issuer"`
	AuthCodeTTL    time.Duration `json:"auth_code_ttl"`
	AccessTokenTTL time.Duration `json:"access_token_ttl"`
	Scope          string        `json:"scope"`

	AuthorizePath string `json:"authorize_path"`
	TokenPath     string `json:"token_path"`
	RegisterPath  string `json:"register_path"`
}

// NewDefaultConfig returns a config with ten-minute codes and one-hour tokens.
func NewDefaultConfig(issuer string) *ProviderConfig {
	return &ProviderConfig{
		Issuer:         strings.TrimRight(issuer, "/"),
		AuthCodeTTL:    10 * time.Minute,
		AccessTokenTTL: time.Hour,
		Scope:          DefaultScope,
		AuthorizePath:  "/api/oauth/authorize",
		TokenPath:      "/api/oauth/token",
		RegisterPath:   "/api/oauth/register",
	}
}

// ScopeAllowed reports whether every space separated value of requested is the
// configured scope. An empty request selects the configured scope.
func (c *ProviderConfig) ScopeAllowed(requested string) bool {
	for _, s := range strings.Fields(requested) {
		if s != c.Scope {
			return false
		}
	}
	return true
}

// AuthorizationServerMetadata is the RFC 8414 discovery document.
//
//nolint:tagliatelle
type AuthorizationServerMetadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	RegistrationEndpoint              string   `json:"registration_endpoint"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
}

// ProtectedResourceMetadata is the RFC 9728 protected resource document.
//
//nolint:tagliatelle
type ProtectedResourceMetadata struct {
	Resource             string   `json:"resource"`
	AuthorizationServers []string `json:"authorization_servers"`
	ScopesSupported      []string `json:"scopes_supported"`
}

// AuthorizationServerMetadata builds the discovery document for c.
func (c *ProviderConfig) AuthorizationServerMetadata() *AuthorizationServerMetadata {
	return &AuthorizationServerMetadata{
		Issuer:                            c.Issuer,
		AuthorizationEndpoint:             c.Issuer + c.AuthorizePath,
		TokenEndpoint:                     c.Issuer + c.TokenPath,
		RegistrationEndpoint:              c.Issuer + c.RegisterPath,
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{"authorization_code"},
		CodeChallengeMethodsSupported:     []string{CodeChallengeMethodS256},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_post", "none"},
		ScopesSupported:                   []string{c.Scope},
	}
}

// ProtectedResourceMetadata builds the resource document for c.
func (c *ProviderConfig) ProtectedResourceMetadata() *ProtectedResourceMetadata {
	return &ProtectedResourceMetadata{
		Resource:             c.Issuer,
		AuthorizationServers: []string{c.Issuer},
		ScopesSupported:      []string{c.Scope},
	}
}

// ResourceMetadataURL is advertised in WWW-Authenticate challenges.
func (c *ProviderConfig) ResourceMetadataURL() string {
	return c.Issuer + "/.well-known/oauth-protected-resource"
}
