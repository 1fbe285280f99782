package domain

import "context"

// PrincipalKind tells how a request was authenticated.
type PrincipalKind string

const (
	PrincipalAPIKey  PrincipalKind = "api_key"
	PrincipalOAuth   PrincipalKind = "oauth"
	PrincipalSession PrincipalKind = "session"
)

// Principal is the authenticated identity and the single project a request acts on.
type Principal struct {
	Kind      PrincipalKind
	UserID    string // empty for API keys
	ProjectID string
	AgentName string
	Scope     string
	TokenHash string // set for OAuth principals so the project binding can be changed
}

// Actor is the name recorded on task events.
func (p *Principal) Actor() string {
	if p.Kind == PrincipalSession {
		return p.AgentName
	}
	return p.AgentName + " (agent)"
}

type principalContextKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext retrieves the Principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*Principal)
	return p, ok && p != nil
}
