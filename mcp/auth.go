package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.pilab.hu/taskboard"
	"go.pilab.hu/taskboard/domain"
)

const agentChallenge = `Bearer realm="taskboard"`

var errNoProject = errors.New("no project available for token")

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func isCredentialError(err error) bool {
	return errors.Is(err, taskboard.ErrMalformedCredential) ||
		errors.Is(err, taskboard.ErrUnknownCredential) ||
		errors.Is(err, taskboard.ErrExpiredCredential) ||
		errors.Is(err, errNoProject)
}

func unauthorized(w http.ResponseWriter, challenge string) {
	w.Header().Set("WWW-Authenticate", challenge)
	writeError(w, http.StatusUnauthorized, "unauthorized")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (g *Gateway) oauthChallenge() string {
	return fmt.Sprintf(`Bearer error="invalid_token", resource_metadata=%q`, g.config.ResourceMetadataURL())
}

// oauthAuth resolves an OAuth bearer token to a principal bound to one project.
func (g *Gateway) oauthAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := g.resolveOAuth(r.Context(), bearerToken(r))
		if err != nil {
			if isCredentialError(err) {
				g.logger.Debug(r.Context(), "Rejected tool gateway token", map[string]any{"reason": err.Error()})
				unauthorized(w, g.oauthChallenge())
				return
			}
			g.logger.Error(r.Context(), "Failed to authenticate tool gateway request", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		next.ServeHTTP(w, r.WithContext(domain.WithPrincipal(r.Context(), principal)))
	})
}

func (g *Gateway) resolveOAuth(ctx context.Context, bearer string) (*domain.Principal, error) {
	claims, err := g.tokens.Validate(ctx, bearer)
	if err != nil {
		return nil, err
	}

	projectID := claims.ProjectID
	if projectID == "" {
		// Tokens without a bound project act on the newest project of their user.
		project, ok, err := g.projects.DefaultProject(ctx, claims.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errNoProject
		}
		projectID = project.ID
	}

	agentName := "OAuth User"
	if user, err := g.users.GetUser(ctx, claims.UserID); err == nil && user.Name != "" {
		agentName = user.Name
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to load token user: %w", err)
	}

	return &domain.Principal{
		Kind:      domain.PrincipalOAuth,
		UserID:    claims.UserID,
		ProjectID: projectID,
		AgentName: agentName,
		Scope:     claims.Scope,
		TokenHash: claims.TokenHash,
	}, nil
}

// agentAuth resolves a project API key.
func (g *Gateway) agentAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := g.apiKeys.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			if isCredentialError(err) {
				unauthorized(w, agentChallenge)
				return
			}
			g.logger.Error(r.Context(), "Failed to authenticate agent request", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		principal := &domain.Principal{
			Kind:      domain.PrincipalAPIKey,
			ProjectID: identity.ProjectID,
			AgentName: identity.AgentName,
		}
		next.ServeHTTP(w, r.WithContext(domain.WithPrincipal(r.Context(), principal)))
	})
}
