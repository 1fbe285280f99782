//nolint:varnamelen
package echo

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"go.pilab.hu/taskboard"
	"go.pilab.hu/taskboard/api"
	"go.pilab.hu/taskboard/client"
	oautherr "go.pilab.hu/taskboard/errors"
	"go.pilab.hu/taskboard/internal/session"
	"go.pilab.hu/taskboard/services"
)

// OAuth2API serves discovery, authorization, registration and token endpoints.
type OAuth2API struct {
	service  *taskboard.OAuthService
	registry *client.Registry
	projects *services.ProjectService
	sessions *session.Store
	config   *taskboard.ProviderConfig
}

// NewOAuth2API initializes the OAuth2 API.
func NewOAuth2API(
	service *taskboard.OAuthService,
	registry *client.Registry,
	projects *services.ProjectService,
	sessions *session.Store,
	config *taskboard.ProviderConfig,
) *OAuth2API {
	if config == nil {
		config = taskboard.NewDefaultConfig("http://localhost:8080")
	}
	return &OAuth2API{
		service:  service,
		registry: registry,
		projects: projects,
		sessions: sessions,
		config:   config,
	}
}

// RegisterRoutes registers the OAuth2 routes. limiter may be nil.
func (oa *OAuth2API) RegisterRoutes(e *echo.Echo, limiter *RateLimiter) {
	e.GET("/.well-known/oauth-authorization-server", oa.AuthorizationServerMetadataHandler)
	e.GET("/.well-known/oauth-protected-resource", oa.ProtectedResourceHandler)
	e.GET("/.well-known/oauth-protected-resource/api/mcp", oa.ProtectedResourceHandler)

	g := e.Group("/api/oauth", limiter.Middleware())
	g.GET("/authorize", oa.AuthorizeHandler, SessionAuth(oa.sessions, false))
	g.POST("/register", oa.RegisterHandler)
	g.POST("/token", oa.TokenHandler)
}

func (oa *OAuth2API) AuthorizationServerMetadataHandler(c echo.Context) error {
	noStore(c)
	return c.JSON(http.StatusOK, oa.config.AuthorizationServerMetadata())
}

func (oa *OAuth2API) ProtectedResourceHandler(c echo.Context) error {
	noStore(c)
	return c.JSON(http.StatusOK, oa.config.ProtectedResourceMetadata())
}

// AuthorizeHandler validates the request, sends anonymous users through the
// interactive login and redirects back to the client with a code.
func (oa *OAuth2API) AuthorizeHandler(c echo.Context) error {
	clientID := c.QueryParam("client_id")
	redirectURI := c.QueryParam("redirect_uri")
	responseType := c.QueryParam("response_type")
	codeChallenge := c.QueryParam("code_challenge")
	codeChallengeMethod := c.QueryParam("code_challenge_method")
	state := c.QueryParam("state")
	scope := c.QueryParam("scope")

	if codeChallengeMethod == "" {
		codeChallengeMethod = taskboard.CodeChallengeMethodS256
	}

	if clientID == "" || redirectURI == "" || responseType != "code" || codeChallenge == "" {
		return c.JSON(http.StatusBadRequest, oautherr.NewInvalidRequest(
			"Missing required parameters (client_id, redirect_uri, response_type=code, code_challenge)"))
	}
	if codeChallengeMethod != taskboard.CodeChallengeMethodS256 {
		return c.JSON(http.StatusBadRequest, oautherr.NewInvalidRequest("Only code_challenge_method=S256 is supported"))
	}

	ctx := c.Request().Context()

	if !oa.registry.ValidateClient(ctx, clientID, redirectURI) {
		return c.JSON(http.StatusBadRequest, oautherr.NewInvalidClient("Unknown client_id or redirect_uri mismatch"))
	}
	if !oa.config.ScopeAllowed(scope) {
		return c.JSON(http.StatusBadRequest, oautherr.NewInvalidScope("Only the "+oa.config.Scope+" scope is supported"))
	}

	sess := currentSession(c)
	if sess == nil {
		loginURL := "/login?" + url.Values{"callbackUrl": {oa.config.Issuer + c.Request().URL.RequestURI()}}.Encode()
		return c.Redirect(http.StatusFound, loginURL)
	}

	var projectID string
	project, ok, err := oa.projects.DefaultProject(ctx, sess.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", sess.UserID).Msg("Failed to resolve default project")
		return c.JSON(http.StatusInternalServerError, oautherr.NewServerError("Failed to resolve project"))
	}
	if ok {
		projectID = project.ID
	}

	code, err := oa.service.IssueCode(ctx, taskboard.IssueRequest{
		ClientID:      clientID,
		UserID:        sess.UserID,
		ProjectID:     projectID,
		RedirectURI:   redirectURI,
		CodeChallenge: codeChallenge,
		Scope:         scope,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate authorization code")
		return c.JSON(http.StatusInternalServerError, oautherr.NewServerError("Failed to generate authorization code"))
	}

	redirect, err := url.Parse(redirectURI)
	if err != nil {
		return c.JSON(http.StatusBadRequest, oautherr.NewInvalidRequest("Invalid redirect_uri"))
	}
	q := redirect.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	redirect.RawQuery = q.Encode()

	return c.Redirect(http.StatusFound, redirect.String())
}

// RegisterHandler implements RFC 7591 dynamic client registration.
func (oa *OAuth2API) RegisterHandler(c echo.Context) error {
	var reg client.Registration
	if err := c.Bind(&reg); err != nil {
		return c.JSON(http.StatusBadRequest, oautherr.NewInvalidClientMetadata("Request body must be a JSON object"))
	}

	registered, err := oa.registry.Register(c.Request().Context(), reg)
	if err != nil {
		var verr *client.ValidationError
		if errors.As(err, &verr) {
			if verr.Field == "client_name" || verr.Field == "redirect_uris" {
				return c.JSON(http.StatusBadRequest, oautherr.NewInvalidClientMetadata(verr.Error()))
			}
			return c.JSON(http.StatusBadRequest, oautherr.NewInvalidRedirectURI(verr.Error()))
		}
		log.Error().Err(err).Msg("Client registration failed")
		return c.JSON(http.StatusInternalServerError, oautherr.NewServerError("An internal error occurred"))
	}

	noStore(c)
	return c.JSON(http.StatusCreated, registered)
}

// TokenHandler exchanges an authorization code for an access token.
// Every rejection of the code itself is reported as invalid_grant.
func (oa *OAuth2API) TokenHandler(c echo.Context) error {
	noStore(c)

	var req api.TokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, oautherr.NewInvalidRequest("Malformed request body"))
	}

	if req.GrantType != "authorization_code" {
		return c.JSON(http.StatusBadRequest, oautherr.NewUnsupportedGrantType())
	}
	if req.Code == "" || req.ClientID == "" || req.CodeVerifier == "" || req.RedirectURI == "" {
		return c.JSON(http.StatusBadRequest, oautherr.NewInvalidRequest("Missing required parameters"))
	}

	ctx := c.Request().Context()

	if req.ClientSecret != "" {
		if _, err := oa.registry.AuthenticateClient(ctx, req.ClientID, req.ClientSecret); err != nil {
			log.Warn().Err(err).Str("client_id", req.ClientID).Msg("Invalid client credentials")
			return c.JSON(http.StatusUnauthorized, oautherr.NewInvalidClient("Invalid client credentials"))
		}
	}

	grant, err := oa.service.Exchange(ctx, taskboard.ExchangeRequest{
		Code:         req.Code,
		ClientID:     req.ClientID,
		CodeVerifier: req.CodeVerifier,
		RedirectURI:  req.RedirectURI,
	})
	if err != nil {
		if errors.Is(err, taskboard.ErrInvalidGrant) {
			return c.JSON(http.StatusBadRequest, oautherr.NewInvalidGrant())
		}
		log.Error().Err(err).Msg("Token exchange failed")
		return c.JSON(http.StatusInternalServerError, oautherr.NewServerError("Failed to generate token"))
	}

	log.Info().
		Str("client_id", req.ClientID).
		Str("user_id", grant.UserID).
		Str("project_id", grant.ProjectID).
		Int("expires_in", grant.ExpiresIn).
		Msg("Token generated")

	return c.JSON(http.StatusOK, api.TokenResponse{
		AccessToken: grant.AccessToken,
		TokenType:   api.TokenTypeBearer,
		ExpiresIn:   grant.ExpiresIn,
		Scope:       grant.Scope,
	})
}
