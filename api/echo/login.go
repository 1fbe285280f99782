package echo

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"go.pilab.hu/taskboard"
	"go.pilab.hu/taskboard/api"
	"go.pilab.hu/taskboard/cache"
	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/internal/audit"
	"go.pilab.hu/taskboard/internal/federation"
	"go.pilab.hu/taskboard/internal/metrics"
	"go.pilab.hu/taskboard/internal/session"
	"go.pilab.hu/taskboard/services"
	"golang.org/x/oauth2"
)

// LoginAPI signs browsers in through the external identity provider.
type LoginAPI struct {
	provider     federation.OAuth2Provider
	states       cache.LoginStateStore
	sessions     *session.Store
	users        domain.UserRepository
	projects     *services.ProjectService
	baseURL      *url.URL
	cookieSecure bool
	now          func() time.Time
}

// NewLoginAPI wires the login flow. provider may be nil, in which case /login answers 503.
func NewLoginAPI(
	provider federation.OAuth2Provider,
	states cache.LoginStateStore,
	sessions *session.Store,
	users domain.UserRepository,
	projects *services.ProjectService,
	baseURL string,
	cookieSecure bool,
) (*LoginAPI, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &LoginAPI{
		provider:     provider,
		states:       states,
		sessions:     sessions,
		users:        users,
		projects:     projects,
		baseURL:      u,
		cookieSecure: cookieSecure,
		now:          time.Now,
	}, nil
}

func (l *LoginAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/login", l.LoginHandler)
	e.GET("/login/callback", l.CallbackHandler)
	e.POST("/logout", l.LogoutHandler)
	e.GET("/api/me", l.MeHandler, SessionAuth(l.sessions, true))
}

// LoginHandler stores a single-use state and redirects to the provider.
func (l *LoginAPI) LoginHandler(c echo.Context) error {
	if l.provider == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "login provider not configured"})
	}

	state, err := taskboard.GenerateSecret("")
	if err != nil {
		return err
	}
	verifier := oauth2.GenerateVerifier()

	value := cache.LoginState{
		CallbackURL:  l.safeCallback(c.QueryParam("callbackUrl")),
		CodeVerifier: verifier,
	}
	if err := l.states.Put(c.Request().Context(), state, value, cache.DefaultLoginStateTTL); err != nil {
		log.Error().Err(err).Msg("Failed to store login state")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}

	return c.Redirect(http.StatusFound, l.provider.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)))
}

// CallbackHandler finishes the provider round trip and starts a session.
func (l *LoginAPI) CallbackHandler(c echo.Context) error {
	ctx := c.Request().Context()

	if l.provider == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "login provider not configured"})
	}

	state, err := l.states.Consume(ctx, c.QueryParam("state"))
	if err != nil {
		metrics.LoginFailureTotal.Inc()
		log.Warn().Err(err).Msg("Login callback with unknown state")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_state"})
	}
	if errParam := c.QueryParam("error"); errParam != "" {
		metrics.LoginFailureTotal.Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": errParam})
	}

	token, err := l.provider.ExchangeCode(ctx, c.QueryParam("code"), oauth2.VerifierOption(state.CodeVerifier))
	if err != nil {
		metrics.LoginFailureTotal.Inc()
		log.Warn().Err(err).Str("provider", l.provider.Name()).Msg("Code exchange with provider failed")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "login_failed"})
	}
	info, err := l.provider.FetchUserInfo(ctx, token)
	if err != nil {
		metrics.LoginFailureTotal.Inc()
		log.Warn().Err(err).Str("provider", l.provider.Name()).Msg("Fetching provider profile failed")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "login_failed"})
	}

	now := l.now().UTC()
	user := &domain.User{
		ID:        info.SubjectID(l.provider.Name()),
		Name:      info.DisplayName(),
		Email:     info.Email,
		AvatarURL: info.PictureURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.users.UpsertUser(ctx, user); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to upsert user")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}

	sess := l.sessions.Create(user.ID, user.Name, c.Request().UserAgent(), c.RealIP())
	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   l.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	metrics.LoginSuccessTotal.Inc()
	audit.Log(audit.ActionLogin, user.ID, "", sess.ID, l.provider.Name(), nil)

	return c.Redirect(http.StatusFound, state.CallbackURL)
}

func (l *LoginAPI) LogoutHandler(c echo.Context) error {
	if sess := lookupSession(c, l.sessions); sess != nil {
		l.sessions.Delete(sess.ID)
	}
	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   l.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.NoContent(http.StatusNoContent)
}

func (l *LoginAPI) MeHandler(c echo.Context) error {
	sess := currentSession(c)
	ctx := c.Request().Context()

	user, err := l.users.GetUser(ctx, sess.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	projects, err := l.projects.List(ctx, sess.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, api.Me{User: user, Projects: projects})
}

// safeCallback keeps same-origin targets and replaces anything else with "/".
func (l *LoginAPI) safeCallback(raw string) string {
	if raw == "" {
		return "/"
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") && !strings.HasPrefix(raw, `/\`) {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != l.baseURL.Scheme || u.Host != l.baseURL.Host {
		return "/"
	}
	return u.String()
}
