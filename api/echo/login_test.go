package echo

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"go.pilab.hu/taskboard/cache"
	"go.pilab.hu/taskboard/internal/federation"
	"go.pilab.hu/taskboard/internal/session"
)

type fakeProvider struct {
	gotVerifier bool
}

func (p *fakeProvider) Name() string { return "github" }

func (p *fakeProvider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	cfg := oauth2.Config{Endpoint: oauth2.Endpoint{AuthURL: "https://idp.test/authorize"}}
	return cfg.AuthCodeURL(state, opts...)
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	p.gotVerifier = len(opts) > 0
	return &oauth2.Token{AccessToken: "gh-" + code}, nil
}

func (p *fakeProvider) FetchUserInfo(context.Context, *oauth2.Token) (*federation.ExternalUserInfo, error) {
	return &federation.ExternalUserInfo{ProviderUserID: "42", Username: "octocat", Name: "The Octocat"}, nil
}

func TestSafeCallback(t *testing.T) {
	env := newTestEnv(t, nil)

	cases := map[string]string{
		"":                                  "/",
		"/board":                            "/board",
		"//evil.test/x":                     "/",
		`/\evil.test`:                       "/",
		testIssuer + "/api/oauth/authorize": testIssuer + "/api/oauth/authorize",
		"https://evil.test/cb":              "/",
		"http://board.test.evil/cb":         "/",
	}
	for in, want := range cases {
		assert.Equal(t, want, env.login.safeCallback(in), in)
	}
}

func TestLogin_UnconfiguredProvider(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/login", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLogin_RoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	provider := &fakeProvider{}
	states := cache.NewMemoryLoginStateStore()
	t.Cleanup(states.Stop)
	login, err := NewLoginAPI(provider, states, env.sessions, env.store, env.projects, testIssuer, false)
	require.NoError(t, err)

	rec := env.doHandler(t, login.LoginHandler, "/login?callbackUrl=%2Fboard")
	require.Equal(t, http.StatusFound, rec.Code)
	redirect, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "idp.test", redirect.Host)
	assert.Equal(t, "S256", redirect.Query().Get("code_challenge_method"))
	state := redirect.Query().Get("state")
	require.NotEmpty(t, state)

	rec = env.doHandler(t, login.CallbackHandler, "/login/callback?code=abc&state="+url.QueryEscape(state))
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "/board", rec.Header().Get("Location"))
	assert.True(t, provider.gotVerifier)

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)

	sess, err := env.sessions.Get(sessionCookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "github:42", sess.UserID)
	assert.Equal(t, "The Octocat", sess.UserName)

	user, err := env.store.GetUser(t.Context(), "github:42")
	require.NoError(t, err)
	assert.Equal(t, "The Octocat", user.Name)

	// The state is single-use.
	rec = env.doHandler(t, login.CallbackHandler, "/login/callback?code=abc&state="+url.QueryEscape(state))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/logout", nil, &http.Cookie{Name: session.CookieName, Value: sessionCookie.Value})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err = env.sessions.Get(sessionCookie.Value)
	assert.Error(t, err)
}
