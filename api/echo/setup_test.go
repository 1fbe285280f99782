package echo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go.pilab.hu/taskboard"
	"go.pilab.hu/taskboard/cache"
	"go.pilab.hu/taskboard/client"
	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/events"
	"go.pilab.hu/taskboard/internal/auth"
	"go.pilab.hu/taskboard/internal/session"
	"go.pilab.hu/taskboard/services"
	"go.pilab.hu/taskboard/sqlstore"
)

const testIssuer = "http://board.test"

type testEnv struct {
	e        *echo.Echo
	store    *sqlstore.Store
	sessions *session.Store
	hub      *events.Hub
	projects *services.ProjectService
	tasks    *services.TaskService
	login    *LoginAPI
}

func newTestEnv(t *testing.T, limiter *RateLimiter) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := sqlstore.OpenSQLite(ctx, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })
	require.NoError(t, store.Migrate(ctx))

	config := taskboard.NewDefaultConfig(testIssuer)
	sessions := session.NewStore(time.Hour)
	hub := events.NewHub()

	projects := services.NewProjectService(store)
	tasks := services.NewTaskService(store, store, hub)
	labels := services.NewLabelService(store)
	comments := services.NewCommentService(tasks, store, hub)
	registry := client.NewRegistry(store, auth.NewBcryptSecretHasher(bcrypt.MinCost))
	oauth := taskboard.NewOAuthService(store, store, config, nil)

	states := cache.NewMemoryLoginStateStore()
	t.Cleanup(states.Stop)
	login, err := NewLoginAPI(nil, states, sessions, store, projects, testIssuer, false)
	require.NoError(t, err)

	e := echo.New()
	e.IPExtractor = echo.ExtractIPDirect()
	NewOAuth2API(oauth, registry, projects, sessions, config).RegisterRoutes(e, limiter)
	login.RegisterRoutes(e)
	NewBoardAPI(projects, tasks, labels, comments, taskboard.NewAPIKeyService(store), sessions).RegisterRoutes(e)
	NewStreamAPI(hub, projects, sessions).RegisterRoutes(e)

	return &testEnv{e: e, store: store, sessions: sessions, hub: hub, projects: projects, tasks: tasks, login: login}
}

// signIn creates the user and a session, returning the session cookie.
func (env *testEnv) signIn(t *testing.T, userID, name string) *http.Cookie {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, env.store.UpsertUser(context.Background(), &domain.User{ID: userID, Name: name, CreatedAt: now, UpdatedAt: now}))
	sess := env.sessions.Create(userID, name, "test", "127.0.0.1")
	return &http.Cookie{Name: session.CookieName, Value: sess.ID}
}

func (env *testEnv) do(t *testing.T, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(data))
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// doHandler runs h directly against a GET request for target.
func (env *testEnv) doHandler(t *testing.T, h echo.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h(env.e.NewContext(req, rec)))
	return rec
}
