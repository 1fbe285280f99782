package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/taskboard"
	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/services"
	"go.pilab.hu/taskboard/sqlstore"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.TaskEvent
}

func (r *recordingPublisher) Publish(_ context.Context, ev domain.TaskEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingPublisher) last() domain.TaskEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fixture struct {
	store     *sqlstore.Store
	gateway   *Gateway
	apiKeys   *taskboard.APIKeyService
	projects  *services.ProjectService
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := sqlstore.OpenSQLite(ctx, filepath.Join(t.TempDir(), "gateway.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })
	require.NoError(t, store.Migrate(ctx))

	pub := &recordingPublisher{}
	projects := services.NewProjectService(store)
	tasks := services.NewTaskService(store, store, pub)
	apiKeys := taskboard.NewAPIKeyService(store)

	g := New(Deps{
		Config:   taskboard.NewDefaultConfig("https://board.example.com"),
		Tokens:   taskboard.NewTokenService(store),
		APIKeys:  apiKeys,
		Users:    store,
		Projects: projects,
		Tasks:    tasks,
		Labels:   services.NewLabelService(store),
		Comments: services.NewCommentService(tasks, store, pub),
	})

	return &fixture{store: store, gateway: g, apiKeys: apiKeys, projects: projects, publisher: pub}
}

func (f *fixture) user(t *testing.T, id, name string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, f.store.UpsertUser(context.Background(), &domain.User{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}))
}

func (f *fixture) token(t *testing.T, userID, projectID string) string {
	t.Helper()
	bearer, err := taskboard.GenerateSecret(taskboard.AccessTokenPrefix)
	require.NoError(t, err)
	require.NoError(t, f.store.SaveAccessToken(context.Background(), &domain.AccessToken{
		TokenHash: taskboard.HashToken(bearer),
		ClientID:  "client_test",
		UserID:    userID,
		ProjectID: projectID,
		Scope:     taskboard.DefaultScope,
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}))
	return bearer
}

func callTool(name string, args map[string]any) mcpgo.CallToolRequest {
	var req mcpgo.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	switch c := res.Content[0].(type) {
	case mcpgo.TextContent:
		return c.Text
	case *mcpgo.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content type %T", res.Content[0])
	return ""
}

// principalCapture records the principal that reached the inner handler.
func principalCapture(got **domain.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, _ = domain.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAgentAuth_RejectsMissingAndUnknownKeys(t *testing.T) {
	f := newFixture(t)

	for _, header := range []string{"", "Bearer nope", "Bearer tm_unknown"} {
		var got *domain.Principal
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, AgentPath, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}

		f.gateway.agentAuth(principalCapture(&got)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Equal(t, `Bearer realm="taskboard"`, rec.Header().Get("WWW-Authenticate"))
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
		assert.Nil(t, got)
	}
}

func TestAgentAuth_ResolvesKeyProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	project, err := f.projects.Create(ctx, "github:1", "Board", "")
	require.NoError(t, err)
	created, err := f.apiKeys.Create(ctx, project.ID, "claude")
	require.NoError(t, err)

	var got *domain.Principal
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, AgentPath, nil)
	req.Header.Set("Authorization", "Bearer "+created.Secret)

	f.gateway.agentAuth(principalCapture(&got)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, domain.PrincipalAPIKey, got.Kind)
	assert.Equal(t, project.ID, got.ProjectID)
	assert.Equal(t, "claude (agent)", got.Actor())
}

func TestOAuthAuth_ChallengeCarriesResourceMetadata(t *testing.T) {
	f := newFixture(t)

	var got *domain.Principal
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, OAuthPath, nil)
	req.Header.Set("Authorization", "Bearer mcp_unknown")

	f.gateway.oauthAuth(principalCapture(&got)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"),
		`resource_metadata="https://board.example.com/.well-known/oauth-protected-resource/api/mcp"`)
	assert.Nil(t, got)
}

func TestOAuthAuth_FallsBackToNewestProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "github:1", "Octo")

	bearer := f.token(t, "github:1", "")

	// No project yet: nothing to act on.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, OAuthPath, nil)
	req.Header.Set("Authorization", "Bearer "+bearer)
	var got *domain.Principal
	f.gateway.oauthAuth(principalCapture(&got)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, err := f.projects.Create(ctx, "github:1", "Old", "")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	newest, err := f.projects.Create(ctx, "github:1", "New", "")
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, OAuthPath, nil)
	req.Header.Set("Authorization", "Bearer "+bearer)
	f.gateway.oauthAuth(principalCapture(&got)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, newest.ID, got.ProjectID)
	assert.Equal(t, "Octo", got.AgentName)
	assert.Equal(t, taskboard.HashToken(bearer), got.TokenHash)
}

func TestTools_TaskOfOtherProjectIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, err := f.projects.Create(ctx, "github:1", "A", "")
	require.NoError(t, err)
	b, err := f.projects.Create(ctx, "github:2", "B", "")
	require.NoError(t, err)

	ctxA := domain.WithPrincipal(ctx, &domain.Principal{Kind: domain.PrincipalAPIKey, ProjectID: a.ID, AgentName: "bot"})
	ctxB := domain.WithPrincipal(ctx, &domain.Principal{Kind: domain.PrincipalAPIKey, ProjectID: b.ID, AgentName: "bot"})

	res, err := f.gateway.createTask(ctxA, callTool("create_task", map[string]any{"title": "Ship it", "priority": 2}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	tasks, err := f.store.ListTasks(ctx, a.ID, domain.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 2, tasks[0].Priority)
	assert.Equal(t, "bot (agent)", f.publisher.last().Actor)

	for _, call := range []func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error){
		f.gateway.getTask, f.gateway.completeTask, f.gateway.deleteTask, f.gateway.listComments,
	} {
		res, err := call(ctxB, callTool("x", map[string]any{"task_id": tasks[0].ID}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Equal(t, "not found", resultText(t, res))
	}

	got, err := f.store.GetTask(ctx, tasks[0].ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)
}

func TestTools_UpdateClearsDueDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p, err := f.projects.Create(ctx, "github:1", "A", "")
	require.NoError(t, err)
	pctx := domain.WithPrincipal(ctx, &domain.Principal{Kind: domain.PrincipalAPIKey, ProjectID: p.ID, AgentName: "bot"})

	_, err = f.gateway.createTask(pctx, callTool("create_task", map[string]any{"title": "Due", "due_date": "2026-12-01"}))
	require.NoError(t, err)
	tasks, err := f.store.ListTasks(ctx, p.ID, domain.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].DueDate)

	res, err := f.gateway.updateTask(pctx, callTool("update_task", map[string]any{"task_id": tasks[0].ID, "due_date": nil}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	got, err := f.store.GetTask(ctx, tasks[0].ID)
	require.NoError(t, err)
	assert.Nil(t, got.DueDate)
	assert.Equal(t, "Due", got.Title)
}

func TestTools_AgentComment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p, err := f.projects.Create(ctx, "github:1", "A", "")
	require.NoError(t, err)
	pctx := domain.WithPrincipal(ctx, &domain.Principal{Kind: domain.PrincipalAPIKey, ProjectID: p.ID, AgentName: "bot"})

	_, err = f.gateway.createTask(pctx, callTool("create_task", map[string]any{"title": "Talk"}))
	require.NoError(t, err)
	tasks, err := f.store.ListTasks(ctx, p.ID, domain.TaskFilter{})
	require.NoError(t, err)

	res, err := f.gateway.addComment(pctx, callTool("add_comment", map[string]any{"task_id": tasks[0].ID, "body": "on it"}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	comments, err := f.store.ListComments(ctx, tasks[0].ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "bot", comments[0].Author)
	assert.Equal(t, domain.AuthorAgent, comments[0].AuthorType)
}

func TestTools_SwitchProjectRebindsToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user(t, "github:1", "Octo")
	a, err := f.projects.Create(ctx, "github:1", "A", "")
	require.NoError(t, err)
	b, err := f.projects.Create(ctx, "github:1", "B", "")
	require.NoError(t, err)
	foreign, err := f.projects.Create(ctx, "github:2", "Foreign", "")
	require.NoError(t, err)

	bearer := f.token(t, "github:1", a.ID)
	principal := &domain.Principal{
		Kind: domain.PrincipalOAuth, UserID: "github:1", ProjectID: a.ID,
		AgentName: "Octo", TokenHash: taskboard.HashToken(bearer),
	}
	pctx := domain.WithPrincipal(ctx, principal)

	res, err := f.gateway.switchProject(pctx, callTool("switch_project", map[string]any{"project_id": foreign.ID}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = f.gateway.switchProject(pctx, callTool("switch_project", map[string]any{"project_id": b.ID}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	token, err := f.store.GetAccessToken(ctx, principal.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, b.ID, token.ProjectID)
}

func TestTools_ProjectToolsRequireOAuth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p, err := f.projects.Create(ctx, "github:1", "A", "")
	require.NoError(t, err)
	pctx := domain.WithPrincipal(ctx, &domain.Principal{Kind: domain.PrincipalAPIKey, ProjectID: p.ID, AgentName: "bot"})

	res, err := f.gateway.listProjects(pctx, callTool("list_projects", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestTools_AgentServerOffersTaskToolsOnly(t *testing.T) {
	f := newFixture(t)

	agentTools := f.gateway.agentServer.ListTools()
	assert.Contains(t, agentTools, "create_task")
	assert.Contains(t, agentTools, "list_comments")
	assert.NotContains(t, agentTools, "switch_project")
	assert.NotContains(t, agentTools, "claim_task")

	oauthTools := f.gateway.oauthServer.ListTools()
	for _, name := range []string{"switch_project", "claim_task", "search_tasks", "get_project", "list_labels", "delete_project"} {
		assert.Contains(t, oauthTools, name)
	}
}
