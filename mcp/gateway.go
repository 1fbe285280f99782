// Package mcp exposes the task board to coding agents as MCP tools over
// streamable HTTP.
package mcp

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mark3labs/mcp-go/server"
	"go.pilab.hu/taskboard"
	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/internal/telemetry"
	"go.pilab.hu/taskboard/log"
	"go.pilab.hu/taskboard/services"
)

const (
	OAuthPath = "/api/mcp"
	AgentPath = "/api/agent/mcp"

	serverName    = "taskboard"
	serverVersion = "1.0.0"
)

// Deps are the collaborators of the gateway.
type Deps struct {
	Config   *taskboard.ProviderConfig
	Tokens   *taskboard.TokenService
	APIKeys  *taskboard.APIKeyService
	Users    domain.UserRepository
	Projects *services.ProjectService
	Tasks    *services.TaskService
	Labels   *services.LabelService
	Comments *services.CommentService
	Metrics  *telemetry.ToolMetrics
	Logger   log.Logger
}

// Gateway serves the two tool endpoints. Both run stateless: every request
// is authenticated on its own and the principal travels in the request context.
type Gateway struct {
	config   *taskboard.ProviderConfig
	tokens   *taskboard.TokenService
	apiKeys  *taskboard.APIKeyService
	users    domain.UserRepository
	projects *services.ProjectService
	tasks    *services.TaskService
	labels   *services.LabelService
	comments *services.CommentService
	metrics  *telemetry.ToolMetrics
	logger   log.Logger

	oauthServer *server.MCPServer
	agentServer *server.MCPServer
}

func New(deps Deps) *Gateway {
	g := &Gateway{
		config:   deps.Config,
		tokens:   deps.Tokens,
		apiKeys:  deps.APIKeys,
		users:    deps.Users,
		projects: deps.Projects,
		tasks:    deps.Tasks,
		labels:   deps.Labels,
		comments: deps.Comments,
		metrics:  deps.Metrics,
		logger:   log.OrNop(deps.Logger),
	}

	g.oauthServer = server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	g.registerTaskTools(g.oauthServer)
	g.registerBoardTools(g.oauthServer)
	g.registerProjectTools(g.oauthServer)

	g.agentServer = server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	g.registerTaskTools(g.agentServer)

	return g
}

// OAuthHandler serves the full tool set to holders of OAuth bearer tokens.
func (g *Gateway) OAuthHandler() http.Handler {
	return g.oauthAuth(server.NewStreamableHTTPServer(g.oauthServer,
		server.WithEndpointPath(OAuthPath),
		server.WithStateLess(true),
	))
}

// AgentHandler serves the task tools to holders of project API keys.
func (g *Gateway) AgentHandler() http.Handler {
	return g.agentAuth(server.NewStreamableHTTPServer(g.agentServer,
		server.WithEndpointPath(AgentPath),
		server.WithStateLess(true),
	))
}

func (g *Gateway) RegisterRoutes(e *echo.Echo) {
	oauth := echo.WrapHandler(g.OAuthHandler())
	agent := echo.WrapHandler(g.AgentHandler())

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		e.Add(method, OAuthPath, oauth)
		e.Add(method, AgentPath, agent)
	}
}
