package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/internal/metrics"
)

var errNotAuthenticated = errors.New("not authenticated")

func principalFrom(ctx context.Context) (*domain.Principal, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok || p.ProjectID == "" {
		return nil, errNotAuthenticated
	}
	return p, nil
}

func jsonResult(v any) (*mcpgo.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcpgo.NewToolResultText(string(data)), nil
}

// toolError turns a service error into an error result the agent can read.
// Tasks of other projects are indistinguishable from missing ones.
func (g *Gateway) toolError(ctx context.Context, tool string, err error) *mcpgo.CallToolResult {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return mcpgo.NewToolResultError("not found")
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, errNotAuthenticated):
		return mcpgo.NewToolResultError(err.Error())
	default:
		g.logger.Error(ctx, "Tool call failed", err, map[string]any{"tool": tool})
		return mcpgo.NewToolResultError("internal error")
	}
}

func (g *Gateway) addTool(s *server.MCPServer, tool mcpgo.Tool, handler server.ToolHandlerFunc) {
	s.AddTool(tool, g.instrument(tool.Name, handler))
}

func (g *Gateway) instrument(name string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		start := time.Now()
		res, err := handler(ctx, req)

		outcome := "ok"
		if err != nil || (res != nil && res.IsError) {
			outcome = "error"
		}
		metrics.ToolCallsTotal.WithLabelValues(name, outcome).Inc()
		g.metrics.Record(ctx, name, outcome, time.Since(start))

		return res, err
	}
}
