package mcp

import (
	"context"
	"fmt"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/internal/audit"
)

//nolint:tagliatelle
type projectArgs struct {
	ProjectID   string  `json:"project_id"`
	Q           string  `json:"q"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	SwitchTo    *bool   `json:"switch_to"`
}

func bindProjectArgs(req mcpgo.CallToolRequest) (*projectArgs, error) {
	var args projectArgs
	if err := req.BindArguments(&args); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return &args, nil
}

// oauthPrincipal rejects principals that are not bound to a user token.
func oauthPrincipal(ctx context.Context) (*domain.Principal, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if p.Kind != domain.PrincipalOAuth || p.UserID == "" {
		return nil, errNotAuthenticated
	}
	return p, nil
}

func (g *Gateway) registerProjectTools(s *server.MCPServer) {
	g.addTool(s, mcpgo.NewTool("list_projects",
		mcpgo.WithDescription("List all projects owned by the authenticated user."),
	), g.listProjects)

	g.addTool(s, mcpgo.NewTool("search_projects",
		mcpgo.WithDescription("Search for projects by name or description."),
		mcpgo.WithString("q", mcpgo.Required(), mcpgo.Description("Search query (name or description)")),
	), g.searchProjects)

	g.addTool(s, mcpgo.NewTool("create_project",
		mcpgo.WithDescription("Create a new project and optionally switch to it."),
		mcpgo.WithString("name", mcpgo.Required(), mcpgo.Description("Project name")),
		mcpgo.WithString("description", mcpgo.Description("Project description")),
		mcpgo.WithBoolean("switch_to", mcpgo.Description("Switch to the new project after creation (default: true)")),
	), g.createProject)

	g.addTool(s, mcpgo.NewTool("update_project",
		mcpgo.WithDescription("Update the current project's name or description."),
		mcpgo.WithString("name", mcpgo.Description("New project name")),
		mcpgo.WithString("description", mcpgo.Description("New project description")),
	), g.updateProject)

	g.addTool(s, mcpgo.NewTool("delete_project",
		mcpgo.WithDescription("Permanently delete a project and all its tasks, comments, and labels."),
		mcpgo.WithString("project_id", mcpgo.Required(), mcpgo.Description("The project ID to delete")),
	), g.deleteProject)

	g.addTool(s, mcpgo.NewTool("switch_project",
		mcpgo.WithDescription("Switch the active project for all subsequent tool calls."),
		mcpgo.WithString("project_id", mcpgo.Required(), mcpgo.Description("The project ID to switch to")),
	), g.switchProject)
}

func (g *Gateway) listProjects(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, err := oauthPrincipal(ctx)
	if err != nil {
		return g.toolError(ctx, "list_projects", err), nil
	}
	projects, err := g.projects.List(ctx, p.UserID)
	if err != nil {
		return g.toolError(ctx, "list_projects", err), nil
	}
	return jsonResult(projects)
}

func (g *Gateway) searchProjects(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, err := oauthPrincipal(ctx)
	if err != nil {
		return g.toolError(ctx, "search_projects", err), nil
	}
	q, err := req.RequireString("q")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	projects, err := g.projects.Search(ctx, p.UserID, q)
	if err != nil {
		return g.toolError(ctx, "search_projects", err), nil
	}
	return jsonResult(projects)
}

func (g *Gateway) createProject(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, err := oauthPrincipal(ctx)
	if err != nil {
		return g.toolError(ctx, "create_project", err), nil
	}
	args, err := bindProjectArgs(req)
	if err != nil {
		return g.toolError(ctx, "create_project", err), nil
	}

	var name, description string
	if args.Name != nil {
		name = *args.Name
	}
	if args.Description != nil {
		description = *args.Description
	}

	project, err := g.projects.Create(ctx, p.UserID, name, description)
	if err != nil {
		return g.toolError(ctx, "create_project", err), nil
	}

	switched := args.SwitchTo == nil || *args.SwitchTo
	if switched {
		if err := g.bindProject(ctx, p, project.ID); err != nil {
			return g.toolError(ctx, "create_project", err), nil
		}
	}
	return jsonResult(map[string]any{"id": project.ID, "name": project.Name, "switched": switched})
}

func (g *Gateway) updateProject(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, err := oauthPrincipal(ctx)
	if err != nil {
		return g.toolError(ctx, "update_project", err), nil
	}
	args, err := bindProjectArgs(req)
	if err != nil {
		return g.toolError(ctx, "update_project", err), nil
	}

	project, err := g.projects.Update(ctx, p.UserID, p.ProjectID, domain.ProjectPatch{
		Name:        args.Name,
		Description: args.Description,
	})
	if err != nil {
		return g.toolError(ctx, "update_project", err), nil
	}
	return mcpgo.NewToolResultText(fmt.Sprintf("Project %q updated.", project.Name)), nil
}

func (g *Gateway) deleteProject(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, err := oauthPrincipal(ctx)
	if err != nil {
		return g.toolError(ctx, "delete_project", err), nil
	}
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	project, err := g.projects.Delete(ctx, p.UserID, projectID)
	if err != nil {
		return g.toolError(ctx, "delete_project", err), nil
	}
	return mcpgo.NewToolResultText(fmt.Sprintf("Project %q (ID: %s) deleted permanently.", project.Name, project.ID)), nil
}

func (g *Gateway) switchProject(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, err := oauthPrincipal(ctx)
	if err != nil {
		return g.toolError(ctx, "switch_project", err), nil
	}
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	project, err := g.projects.Get(ctx, p.UserID, projectID)
	if err != nil {
		return g.toolError(ctx, "switch_project", err), nil
	}
	if err := g.bindProject(ctx, p, project.ID); err != nil {
		return g.toolError(ctx, "switch_project", err), nil
	}
	return mcpgo.NewToolResultText(fmt.Sprintf(
		"Switched to project %q (ID: %s). All subsequent tool calls will use this project.", project.Name, project.ID)), nil
}

func (g *Gateway) bindProject(ctx context.Context, p *domain.Principal, projectID string) error {
	err := g.tokens.BindProject(ctx, p.TokenHash, projectID)
	audit.Log(audit.ActionProjectSwitched, p.UserID, projectID, "", "", err)
	return err
}
