package mcp

import (
	"context"
	"fmt"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.pilab.hu/taskboard/api"
	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/services"
)

var statusEnum = []string{string(domain.StatusTodo), string(domain.StatusInProgress), string(domain.StatusDone)}

//nolint:tagliatelle
type taskArgs struct {
	TaskID      string               `json:"task_id"`
	Q           string               `json:"q"`
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Priority    *int                 `json:"priority"`
	DueDate     api.Optional[string] `json:"due_date"`
	Status      *domain.TaskStatus   `json:"status"`
	Completed   *bool                `json:"completed"`
	Assignee    api.Optional[string] `json:"assignee"`
	Body        string               `json:"body"`
}

func bindTaskArgs(req mcpgo.CallToolRequest) (*taskArgs, error) {
	var args taskArgs
	if err := req.BindArguments(&args); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return &args, nil
}

func taskIDParam() mcpgo.ToolOption {
	return mcpgo.WithString("task_id", mcpgo.Required(), mcpgo.Description("The task ID"))
}

func statusParam(desc string) mcpgo.ToolOption {
	return mcpgo.WithString("status", mcpgo.Enum(statusEnum...), mcpgo.Description(desc))
}

func priorityParam(desc string) mcpgo.ToolOption {
	return mcpgo.WithNumber("priority", mcpgo.Min(0), mcpgo.Max(3), mcpgo.Description(desc))
}

// registerTaskTools adds the tools both endpoints share.
func (g *Gateway) registerTaskTools(s *server.MCPServer) {
	g.addTool(s, mcpgo.NewTool("list_tasks",
		mcpgo.WithDescription("List tasks in the project. Supports filtering by status, priority, and text search."),
		statusParam("Filter by task status"),
		priorityParam("Filter by priority (1=low, 2=medium, 3=high)"),
		mcpgo.WithString("q", mcpgo.Description("Full-text search query")),
	), g.listTasks)

	g.addTool(s, mcpgo.NewTool("get_task",
		mcpgo.WithDescription("Get details of a specific task by ID."),
		taskIDParam(),
	), g.getTask)

	g.addTool(s, mcpgo.NewTool("create_task",
		mcpgo.WithDescription("Create a new task in the project."),
		mcpgo.WithString("title", mcpgo.Required(), mcpgo.Description("Task title")),
		mcpgo.WithString("description", mcpgo.Description("Task description")),
		priorityParam("Priority: 0=none, 1=low, 2=medium, 3=high"),
		mcpgo.WithString("due_date", mcpgo.Description("Due date in YYYY-MM-DD format")),
		statusParam("Initial status (default: todo)"),
		mcpgo.WithString("assignee", mcpgo.Description("Assignee name")),
	), g.createTask)

	g.addTool(s, mcpgo.NewTool("update_task",
		mcpgo.WithDescription("Update an existing task's fields."),
		taskIDParam(),
		mcpgo.WithString("title", mcpgo.Description("New title")),
		mcpgo.WithString("description", mcpgo.Description("New description")),
		priorityParam("New priority"),
		mcpgo.WithString("due_date", mcpgo.Description("New due date (YYYY-MM-DD) or null to clear")),
		mcpgo.WithBoolean("completed", mcpgo.Description("Mark as completed or not")),
		statusParam("New status"),
		mcpgo.WithString("assignee", mcpgo.Description("New assignee name or null to unassign")),
	), g.updateTask)

	g.addTool(s, mcpgo.NewTool("complete_task",
		mcpgo.WithDescription("Mark a task as completed."),
		taskIDParam(),
	), g.completeTask)

	g.addTool(s, mcpgo.NewTool("delete_task",
		mcpgo.WithDescription("Delete a task permanently."),
		taskIDParam(),
	), g.deleteTask)

	g.addTool(s, mcpgo.NewTool("add_comment",
		mcpgo.WithDescription("Add a comment to a task."),
		taskIDParam(),
		mcpgo.WithString("body", mcpgo.Required(), mcpgo.Description("The comment text")),
	), g.addComment)

	g.addTool(s, mcpgo.NewTool("list_comments",
		mcpgo.WithDescription("List all comments on a task."),
		taskIDParam(),
	), g.listComments)
}

// registerBoardTools adds the tools only the OAuth endpoint offers on top of the task tools.
func (g *Gateway) registerBoardTools(s *server.MCPServer) {
	g.addTool(s, mcpgo.NewTool("search_tasks",
		mcpgo.WithDescription("Search for tasks by title or description in the current project."),
		mcpgo.WithString("q", mcpgo.Required(), mcpgo.Description("Search query (title or description)")),
		statusParam("Filter by task status"),
		priorityParam("Filter by priority (1=low, 2=medium, 3=high)"),
	), g.searchTasks)

	g.addTool(s, mcpgo.NewTool("claim_task",
		mcpgo.WithDescription("Claim a task so others know you are working on it."),
		taskIDParam(),
	), g.claimTask)

	g.addTool(s, mcpgo.NewTool("get_project",
		mcpgo.WithDescription("Get details of the current project (name, description, creation date)."),
	), g.getProject)

	g.addTool(s, mcpgo.NewTool("list_labels",
		mcpgo.WithDescription("List all labels available in the project for tagging tasks."),
	), g.listLabels)
}

func (g *Gateway) filteredTasks(ctx context.Context, tool string, req mcpgo.CallToolRequest, requireQuery bool) (*mcpgo.CallToolResult, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return g.toolError(ctx, tool, err), nil
	}
	args, err := bindTaskArgs(req)
	if err != nil {
		return g.toolError(ctx, tool, err), nil
	}
	if requireQuery && args.Q == "" {
		return mcpgo.NewToolResultError("q is required"), nil
	}

	filter := domain.TaskFilter{Query: args.Q}
	if args.Status != nil {
		if !args.Status.Valid() {
			return mcpgo.NewToolResultError(fmt.Sprintf("unknown status %q", *args.Status)), nil
		}
		filter.Status = *args.Status
	}
	if args.Priority != nil {
		filter.Priority = *args.Priority
	}

	tasks, err := g.tasks.List(ctx, p.ProjectID, filter)
	if err != nil {
		return g.toolError(ctx, tool, err), nil
	}
	return jsonResult(tasks)
}

func (g *Gateway) listTasks(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return g.filteredTasks(ctx, "list_tasks", req, false)
}

func (g *Gateway) searchTasks(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return g.filteredTasks(ctx, "search_tasks", req, true)
}

func (g *Gateway) getTask(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return g.toolError(ctx, "get_task", err), nil
	}
	taskID, err := req.RequireString("task_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	task, err := g.tasks.Get(ctx, p.ProjectID, taskID)
	if err != nil {
		return g.toolError(ctx, "get_task", err), nil
	}
	return jsonResult(task)
}

func (g *Gateway) createTask(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return g.toolError(ctx, "create_task", err), nil
	}
	args, err := bindTaskArgs(req)
	if err != nil {
		return g.toolError(ctx, "create_task", err), nil
	}

	in := services.TaskInput{
		DueDate:  args.DueDate.Value,
		Assignee: args.Assignee.Value,
	}
	if args.Title != nil {
		in.Title = *args.Title
	}
	if args.Description != nil {
		in.Description = *args.Description
	}
	if args.Priority != nil {
		in.Priority = *args.Priority
	}
	if args.Status != nil {
		in.Status = *args.Status
	}

	task, err := g.tasks.Create(ctx, p.ProjectID, p.Actor(), in)
	if err != nil {
		return g.toolError(ctx, "create_task", err), nil
	}
	return jsonResult(map[string]any{"id": task.ID, "title": task.Title, "status": task.Status})
}

func (g *Gateway) updateTask(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return g.toolError(ctx, "update_task", err), nil
	}
	args, err := bindTaskArgs(req)
	if err != nil {
		return g.toolError(ctx, "update_task", err), nil
	}
	if args.TaskID == "" {
		return mcpgo.NewToolResultError("task_id is required"), nil
	}

	task, err := g.tasks.Update(ctx, p.ProjectID, p.Actor(), args.TaskID, domain.TaskPatch{
		Title:       args.Title,
		Description: args.Description,
		Priority:    args.Priority,
		DueDate:     args.DueDate.Patch(),
		Completed:   args.Completed,
		Status:      args.Status,
		Assignee:    args.Assignee.Patch(),
	})
	if err != nil {
		return g.toolError(ctx, "update_task", err), nil
	}
	return mcpgo.NewToolResultText(fmt.Sprintf("Task %s updated successfully.", task.ID)), nil
}

func (g *Gateway) completeTask(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return g.toolError(ctx, "complete_task", err), nil
	}
	taskID, err := req.RequireString("task_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	task, err := g.tasks.Complete(ctx, p.ProjectID, p.Actor(), taskID)
	if err != nil {
		return g.toolError(ctx, "complete_task", err), nil
	}
	return mcpgo.NewToolResultText(fmt.Sprintf("Task %q marked as completed.", task.Title)), nil
}

func (g *Gateway) deleteTask(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return g.toolError(ctx, "delete_task", err), nil
	}
	taskID, err := req.RequireString("task_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	task, err := g.tasks.Delete(ctx, p.ProjectID, p.Actor(), taskID)
	if err != nil {
		return g.toolError(ctx, "delete_task", err), nil
	}
	return mcpgo.NewToolResultText(fmt.Sprintf("Task %q deleted.", task.Title)), nil
}

func (g *Gateway) claimTask(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return g.toolError(ctx, "claim_task", err), nil
	}
	taskID, err := req.RequireString("task_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	task, err := g.tasks.Claim(ctx, p.ProjectID, p.Actor(), p.AgentName, taskID)
	if err != nil {
		return g.toolError(ctx, "claim_task", err), nil
	}
	return mcpgo.NewToolResultText(fmt.Sprintf("Task %q claimed by %s.", task.Title, p.AgentName)), nil
}

func (g *Gateway) addComment(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return g.toolError(ctx, "add_comment", err), nil
	}
	args, err := bindTaskArgs(req)
	if err != nil {
		return g.toolError(ctx, "add_comment", err), nil
	}

	_, err = g.comments.Add(ctx, p.ProjectID, args.TaskID, p.Actor(), p.AgentName, domain.AuthorAgent, args.Body)
	if err != nil {
		return g.toolError(ctx, "add_comment", err), nil
	}
	return mcpgo.NewToolResultText("Comment added."), nil
}

func (g *Gateway) listComments(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return g.toolError(ctx, "list_comments", err), nil
	}
	taskID, err := req.RequireString("task_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	comments, err := g.comments.List(ctx, p.ProjectID, taskID)
	if err != nil {
		return g.toolError(ctx, "list_comments", err), nil
	}
	return jsonResult(comments)
}

func (g *Gateway) getProject(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return g.toolError(ctx, "get_project", err), nil
	}
	project, err := g.projects.Get(ctx, p.UserID, p.ProjectID)
	if err != nil {
		return g.toolError(ctx, "get_project", err), nil
	}
	return jsonResult(project)
}

func (g *Gateway) listLabels(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return g.toolError(ctx, "list_labels", err), nil
	}
	labels, err := g.labels.List(ctx, p.ProjectID)
	if err != nil {
		return g.toolError(ctx, "list_labels", err), nil
	}
	return jsonResult(labels)
}
