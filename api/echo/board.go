package echo

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.pilab.hu/taskboard"
	"go.pilab.hu/taskboard/api"
	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/internal/session"
	"go.pilab.hu/taskboard/services"
)

const projectContextKey = "taskboard.project"

// BoardAPI is the session authenticated REST surface used by the web board.
type BoardAPI struct {
	projects *services.ProjectService
	tasks    *services.TaskService
	labels   *services.LabelService
	comments *services.CommentService
	apiKeys  *taskboard.APIKeyService
	sessions *session.Store
}

func NewBoardAPI(
	projects *services.ProjectService,
	tasks *services.TaskService,
	labels *services.LabelService,
	comments *services.CommentService,
	apiKeys *taskboard.APIKeyService,
	sessions *session.Store,
) *BoardAPI {
	return &BoardAPI{
		projects: projects,
		tasks:    tasks,
		labels:   labels,
		comments: comments,
		apiKeys:  apiKeys,
		sessions: sessions,
	}
}

func (b *BoardAPI) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", SessionAuth(b.sessions, true))

	g.GET("/projects", b.listProjects)
	g.POST("/projects", b.createProject)
	g.GET("/tasks/search", b.searchTasks)

	p := g.Group("/projects/:id", b.requireProject)
	p.GET("", b.getProject)
	p.PATCH("", b.updateProject)
	p.DELETE("", b.deleteProject)

	p.GET("/apikeys", b.listAPIKeys)
	p.POST("/apikeys", b.createAPIKey)
	p.DELETE("/apikeys/:keyId", b.revokeAPIKey)

	p.GET("/labels", b.listLabels)
	p.POST("/labels", b.createLabel)
	p.DELETE("/labels/:labelId", b.deleteLabel)

	p.GET("/tasks", b.listTasks)
	p.POST("/tasks", b.createTask)
	p.POST("/tasks/reorder", b.reorderTasks)
	p.GET("/tasks/:taskId", b.getTask)
	p.PATCH("/tasks/:taskId", b.updateTask)
	p.DELETE("/tasks/:taskId", b.deleteTask)
	p.POST("/tasks/:taskId/move", b.moveTask)
	p.POST("/tasks/:taskId/toggle", b.toggleTask)
	p.PUT("/tasks/:taskId/labels", b.setTaskLabels)
	p.GET("/tasks/:taskId/comments", b.listComments)
	p.POST("/tasks/:taskId/comments", b.addComment)
}

// requireProject loads :id and checks that the session user owns it.
func (b *BoardAPI) requireProject(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := currentSession(c)
		project, err := b.projects.Get(c.Request().Context(), sess.UserID, c.Param("id"))
		if err != nil {
			return serviceError(c, err)
		}
		c.Set(projectContextKey, project)
		return next(c)
	}
}

func currentProject(c echo.Context) *domain.Project {
	p, _ := c.Get(projectContextKey).(*domain.Project)
	return p
}

// Projects

func (b *BoardAPI) listProjects(c echo.Context) error {
	sess := currentSession(c)
	var (
		projects []*domain.Project
		err      error
	)
	if q := c.QueryParam("q"); q != "" {
		projects, err = b.projects.Search(c.Request().Context(), sess.UserID, q)
	} else {
		projects, err = b.projects.List(c.Request().Context(), sess.UserID)
	}
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, projects)
}

func (b *BoardAPI) createProject(c echo.Context) error {
	var req api.ProjectRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	var name, description string
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		description = *req.Description
	}
	project, err := b.projects.Create(c.Request().Context(), currentSession(c).UserID, name, description)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, project)
}

func (b *BoardAPI) getProject(c echo.Context) error {
	return c.JSON(http.StatusOK, currentProject(c))
}

func (b *BoardAPI) updateProject(c echo.Context) error {
	var req api.ProjectRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	project, err := b.projects.Update(c.Request().Context(), currentSession(c).UserID, currentProject(c).ID,
		domain.ProjectPatch{Name: req.Name, Description: req.Description})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, project)
}

func (b *BoardAPI) deleteProject(c echo.Context) error {
	if _, err := b.projects.Delete(c.Request().Context(), currentSession(c).UserID, currentProject(c).ID); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// API keys

func (b *BoardAPI) listAPIKeys(c echo.Context) error {
	keys, err := b.apiKeys.List(c.Request().Context(), currentProject(c).ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, keys)
}

func (b *BoardAPI) createAPIKey(c echo.Context) error {
	var req api.APIKeyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	created, err := b.apiKeys.Create(c.Request().Context(), currentProject(c).ID, req.Name)
	if err != nil {
		return serviceError(c, err)
	}
	noStore(c)
	return c.JSON(http.StatusCreated, api.CreatedAPIKey{APIKey: created.Key, Key: created.Secret})
}

func (b *BoardAPI) revokeAPIKey(c echo.Context) error {
	if err := b.apiKeys.Revoke(c.Request().Context(), currentProject(c).ID, c.Param("keyId")); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Labels

func (b *BoardAPI) listLabels(c echo.Context) error {
	labels, err := b.labels.List(c.Request().Context(), currentProject(c).ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, labels)
}

func (b *BoardAPI) createLabel(c echo.Context) error {
	var req api.LabelRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	label, err := b.labels.Create(c.Request().Context(), currentProject(c).ID, req.Name, req.Color)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, label)
}

func (b *BoardAPI) deleteLabel(c echo.Context) error {
	if err := b.labels.Delete(c.Request().Context(), currentProject(c).ID, c.Param("labelId")); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Tasks

func parseTaskFilter(c echo.Context) (domain.TaskFilter, error) {
	filter := domain.TaskFilter{
		Query:  c.QueryParam("q"),
		Status: domain.TaskStatus(c.QueryParam("status")),
		Sort:   c.QueryParam("sort"),
	}
	for name, dst := range map[string]*int{
		"priority": &filter.Priority,
		"limit":    &filter.Limit,
		"offset":   &filter.Offset,
	} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
		}
		*dst = n
	}
	switch filter.Sort {
	case "", "position", "due", "created":
	default:
		return filter, echo.NewHTTPError(http.StatusBadRequest, "sort must be position, due or created")
	}
	return filter, nil
}

func (b *BoardAPI) listTasks(c echo.Context) error {
	filter, err := parseTaskFilter(c)
	if err != nil {
		return err
	}
	page, err := b.tasks.Page(c.Request().Context(), currentProject(c).ID, filter)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (b *BoardAPI) searchTasks(c echo.Context) error {
	ctx := c.Request().Context()
	project, err := b.projects.Get(ctx, currentSession(c).UserID, c.QueryParam("projectId"))
	if err != nil {
		return serviceError(c, err)
	}
	tasks, err := b.tasks.Search(ctx, project.ID, c.QueryParam("q"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, tasks)
}

func (b *BoardAPI) createTask(c echo.Context) error {
	var req api.TaskRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	in := services.TaskInput{
		DueDate:  req.DueDate.Value,
		Assignee: req.Assignee.Value,
	}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Priority != nil {
		in.Priority = *req.Priority
	}
	if req.Status != nil {
		in.Status = *req.Status
	}

	task, err := b.tasks.Create(c.Request().Context(), currentProject(c).ID, currentSession(c).UserName, in)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, task)
}

func (b *BoardAPI) getTask(c echo.Context) error {
	task, err := b.tasks.Get(c.Request().Context(), currentProject(c).ID, c.Param("taskId"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (b *BoardAPI) updateTask(c echo.Context) error {
	var req api.TaskRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	patch := domain.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate.Patch(),
		Completed:   req.Completed,
		Status:      req.Status,
		Assignee:    req.Assignee.Patch(),
	}
	task, err := b.tasks.Update(c.Request().Context(), currentProject(c).ID, currentSession(c).UserName, c.Param("taskId"), patch)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (b *BoardAPI) deleteTask(c echo.Context) error {
	if _, err := b.tasks.Delete(c.Request().Context(), currentProject(c).ID, currentSession(c).UserName, c.Param("taskId")); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (b *BoardAPI) moveTask(c echo.Context) error {
	var req api.MoveRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	task, err := b.tasks.Move(c.Request().Context(), currentProject(c).ID, currentSession(c).UserName,
		c.Param("taskId"), req.Status, req.Position)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (b *BoardAPI) toggleTask(c echo.Context) error {
	task, err := b.tasks.Toggle(c.Request().Context(), currentProject(c).ID, currentSession(c).UserName, c.Param("taskId"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (b *BoardAPI) reorderTasks(c echo.Context) error {
	var req api.ReorderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := b.tasks.Reorder(c.Request().Context(), currentProject(c).ID, currentSession(c).UserName, req.IDs); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (b *BoardAPI) setTaskLabels(c echo.Context) error {
	var req api.LabelsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	task, err := b.tasks.SetLabels(c.Request().Context(), currentProject(c).ID, currentSession(c).UserName,
		c.Param("taskId"), req.LabelIDs)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// Comments

func (b *BoardAPI) listComments(c echo.Context) error {
	comments, err := b.comments.List(c.Request().Context(), currentProject(c).ID, c.Param("taskId"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, comments)
}

func (b *BoardAPI) addComment(c echo.Context) error {
	var req api.CommentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	sess := currentSession(c)
	comment, err := b.comments.Add(c.Request().Context(), currentProject(c).ID, c.Param("taskId"),
		sess.UserName, sess.UserName, domain.AuthorHuman, req.Body)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, comment)
}
