package echo

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.pilab.hu/taskboard/api"
	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/events"
	"go.pilab.hu/taskboard/internal/session"
	"go.pilab.hu/taskboard/services"
)

const heartbeatInterval = 20 * time.Second

// StreamAPI serves live task events and presence over server-sent events.
type StreamAPI struct {
	hub       *events.Hub
	projects  *services.ProjectService
	sessions  *session.Store
	heartbeat time.Duration
}

func NewStreamAPI(hub *events.Hub, projects *services.ProjectService, sessions *session.Store) *StreamAPI {
	return &StreamAPI{
		hub:       hub,
		projects:  projects,
		sessions:  sessions,
		heartbeat: heartbeatInterval,
	}
}

func (s *StreamAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/tasks/stream", s.StreamHandler, SessionAuth(s.sessions, true))
}

// StreamHandler keeps the connection open until the client goes away.
func (s *StreamAPI) StreamHandler(c echo.Context) error {
	ctx := c.Request().Context()
	sess := currentSession(c)

	projectID := c.QueryParam("projectId")
	if projectID == "" {
		return badRequest(c, "projectId is required")
	}
	if _, err := s.projects.Get(ctx, sess.UserID, projectID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return serviceError(c, err)
	}

	actor := c.QueryParam("actor")
	if actor == "" {
		actor = sess.UserName
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache, no-transform")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	sub := s.hub.Subscribe(projectID, actor)
	defer s.hub.Unsubscribe(sub)

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case roster, ok := <-sub.Presence():
			if !ok {
				return nil
			}
			if err := writeEvent(res, "presence", api.PresencePayload{Roster: roster}); err != nil {
				return nil
			}
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := writeEvent(res, "task_event", ev); err != nil {
				return nil
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": heartbeat\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeEvent(res *echo.Response, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
