package services

import (
	"context"
	"time"

	"go.pilab.hu/taskboard/domain"
)

// EventPublisher receives task events after a mutation is stored.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.TaskEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.TaskEvent) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

func newEvent(typ domain.EventType, task *domain.Task, actor string, at time.Time) domain.TaskEvent {
	return domain.TaskEvent{
		Type:      typ,
		TaskID:    task.ID,
		TaskTitle: task.Title,
		Actor:     actor,
		ProjectID: task.ProjectID,
		At:        at,
	}
}
