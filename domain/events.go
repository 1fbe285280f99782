package domain

import "time"

// EventType names a task mutation.
type EventType string

const (
	EventCreated   EventType = "created"
	EventUpdated   EventType = "updated"
	EventDeleted   EventType = "deleted"
	EventToggled   EventType = "toggled"
	EventReordered EventType = "reordered"
)

// TaskEvent is broadcast to stream subscribers of a project after every mutation.
//
//nolint:tagliatelle
type TaskEvent struct {
	Type      EventType `json:"type"`
	TaskID    string    `json:"taskId"`
	TaskTitle string    `json:"taskTitle"`
	Actor     string    `json:"actor"`
	ProjectID string    `json:"projectId"`
	At        time.Time `json:"at"`
}
