package domain

import (
	"fmt"
	"time"
)

// TaskStatus is the board column a task sits in.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Priority levels. Zero means no priority.
const (
	PriorityNone   = 0
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 3
)

// DueDateLayout is the wire and storage format of Task.DueDate.
const DueDateLayout = "2006-01-02"

// Task is a unit of work inside a project.
type Task struct {
	ID          string     `bson:"_id"                  json:"id"`
	ProjectID   string     `bson:"project_id"           json:"project_id"`
	Title       string     `bson:"title"                json:"title"`
	Description string     `bson:"description"          json:"description"`
	Status      TaskStatus `bson:"status"               json:"status"`
	Priority    int        `bson:"priority"             json:"priority"`
	DueDate     *string    `bson:"due_date,omitempty"   json:"due_date"`
	Position    int        `bson:"position"             json:"position"`
	Completed   bool       `bson:"completed"            json:"completed"`
	Assignee    *string    `bson:"assignee,omitempty"   json:"assignee"`
	ClaimedBy   *string    `bson:"claimed_by,omitempty" json:"claimed_by"`
	ClaimedAt   *time.Time `bson:"claimed_at,omitempty" json:"claimed_at,omitempty"`
	LabelIDs    []string   `bson:"label_ids,omitempty"  json:"label_ids,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"           json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"           json:"updated_at"`
}

// TaskFilter narrows ListTasks. Zero values do not filter.
type TaskFilter struct {
	Query    string
	Status   TaskStatus
	Priority int
	Sort     string // "position" (default), "due" or "created"
	Limit    int
	Offset   int
}

// TaskPatch carries optional task changes. A non-nil pointer to a nil value clears the field.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *int
	DueDate     **string
	Completed   *bool
	Status      *TaskStatus
	Assignee    **string
}

// ValidateTaskFields checks the invariants shared by create and update.
func ValidateTaskFields(title string, priority int, status TaskStatus, dueDate *string) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if priority < PriorityNone || priority > PriorityHigh {
		return fmt.Errorf("%w: priority must be between 0 and 3", ErrInvalidInput)
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if dueDate != nil {
		if _, err := time.Parse(DueDateLayout, *dueDate); err != nil {
			return fmt.Errorf("%w: due_date must be YYYY-MM-DD", ErrInvalidInput)
		}
	}
	return nil
}

// Label tags tasks within a project.
type Label struct {
	ID        string `bson:"_id"        json:"id"`
	ProjectID string `bson:"project_id" json:"project_id"`
	Name      string `bson:"name"       json:"name"`
	Color     string `bson:"color"      json:"color"`
}

// LabelColors is the fixed label palette.
var LabelColors = []struct {
	Name  string
	Value string
}{
	{"Gray", "#6b7280"},
	{"Red", "#ef4444"},
	{"Orange", "#f97316"},
	{"Amber", "#f59e0b"},
	{"Green", "#22c55e"},
	{"Teal", "#14b8a6"},
	{"Blue", "#3b82f6"},
	{"Indigo", "#6366f1"},
	{"Purple", "#a855f7"},
}

// ValidLabelColor reports whether color belongs to the palette.
func ValidLabelColor(color string) bool {
	for _, c := range LabelColors {
		if c.Value == color {
			return true
		}
	}
	return false
}

// AuthorType distinguishes comments written by people from those written by agents.
type AuthorType string

const (
	AuthorHuman AuthorType = "human"
	AuthorAgent AuthorType = "agent"
)

// Comment is a note attached to a task.
type Comment struct {
	ID         string     `bson:"_id"         json:"id"`
	TaskID     string     `bson:"task_id"     json:"task_id"`
	Author     string     `bson:"author"      json:"author"`
	AuthorType AuthorType `bson:"author_type" json:"author_type"`
	Body       string     `bson:"body"        json:"body"`
	CreatedAt  time.Time  `bson:"created_at"  json:"created_at"`
}
