package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.pilab.hu/taskboard/domain"
)

// TaskInput holds the fields of a new task.
type TaskInput struct {
	Title       string
	Description string
	Priority    int
	DueDate     *string
	Status      domain.TaskStatus // defaults to todo
	Assignee    *string
}

// TaskPage is one page of a filtered task listing.
type TaskPage struct {
	Tasks []*domain.Task `json:"tasks"`
	Total int            `json:"total"`
}

// TaskService performs task operations inside one resolved project.
// A task whose project differs from the caller's is reported as not found.
type TaskService struct {
	tasks     domain.TaskRepository
	labels    domain.LabelRepository
	publisher EventPublisher
	now       func() time.Time
}

// NewTaskService creates a new TaskService. publisher may be nil.
func NewTaskService(tasks domain.TaskRepository, labels domain.LabelRepository, publisher EventPublisher) *TaskService {
	return &TaskService{
		tasks:     tasks,
		labels:    labels,
		publisher: publisherOrNop(publisher),
		now:       time.Now,
	}
}

// Get returns a task of projectID.
func (s *TaskService) Get(ctx context.Context, projectID, taskID string) (*domain.Task, error) {
	if taskID == "" {
		return nil, domain.ErrNotFound
	}
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.ProjectID != projectID {
		log.Debug().Str("task_id", taskID).Str("project_id", projectID).Msg("Task belongs to another project")
		return nil, domain.ErrNotFound
	}
	return task, nil
}

// List returns the project's tasks matching filter.
func (s *TaskService) List(ctx context.Context, projectID string, filter domain.TaskFilter) ([]*domain.Task, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, filter.Status)
	}
	filter.Query = strings.TrimSpace(filter.Query)
	return s.tasks.ListTasks(ctx, projectID, filter)
}

// Page returns a page of tasks together with the unpaginated total.
func (s *TaskService) Page(ctx context.Context, projectID string, filter domain.TaskFilter) (*TaskPage, error) {
	tasks, err := s.List(ctx, projectID, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.tasks.CountTasks(ctx, projectID, filter)
	if err != nil {
		return nil, err
	}
	return &TaskPage{Tasks: tasks, Total: total}, nil
}

// Search matches q against title and description.
func (s *TaskService) Search(ctx context.Context, projectID, q string) ([]*domain.Task, error) {
	return s.List(ctx, projectID, domain.TaskFilter{Query: q})
}

// Create appends a task to the project.
func (s *TaskService) Create(ctx context.Context, projectID, actor string, in TaskInput) (*domain.Task, error) {
	status := in.Status
	if status == "" {
		status = domain.StatusTodo
	}
	title := strings.TrimSpace(in.Title)
	if err := domain.ValidateTaskFields(title, in.Priority, status, in.DueDate); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	task := &domain.Task{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Title:       title,
		Description: in.Description,
		Status:      status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Completed:   status == domain.StatusDone,
		Assignee:    in.Assignee,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.publisher.Publish(ctx, newEvent(domain.EventCreated, task, actor, now))

	return task, nil
}

// Update applies patch. Changing status without an explicit completed flag
// marks the task completed exactly when the new status is done.
func (s *TaskService) Update(ctx context.Context, projectID, actor, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	task, err := s.Get(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		task.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		task.DueDate = *patch.DueDate
	}
	if patch.Assignee != nil {
		task.Assignee = *patch.Assignee
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	switch {
	case patch.Completed != nil:
		task.Completed = *patch.Completed
	case patch.Status != nil:
		task.Completed = *patch.Status == domain.StatusDone
	}

	if err := domain.ValidateTaskFields(task.Title, task.Priority, task.Status, task.DueDate); err != nil {
		return nil, err
	}

	return s.save(ctx, task, domain.EventUpdated, actor)
}

// Toggle flips the completed flag.
func (s *TaskService) Toggle(ctx context.Context, projectID, actor, taskID string) (*domain.Task, error) {
	task, err := s.Get(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}
	task.Completed = !task.Completed
	return s.save(ctx, task, domain.EventToggled, actor)
}

// Complete marks the task completed and moves it to done.
func (s *TaskService) Complete(ctx context.Context, projectID, actor, taskID string) (*domain.Task, error) {
	task, err := s.Get(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}
	task.Completed = true
	task.Status = domain.StatusDone
	return s.save(ctx, task, domain.EventToggled, actor)
}

// Move places the task in a column at position.
func (s *TaskService) Move(ctx context.Context, projectID, actor, taskID string, status domain.TaskStatus, position int) (*domain.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	if position < 0 {
		return nil, fmt.Errorf("%w: position must not be negative", domain.ErrInvalidInput)
	}
	task, err := s.Get(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}
	task.Status = status
	task.Position = position
	task.Completed = status == domain.StatusDone
	return s.save(ctx, task, domain.EventUpdated, actor)
}

// Claim records that actor is working on the task. A todo task moves to in_progress.
func (s *TaskService) Claim(ctx context.Context, projectID, actor, agentName, taskID string) (*domain.Task, error) {
	task, err := s.Get(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	task.ClaimedBy = &agentName
	task.ClaimedAt = &now
	if task.Status == domain.StatusTodo {
		task.Status = domain.StatusInProgress
	}
	return s.save(ctx, task, domain.EventUpdated, actor)
}

// Delete removes the task.
func (s *TaskService) Delete(ctx context.Context, projectID, actor, taskID string) (*domain.Task, error) {
	task, err := s.Get(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.DeleteTask(ctx, taskID); err != nil {
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}
	s.publisher.Publish(ctx, newEvent(domain.EventDeleted, task, actor, s.now().UTC()))
	return task, nil
}

// Reorder sets positions from the order of ids. Every id must belong to projectID.
func (s *TaskService) Reorder(ctx context.Context, projectID, actor string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(orderedIDs))
	var first *domain.Task
	for _, id := range orderedIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate task id %q", domain.ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
		task, err := s.Get(ctx, projectID, id)
		if err != nil {
			return err
		}
		if first == nil {
			first = task
		}
	}
	if err := s.tasks.ReorderTasks(ctx, projectID, orderedIDs); err != nil {
		return fmt.Errorf("failed to reorder tasks: %w", err)
	}
	s.publisher.Publish(ctx, newEvent(domain.EventReordered, first, actor, s.now().UTC()))
	return nil
}

// SetLabels replaces the task's labels. Labels from other projects are rejected.
func (s *TaskService) SetLabels(ctx context.Context, projectID, actor, taskID string, labelIDs []string) (*domain.Task, error) {
	task, err := s.Get(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}
	unique := make([]string, 0, len(labelIDs))
	seen := make(map[string]struct{}, len(labelIDs))
	for _, id := range labelIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		label, err := s.labels.GetLabel(ctx, id)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up label %s: %w", id, err)
		}
		if err != nil || label.ProjectID != projectID {
			return nil, fmt.Errorf("%w: unknown label %q", domain.ErrInvalidInput, id)
		}
		unique = append(unique, id)
	}
	if err := s.tasks.SetTaskLabels(ctx, taskID, unique); err != nil {
		return nil, fmt.Errorf("failed to set task labels: %w", err)
	}
	task.LabelIDs = unique
	s.publisher.Publish(ctx, newEvent(domain.EventUpdated, task, actor, s.now().UTC()))
	return task, nil
}

func (s *TaskService) save(ctx context.Context, task *domain.Task, typ domain.EventType, actor string) (*domain.Task, error) {
	now := s.now().UTC()
	task.UpdatedAt = now
	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	s.publisher.Publish(ctx, newEvent(typ, task, actor, now))
	return task, nil
}
