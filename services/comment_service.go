package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.pilab.hu/taskboard/domain"
)

// MaxCommentLength bounds comment bodies in bytes.
const MaxCommentLength = 10000

// CommentService adds and lists task comments.
type CommentService struct {
	tasks     *TaskService
	comments  domain.CommentRepository
	publisher EventPublisher
	now       func() time.Time
}

// NewCommentService creates a new CommentService.
func NewCommentService(tasks *TaskService, comments domain.CommentRepository, publisher EventPublisher) *CommentService {
	return &CommentService{
		tasks:     tasks,
		comments:  comments,
		publisher: publisherOrNop(publisher),
		now:       time.Now,
	}
}

// Add attaches a comment to a task of projectID and announces it as a task update.
func (s *CommentService) Add(ctx context.Context, projectID, taskID, actor, author string, authorType domain.AuthorType, body string) (*domain.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: comment body is required", domain.ErrInvalidInput)
	}
	if len(body) > MaxCommentLength {
		return nil, fmt.Errorf("%w: comment is too long", domain.ErrInvalidInput)
	}
	if authorType != domain.AuthorHuman && authorType != domain.AuthorAgent {
		return nil, fmt.Errorf("%w: unknown author type %q", domain.ErrInvalidInput, authorType)
	}

	task, err := s.tasks.Get(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	comment := &domain.Comment{
		ID:         uuid.NewString(),
		TaskID:     task.ID,
		Author:     author,
		AuthorType: authorType,
		Body:       body,
		CreatedAt:  now,
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.publisher.Publish(ctx, newEvent(domain.EventUpdated, task, actor, now))

	return comment, nil
}

// List returns the comments of a task of projectID, oldest first.
func (s *CommentService) List(ctx context.Context, projectID, taskID string) ([]*domain.Comment, error) {
	if _, err := s.tasks.Get(ctx, projectID, taskID); err != nil {
		return nil, err
	}
	return s.comments.ListComments(ctx, taskID)
}
