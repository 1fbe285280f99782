package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.pilab.hu/taskboard/domain"
)

// LabelService manages the labels of a project.
type LabelService struct {
	labels domain.LabelRepository
}

// NewLabelService creates a new LabelService.
func NewLabelService(labels domain.LabelRepository) *LabelService {
	return &LabelService{labels: labels}
}

// Create adds a label. color must come from domain.LabelColors.
func (s *LabelService) Create(ctx context.Context, projectID, name, color string) (*domain.Label, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: label name is required", domain.ErrInvalidInput)
	}
	if !domain.ValidLabelColor(color) {
		return nil, fmt.Errorf("%w: color %q is not in the palette", domain.ErrInvalidInput, color)
	}

	label := &domain.Label{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		Color:     color,
	}
	if err := s.labels.CreateLabel(ctx, label); err != nil {
		return nil, fmt.Errorf("failed to create label: %w", err)
	}
	return label, nil
}

func (s *LabelService) List(ctx context.Context, projectID string) ([]*domain.Label, error) {
	return s.labels.ListLabels(ctx, projectID)
}

// Delete removes a label of projectID together with its task links.
func (s *LabelService) Delete(ctx context.Context, projectID, labelID string) error {
	label, err := s.labels.GetLabel(ctx, labelID)
	if err != nil {
		return err
	}
	if label.ProjectID != projectID {
		return domain.ErrNotFound
	}
	return s.labels.DeleteLabel(ctx, labelID)
}
