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

// MaxProjectNameLength bounds project names.
const MaxProjectNameLength = 200

// ProjectService manages projects on behalf of their owner.
// Every lookup is scoped to the owner and reports foreign projects as not found.
type ProjectService struct {
	projects domain.ProjectRepository
	now      func() time.Time
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projects domain.ProjectRepository) *ProjectService {
	return &ProjectService{projects: projects, now: time.Now}
}

// Create creates a project owned by ownerID.
func (s *ProjectService) Create(ctx context.Context, ownerID, name, description string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", domain.ErrInvalidInput)
	}
	if len(name) > MaxProjectNameLength {
		return nil, fmt.Errorf("%w: project name is too long", domain.ErrInvalidInput)
	}
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}

	project := &domain.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		OwnerID:     ownerID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.projects.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	log.Debug().Str("project_id", project.ID).Str("owner_id", ownerID).Msg("Project created")

	return project, nil
}

// Get returns the project if ownerID owns it.
func (s *ProjectService) Get(ctx context.Context, ownerID, projectID string) (*domain.Project, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return project, nil
}

// List returns the owner's projects, newest first.
func (s *ProjectService) List(ctx context.Context, ownerID string) ([]*domain.Project, error) {
	return s.projects.ListProjects(ctx, ownerID)
}

// Search matches q case-insensitively against name and description.
func (s *ProjectService) Search(ctx context.Context, ownerID, q string) ([]*domain.Project, error) {
	all, err := s.projects.ListProjects(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return all, nil
	}

	out := make([]*domain.Project, 0, len(all))
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Update applies patch to an owned project.
func (s *ProjectService) Update(ctx context.Context, ownerID, projectID string, patch domain.ProjectPatch) (*domain.Project, error) {
	if _, err := s.Get(ctx, ownerID, projectID); err != nil {
		return nil, err
	}
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		if trimmed == "" || len(trimmed) > MaxProjectNameLength {
			return nil, fmt.Errorf("%w: invalid project name", domain.ErrInvalidInput)
		}
		patch.Name = &trimmed
	}
	return s.projects.UpdateProject(ctx, projectID, patch)
}

// Delete removes an owned project and everything in it.
func (s *ProjectService) Delete(ctx context.Context, ownerID, projectID string) (*domain.Project, error) {
	project, err := s.Get(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.projects.DeleteProject(ctx, projectID); err != nil {
		return nil, fmt.Errorf("failed to delete project: %w", err)
	}
	log.Info().Str("project_id", projectID).Str("owner_id", ownerID).Msg("Project deleted")
	return project, nil
}

// DefaultProject returns the owner's most recently created project.
// ok is false when the owner has none.
func (s *ProjectService) DefaultProject(ctx context.Context, ownerID string) (project *domain.Project, ok bool, err error) {
	project, err = s.projects.LatestProject(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return project, true, nil
}
