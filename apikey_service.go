package taskboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/internal/audit"
	"go.pilab.hu/taskboard/internal/metrics"
)

// apiKeyDisplayPrefixLen is how much of the raw key is kept for display.
const apiKeyDisplayPrefixLen = 11

// AgentIdentity is what a valid API key resolves to.
type AgentIdentity struct {
	KeyID     string
	ProjectID string
	AgentName string
}

// CreatedAPIKey carries the plaintext secret. It is returned exactly once.
type CreatedAPIKey struct {
	Key    *domain.APIKey
	Secret string
}

// APIKeyService authenticates agents by project API key and manages those keys.
type APIKeyService struct {
	repo domain.APIKeyRepository
	now  func() time.Time
}

// NewAPIKeyService creates a new APIKeyService.
func NewAPIKeyService(repo domain.APIKeyRepository) *APIKeyService {
	return &APIKeyService{repo: repo, now: time.Now}
}

// SetClock overrides the time source. Tests only.
func (s *APIKeyService) SetClock(now func() time.Time) { s.now = now }

// Authenticate resolves a presented key to its project.
func (s *APIKeyService) Authenticate(ctx context.Context, presented string) (*AgentIdentity, error) {
	if !strings.HasPrefix(presented, APIKeyPrefix) {
		metrics.APIKeyAuthTotal.WithLabelValues("malformed").Inc()
		return nil, ErrMalformedCredential
	}

	keyHash := HashToken(presented)

	key, err := s.repo.TouchAPIKey(ctx, keyHash, s.now())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		// Last-used bookkeeping must not block the agent.
		log.Warn().Err(err).Msg("failed to touch api key, falling back to lookup")
		key, err = s.repo.GetAPIKeyByHash(ctx, keyHash)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.APIKeyAuthTotal.WithLabelValues("unknown").Inc()
			return nil, ErrUnknownCredential
		}
		metrics.APIKeyAuthTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}

	metrics.APIKeyAuthTotal.WithLabelValues("ok").Inc()

	return &AgentIdentity{
		KeyID:     key.ID,
		ProjectID: key.ProjectID,
		AgentName: key.Name,
	}, nil
}

// Create mints a new key for the project.
func (s *APIKeyService) Create(ctx context.Context, projectID, name string) (*CreatedAPIKey, error) {
	name = strings.TrimSpace(name)
	if projectID == "" || name == "" {
		return nil, fmt.Errorf("%w: project and name are required", domain.ErrInvalidInput)
	}

	secret, err := GenerateSecret(APIKeyPrefix)
	if err != nil {
		return nil, err
	}

	key := &domain.APIKey{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		KeyHash:   HashToken(secret),
		KeyPrefix: secret[:apiKeyDisplayPrefixLen],
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateAPIKey(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to create api key: %w", err)
	}

	audit.Log(audit.ActionAPIKeyCreated, key.ID, projectID, key.ID, name, nil)

	return &CreatedAPIKey{Key: key, Secret: secret}, nil
}

// List returns the project's keys without secrets.
func (s *APIKeyService) List(ctx context.Context, projectID string) ([]*domain.APIKey, error) {
	return s.repo.ListAPIKeys(ctx, projectID)
}

// Revoke deletes a key. The key stops working immediately.
func (s *APIKeyService) Revoke(ctx context.Context, projectID, keyID string) error {
	err := s.repo.DeleteAPIKey(ctx, projectID, keyID)
	audit.Log(audit.ActionAPIKeyRevoked, keyID, projectID, keyID, "", err)
	return err
}
