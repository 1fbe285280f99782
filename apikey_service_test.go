package taskboard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.pilab.hu/taskboard/domain"
)

func TestAPIKeyService_Authenticate(t *testing.T) {
	raw := "tm_abcdefghijklmnopqrstuvwxyz"
	key := &domain.APIKey{ID: "k1", ProjectID: "p1", Name: "ci-bot", KeyHash: HashToken(raw)}

	t.Run("malformed key is rejected without lookup", func(t *testing.T) {
		repo := new(MockAPIKeyRepository)
		svc := NewAPIKeyService(repo)

		_, err := svc.Authenticate(context.Background(), "sk_live_123")
		assert.ErrorIs(t, err, ErrMalformedCredential)
		repo.AssertNotCalled(t, "TouchAPIKey", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("valid key touches last_used_at", func(t *testing.T) {
		now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		repo := new(MockAPIKeyRepository)
		repo.On("TouchAPIKey", mock.Anything, HashToken(raw), now).Return(key, nil)
		svc := NewAPIKeyService(repo)
		svc.SetClock(func() time.Time { return now })

		id, err := svc.Authenticate(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, &AgentIdentity{KeyID: "k1", ProjectID: "p1", AgentName: "ci-bot"}, id)
		repo.AssertExpectations(t)
	})

	t.Run("unknown key", func(t *testing.T) {
		repo := new(MockAPIKeyRepository)
		repo.On("TouchAPIKey", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
		svc := NewAPIKeyService(repo)

		_, err := svc.Authenticate(context.Background(), "tm_revoked")
		assert.ErrorIs(t, err, ErrUnknownCredential)
		repo.AssertNotCalled(t, "GetAPIKeyByHash", mock.Anything, mock.Anything)
	})

	t.Run("touch failure falls back to read-only lookup", func(t *testing.T) {
		repo := new(MockAPIKeyRepository)
		repo.On("TouchAPIKey", mock.Anything, HashToken(raw), mock.Anything).Return(nil, errors.New("database is locked"))
		repo.On("GetAPIKeyByHash", mock.Anything, HashToken(raw)).Return(key, nil)
		svc := NewAPIKeyService(repo)

		id, err := svc.Authenticate(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, "p1", id.ProjectID)
		repo.AssertExpectations(t)
	})

	t.Run("fallback lookup also fails", func(t *testing.T) {
		repo := new(MockAPIKeyRepository)
		repo.On("TouchAPIKey", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("locked"))
		repo.On("GetAPIKeyByHash", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
		svc := NewAPIKeyService(repo)

		_, err := svc.Authenticate(context.Background(), raw)
		assert.ErrorIs(t, err, ErrUnknownCredential)
	})
}

func TestAPIKeyService_Create(t *testing.T) {
	repo := new(MockAPIKeyRepository)
	var saved *domain.APIKey
	repo.On("CreateAPIKey", mock.Anything, mock.AnythingOfType("*domain.APIKey")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.APIKey) }).
		Return(nil)
	svc := NewAPIKeyService(repo)

	created, err := svc.Create(context.Background(), "p1", "  deploy bot ")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(created.Secret, APIKeyPrefix))
	assert.Equal(t, "deploy bot", saved.Name)
	assert.Equal(t, HashToken(created.Secret), saved.KeyHash)
	assert.Equal(t, created.Secret[:11], saved.KeyPrefix)
	assert.NotContains(t, saved.KeyHash, created.Secret)
	assert.NotEmpty(t, saved.ID)
}

func TestAPIKeyService_CreateRequiresName(t *testing.T) {
	svc := NewAPIKeyService(new(MockAPIKeyRepository))
	_, err := svc.Create(context.Background(), "p1", " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAPIKeyService_Revoke(t *testing.T) {
	repo := new(MockAPIKeyRepository)
	repo.On("DeleteAPIKey", mock.Anything, "p1", "k1").Return(nil)
	repo.On("DeleteAPIKey", mock.Anything, "p1", "missing").Return(domain.ErrNotFound)
	svc := NewAPIKeyService(repo)

	assert.NoError(t, svc.Revoke(context.Background(), "p1", "k1"))
	assert.ErrorIs(t, svc.Revoke(context.Background(), "p1", "missing"), domain.ErrNotFound)
}
