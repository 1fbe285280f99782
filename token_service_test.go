package taskboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.pilab.hu/taskboard/domain"
)

func TestTokenService_Validate(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	raw := "mcp_testtoken"
	stored := &domain.AccessToken{
		TokenHash: HashToken(raw),
		ClientID:  "client_x",
		UserID:    "github:1",
		ProjectID: "p1",
		Scope:     DefaultScope,
		ExpiresAt: now.Add(time.Hour),
	}

	t.Run("valid", func(t *testing.T) {
		repo := new(MockTokenRepository)
		repo.On("GetAccessToken", mock.Anything, HashToken(raw)).Return(stored, nil)
		svc := NewTokenService(repo)
		svc.SetClock(func() time.Time { return now })

		claims, err := svc.Validate(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, "github:1", claims.UserID)
		assert.Equal(t, "p1", claims.ProjectID)
		assert.Equal(t, "client_x", claims.ClientID)
		repo.AssertExpectations(t)
	})

	t.Run("expires exactly at expires_at", func(t *testing.T) {
		repo := new(MockTokenRepository)
		repo.On("GetAccessToken", mock.Anything, HashToken(raw)).Return(stored, nil)
		svc := NewTokenService(repo)

		svc.SetClock(func() time.Time { return stored.ExpiresAt.Add(-time.Millisecond) })
		_, err := svc.Validate(context.Background(), raw)
		assert.NoError(t, err)

		svc.SetClock(func() time.Time { return stored.ExpiresAt })
		_, err = svc.Validate(context.Background(), raw)
		assert.ErrorIs(t, err, ErrExpiredCredential)
	})

	t.Run("unknown", func(t *testing.T) {
		repo := new(MockTokenRepository)
		repo.On("GetAccessToken", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
		svc := NewTokenService(repo)

		_, err := svc.Validate(context.Background(), "mcp_other")
		assert.ErrorIs(t, err, ErrUnknownCredential)
	})

	t.Run("empty", func(t *testing.T) {
		repo := new(MockTokenRepository)
		svc := NewTokenService(repo)

		_, err := svc.Validate(context.Background(), "")
		assert.ErrorIs(t, err, ErrMalformedCredential)
		repo.AssertNotCalled(t, "GetAccessToken", mock.Anything, mock.Anything)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := new(MockTokenRepository)
		repo.On("GetAccessToken", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
		svc := NewTokenService(repo)

		_, err := svc.Validate(context.Background(), raw)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnknownCredential)
	})
}

func TestTokenService_BindProject(t *testing.T) {
	repo := new(MockTokenRepository)
	repo.On("UpdateTokenProject", mock.Anything, "hash", "p2").Return(nil)

	svc := NewTokenService(repo)
	require.NoError(t, svc.BindProject(context.Background(), "hash", "p2"))
	repo.AssertExpectations(t)

	repo2 := new(MockTokenRepository)
	repo2.On("UpdateTokenProject", mock.Anything, "hash", "p2").Return(domain.ErrNotFound)
	err := NewTokenService(repo2).BindProject(context.Background(), "hash", "p2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
