package taskboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct{ removed int }

func (f *fakeSessions) CleanupExpiredSessions() int { return f.removed }

func TestSweeper_SweepOnce(t *testing.T) {
	codes := new(MockAuthCodeRepository)
	tokens := new(MockTokenRepository)
	codes.On("DeleteExpiredAuthCodes", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(3), nil)
	tokens.On("DeleteExpiredTokens", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(5), nil)

	s := NewSweeper(codes, tokens, &fakeSessions{removed: 2}, nil)
	res, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{AuthCodes: 3, Tokens: 5, Sessions: 2}, res)
}

func TestSweeper_SweepOnce_StopsOnError(t *testing.T) {
	codes := new(MockAuthCodeRepository)
	tokens := new(MockTokenRepository)
	codes.On("DeleteExpiredAuthCodes", mock.Anything, mock.Anything).Return(int64(0), errors.New("boom"))

	s := NewSweeper(codes, tokens, nil, nil)
	_, err := s.SweepOnce(context.Background())
	assert.Error(t, err)
	tokens.AssertNotCalled(t, "DeleteExpiredTokens", mock.Anything, mock.Anything)
}

func TestSweeper_RunOnceWithoutInterval(t *testing.T) {
	codes := newMemCodeRepository()
	tokens := newMemTokenRepository()
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	require.NoError(t, tokens.SaveAccessToken(ctx, mockAccessToken("old", past)))
	require.NoError(t, tokens.SaveAccessToken(ctx, mockAccessToken("fresh", time.Now().Add(time.Hour))))

	s := NewSweeper(codes, tokens, nil, nil)
	require.NoError(t, s.Run(ctx, 0))
	assert.Equal(t, 1, tokens.count())
}

func TestSweeper_RunStopsWithContext(t *testing.T) {
	s := NewSweeper(newMemCodeRepository(), newMemTokenRepository(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, 10*time.Millisecond) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
