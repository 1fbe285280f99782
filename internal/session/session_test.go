package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Lifecycle(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore(time.Hour)
	s.now = func() time.Time { return now }

	sess := s.Create("github:1", "Octo", "curl", "127.0.0.1")
	require.NotEmpty(t, sess.ID)

	got, err := s.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "github:1", got.UserID)
	assert.Equal(t, "Octo", got.UserName)

	now = now.Add(time.Hour)
	_, err = s.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)

	assert.Equal(t, 1, s.CleanupExpiredSessions())
	_, err = s.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_Delete(t *testing.T) {
	s := NewStore(0)
	assert.Equal(t, 7*24*time.Hour, s.TTL())

	sess := s.Create("u", "n", "", "")
	s.Delete(sess.ID)
	_, err := s.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Zero(t, s.CleanupExpiredSessions())
}
