package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.pilab.hu/taskboard/cache"
)

func newTestStore(t *testing.T) (*LoginStateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLoginStateStore(client, "test"), mr
}

func TestLoginStateStore_SingleUse(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "abc", cache.LoginState{CallbackURL: "/api/oauth/authorize?x=1", CodeVerifier: "v"}, time.Minute))
	assert.True(t, mr.Exists("test:login_state:abc"))

	got, err := s.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "/api/oauth/authorize?x=1", got.CallbackURL)
	assert.Equal(t, "v", got.CodeVerifier)

	_, err = s.Consume(ctx, "abc")
	assert.ErrorIs(t, err, cache.ErrStateNotFound)
}

func TestLoginStateStore_Expiry(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "abc", cache.LoginState{CallbackURL: "/"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := s.Consume(ctx, "abc")
	assert.ErrorIs(t, err, cache.ErrStateNotFound)
}
