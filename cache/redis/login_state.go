package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.pilab.hu/taskboard/cache"
)

// LoginStateStore implements cache.LoginStateStore on Redis so any instance can finish a login.
type LoginStateStore struct {
	client redis.UniversalClient
	prefix string // Optional prefix for keys
}

// NewLoginStateStore creates a new [LoginStateStore] instance
func NewLoginStateStore(client redis.UniversalClient, prefix string) *LoginStateStore {
	return &LoginStateStore{
		client: client,
		prefix: prefix,
	}
}

func (r *LoginStateStore) redisKey(state string) string {
	return fmt.Sprintf("%s:login_state:%s", r.prefix, state)
}

// Put stores the state with a TTL.
func (r *LoginStateStore) Put(ctx context.Context, state string, value cache.LoginState, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.DefaultLoginStateTTL
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal login state: %w", err)
	}
	if err := r.client.Set(ctx, r.redisKey(state), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set login state in Redis: %w", err)
	}
	return nil
}

// Consume reads and deletes the state in one GETDEL.
func (r *LoginStateStore) Consume(ctx context.Context, state string) (*cache.LoginState, error) {
	raw, err := r.client.GetDel(ctx, r.redisKey(state)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cache.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read login state from Redis: %w", err)
	}

	var value cache.LoginState
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal login state: %w", err)
	}
	return &value, nil
}

var _ cache.LoginStateStore = (*LoginStateStore)(nil)
