package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryLoginStateStore implements LoginStateStore using ttlcache.
type MemoryLoginStateStore struct {
	cache *ttlcache.Cache[string, LoginState]
}

// NewMemoryLoginStateStore creates a store with automatic cleanup of expired states.
// Call Stop when done.
func NewMemoryLoginStateStore() *MemoryLoginStateStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, LoginState](DefaultLoginStateTTL),
		ttlcache.WithDisableTouchOnHit[string, LoginState](),
	)

	go cache.Start()

	return &MemoryLoginStateStore{cache: cache}
}

// Put implements LoginStateStore.Put.
func (s *MemoryLoginStateStore) Put(_ context.Context, state string, value LoginState, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultLoginStateTTL
	}
	s.cache.Set(state, value, ttl)
	return nil
}

// Consume implements LoginStateStore.Consume.
func (s *MemoryLoginStateStore) Consume(_ context.Context, state string) (*LoginState, error) {
	item, ok := s.cache.GetAndDelete(state)
	if !ok || item == nil || item.IsExpired() {
		return nil, ErrStateNotFound
	}
	value := item.Value()
	return &value, nil
}

// Stop halts the cleanup goroutine.
func (s *MemoryLoginStateStore) Stop() {
	s.cache.Stop()
}

var _ LoginStateStore = (*MemoryLoginStateStore)(nil)
