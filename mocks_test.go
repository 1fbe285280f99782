package taskboard

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.pilab.hu/taskboard/domain"
)

// --- Mock AuthCodeRepository ---
type MockAuthCodeRepository struct {
	mock.Mock
}

func (m *MockAuthCodeRepository) SaveAuthCode(ctx context.Context, code *domain.AuthCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockAuthCodeRepository) RedeemAuthCode(ctx context.Context, code string, now time.Time) (*domain.AuthCode, error) {
	args := m.Called(ctx, code, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthCode), args.Error(1)
}

func (m *MockAuthCodeRepository) GetAuthCode(ctx context.Context, code string) (*domain.AuthCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthCode), args.Error(1)
}

func (m *MockAuthCodeRepository) DeleteExpiredAuthCodes(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock TokenRepository ---
type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) SaveAccessToken(ctx context.Context, token *domain.AccessToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenRepository) GetAccessToken(ctx context.Context, tokenHash string) (*domain.AccessToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccessToken), args.Error(1)
}

func (m *MockTokenRepository) UpdateTokenProject(ctx context.Context, tokenHash, projectID string) error {
	args := m.Called(ctx, tokenHash, projectID)
	return args.Error(0)
}

func (m *MockTokenRepository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock APIKeyRepository ---
type MockAPIKeyRepository struct {
	mock.Mock
}

func (m *MockAPIKeyRepository) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) ListAPIKeys(ctx context.Context, projectID string) ([]*domain.APIKey, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) DeleteAPIKey(ctx context.Context, projectID, id string) error {
	args := m.Called(ctx, projectID, id)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) TouchAPIKey(ctx context.Context, keyHash string, at time.Time) (*domain.APIKey, error) {
	args := m.Called(ctx, keyHash, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	args := m.Called(ctx, keyHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

// memCodeRepository holds codes in memory with a real check-and-set so races
// can be exercised without a database.
type memCodeRepository struct {
	mu    sync.Mutex
	codes map[string]*domain.AuthCode
}

func newMemCodeRepository() *memCodeRepository {
	return &memCodeRepository{codes: map[string]*domain.AuthCode{}}
}

func (r *memCodeRepository) SaveAuthCode(_ context.Context, code *domain.AuthCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *code
	r.codes[code.Code] = &c
	return nil
}

func (r *memCodeRepository) RedeemAuthCode(_ context.Context, code string, now time.Time) (*domain.AuthCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[code]
	if !ok || c.Used || c.IsExpired(now) {
		return nil, domain.ErrNotFound
	}
	c.Used = true
	out := *c
	return &out, nil
}

func (r *memCodeRepository) GetAuthCode(_ context.Context, code string) (*domain.AuthCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (r *memCodeRepository) DeleteExpiredAuthCodes(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, c := range r.codes {
		if c.ExpiresAt.Before(now) {
			delete(r.codes, k)
			n++
		}
	}
	return n, nil
}

// memTokenRepository is the token counterpart of memCodeRepository.
type memTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*domain.AccessToken
}

func newMemTokenRepository() *memTokenRepository {
	return &memTokenRepository{tokens: map[string]*domain.AccessToken{}}
}

func (r *memTokenRepository) SaveAccessToken(_ context.Context, token *domain.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := *token
	r.tokens[token.TokenHash] = &t
	return nil
}

func (r *memTokenRepository) GetAccessToken(_ context.Context, tokenHash string) (*domain.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (r *memTokenRepository) UpdateTokenProject(_ context.Context, tokenHash, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenHash]
	if !ok {
		return domain.ErrNotFound
	}
	t.ProjectID = projectID
	return nil
}

func (r *memTokenRepository) DeleteExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, t := range r.tokens {
		if t.ExpiresAt.Before(now) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r *memTokenRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

func mockAccessToken(hash string, expiresAt time.Time) *domain.AccessToken {
	return &domain.AccessToken{TokenHash: hash, ExpiresAt: expiresAt}
}
