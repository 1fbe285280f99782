package mongodb_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/mongodb"
	"go.pilab.hu/taskboard/mongodb/testutil"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *mongodb.Store {
	t.Helper()
	db := testutil.SetupTestMongoDB(t, "taskboard_test")
	store := mongodb.NewStore(nil, db)
	require.NoError(t, store.EnsureIndexes(context.Background()))
	return store
}

func TestMongoStore_RedeemAuthCode(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	code := &domain.AuthCode{
		Code: "c1", ClientID: "client_x", UserID: "u1", RedirectURI: "http://127.0.0.1/cb",
		CodeChallenge: "ch", Scope: "mcp", ExpiresAt: baseTime.Add(time.Minute), CreatedAt: baseTime,
	}
	require.NoError(t, store.SaveAuthCode(ctx, code))
	assert.ErrorIs(t, store.SaveAuthCode(ctx, code), domain.ErrAlreadyExists)

	_, err := store.RedeemAuthCode(ctx, "c1", code.ExpiresAt)
	assert.ErrorIs(t, err, domain.ErrNotFound, "expired at the exact instant")

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.RedeemAuthCode(ctx, "c1", baseTime); err == nil {
				winners.Add(1)
			} else if !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, winners.Load())

	stored, err := store.GetAuthCode(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, stored.Used)
}

func TestMongoStore_APIKeyTouch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.CreateAPIKey(ctx, &domain.APIKey{ID: "k1", ProjectID: "p1", Name: "a", KeyHash: "h", KeyPrefix: "tm_x", CreatedAt: baseTime}))
	assert.ErrorIs(t,
		store.CreateAPIKey(ctx, &domain.APIKey{ID: "k2", ProjectID: "p1", Name: "b", KeyHash: "h", KeyPrefix: "tm_x", CreatedAt: baseTime}),
		domain.ErrAlreadyExists)

	k, err := store.TouchAPIKey(ctx, "h", baseTime.Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, k.LastUsedAt)
	assert.True(t, k.LastUsedAt.Equal(baseTime.Add(time.Minute)))

	_, err = store.TouchAPIKey(ctx, "missing", baseTime)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMongoStore_TasksAndProjectDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.CreateProject(ctx, &domain.Project{ID: "p1", Name: "P", OwnerID: "u1", CreatedAt: baseTime}))
	due := "2026-04-01"
	for i, id := range []string{"a", "b", "c"} {
		task := &domain.Task{ID: id, ProjectID: "p1", Title: "Task " + id, Status: domain.StatusTodo, CreatedAt: baseTime.Add(time.Duration(i) * time.Second), UpdatedAt: baseTime}
		if id == "c" {
			task.DueDate = &due
		}
		require.NoError(t, store.CreateTask(ctx, task))
		assert.Equal(t, i, task.Position)
	}

	got, err := store.ListTasks(ctx, "p1", domain.TaskFilter{Sort: "due"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].ID, "dated tasks sort first")

	got, err = store.ListTasks(ctx, "p1", domain.TaskFilter{Query: "TASK B"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	require.NoError(t, store.ReorderTasks(ctx, "p1", []string{"c", "b", "a"}))
	a, err := store.GetTask(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, a.Position)

	a.DueDate = nil
	a.Assignee = &due
	require.NoError(t, store.UpdateTask(ctx, a))

	require.NoError(t, store.SaveAccessToken(ctx, &domain.AccessToken{TokenHash: "t", ClientID: "c", UserID: "u1", ProjectID: "p1", Scope: "mcp", ExpiresAt: baseTime.Add(time.Hour), CreatedAt: baseTime}))
	require.NoError(t, store.DeleteProject(ctx, "p1"))

	_, err = store.GetTask(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	tok, err := store.GetAccessToken(ctx, "t")
	require.NoError(t, err)
	assert.Empty(t, tok.ProjectID)
}
