package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/sqlstore"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setupSQLite(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", dbPath)
	t.Setenv("LOG_LEVEL", "error")

	_, err := run(t, "migrate")
	require.NoError(t, err)

	ctx := context.Background()
	store, err := sqlstore.OpenSQLite(ctx, dbPath)
	require.NoError(t, err)
	defer store.Close(ctx)
	require.NoError(t, store.CreateProject(ctx, &domain.Project{
		ID: "p1", Name: "Board", OwnerID: "u1", CreatedAt: time.Now().UTC(),
	}))
	return dbPath
}

func TestAPIKeyCommands_Lifecycle(t *testing.T) {
	setupSQLite(t)

	out, err := run(t, "apikey", "create", "--project", "p1", "--name", "ci-bot")
	require.NoError(t, err)
	secret := regexp.MustCompile(`tm_[A-Za-z0-9_-]+`).FindString(out)
	require.NotEmpty(t, secret, out)
	keyID := regexp.MustCompile(`API key (\S+) created`).FindStringSubmatch(out)
	require.Len(t, keyID, 2)

	out, err = run(t, "apikey", "list", "--project", "p1")
	require.NoError(t, err)
	assert.Contains(t, out, "name: ci-bot")
	assert.Contains(t, out, "id: "+keyID[1])
	assert.NotContains(t, out, secret)

	out, err = run(t, "apikey", "revoke", "--project", "p1", keyID[1])
	require.NoError(t, err)
	assert.Contains(t, out, "revoked")

	out, err = run(t, "apikey", "list", "--project", "p1")
	require.NoError(t, err)
	assert.Contains(t, out, "No API keys found.")
}

func TestAPIKeyCommands_UnknownProject(t *testing.T) {
	setupSQLite(t)

	_, err := run(t, "apikey", "create", "--project", "nope", "--name", "bot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project nope not found")

	_, err = run(t, "apikey", "revoke", "--project", "p1", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSweepCommand(t *testing.T) {
	setupSQLite(t)

	out, err := run(t, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 0 authorization codes and 0 access tokens")
}
