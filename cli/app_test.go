package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/afkcompanion/afkcli/commands"
	"github.com/afkcompanion/afkcli/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv(settings.EnvConfigPath, "")
	t.Setenv(settings.EnvStorePath, filepath.Join(dir, "afkcli.db"))
	// nothing listens on port 1
	t.Setenv(settings.EnvListen, "127.0.0.1:1")
	configPath = ""
	listenAddr = ""
}

func TestCleanupAll_RunsNewestFirstOnce(t *testing.T) {
	var order []int
	registerCleanup(func() { order = append(order, 1) })
	registerCleanup(func() { order = append(order, 2) })

	CleanupAll()
	CleanupAll()

	assert.Equal(t, []int{2, 1}, order)
}

func TestResolveBackend_FallsBackToLocalStore(t *testing.T) {
	isolate(t)
	ctx := context.Background()

	backend, done, err := resolveBackend(ctx)
	require.NoError(t, err)
	_, local := backend.(commands.LocalBackend)
	assert.True(t, local)

	resp := commands.ConfigSetCommand(ctx, backend, "interval", "45s")
	require.Equal(t, "ok", resp.Status, resp.Error)
	done()

	// a second process sees the persisted setting
	backend, done, err = resolveBackend(ctx)
	require.NoError(t, err)
	defer done()
	state, err := backend.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 45000, state.Interval)
}

func TestRemoteBackend_RequiresServer(t *testing.T) {
	isolate(t)

	_, err := remoteBackend(context.Background())
	assert.ErrorIs(t, err, errNoServer)
}
