package companion

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/afkcompanion/afkcli/settings"
	"github.com/afkcompanion/afkcli/stats"
	"github.com/afkcompanion/afkcli/storage"
	"github.com/afkcompanion/afkcli/types"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	calls   atomic.Int32
	failing atomic.Bool
}

func (r *countingRunner) Run(_ context.Context, cfg settings.Configuration) types.ActionOutcome {
	r.calls.Add(1)
	if r.failing.Load() {
		return types.NewOutcome(false, "cursor", "Mouse action failed: test", time.Now())
	}
	return types.NewOutcome(true, "cursor", "Mouse movement completed", time.Now())
}

// gatedRemote holds writes on gate once armed
type gatedRemote struct {
	*storage.DirRemote
	gate  chan struct{}
	armed atomic.Bool
}

func (r *gatedRemote) Write(ctx context.Context, name string, data []byte) (bool, error) {
	if r.armed.Load() {
		<-r.gate
	}
	return r.DirRemote.Write(ctx, name, data)
}

type fixture struct {
	store  *storage.SQLite
	path   string
	clock  clockwork.FakeClock
	runner *countingRunner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "afkcli.db")
	store, err := storage.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return &fixture{
		store:  store,
		path:   path,
		clock:  clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)),
		runner: &countingRunner{},
	}
}

func (f *fixture) open(t *testing.T, remote storage.Remote, thresholds ...int) *Companion {
	t.Helper()
	c, err := Open(context.Background(), Deps{
		Runner:     f.runner,
		Local:      f.store,
		Remote:     remote,
		Thresholds: thresholds,
		InstallID:  "test-install",
		Clock:      f.clock,
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestOpen_Defaults(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, nil)

	s := c.State()
	assert.False(t, s.IsActive)
	assert.Equal(t, 60000, s.Interval)
	assert.Equal(t, 5, s.PixelDistance)
	assert.Equal(t, "none", s.KeyButton)
	assert.Equal(t, "1:00", s.NextActionFormatted)
	assert.Equal(t, "0m", s.TotalTimeFormatted)
	assert.Equal(t, "test-install", c.InstallID())
	assert.False(t, c.CloudAvailable())
}

func TestToggle_RunsSessionWithImmediateAction(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, nil)
	require.NoError(t, c.SetInterval(5000))

	active, err := c.Toggle()
	require.NoError(t, err)
	assert.True(t, active)

	s := c.State()
	assert.True(t, s.IsActive)
	assert.Equal(t, 1, s.ActionCount)
	assert.Equal(t, 1, s.TotalSessions)
	assert.Equal(t, 1, s.TotalActions)

	f.clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return c.State().ActionCount == 2 }, time.Second, 5*time.Millisecond)

	active, err = c.Toggle()
	require.NoError(t, err)
	assert.False(t, active)

	s = c.State()
	assert.False(t, s.IsActive)
	assert.Equal(t, 2, s.TotalActions)
	assert.Equal(t, int64(5), c.Summary().TotalTime)

	f.clock.Advance(time.Minute)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(2), f.runner.calls.Load(), "no actions after stop")
}

func TestStartStop_AreIdempotent(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, nil)

	require.NoError(t, c.Start())
	require.NoError(t, c.Start())
	assert.Equal(t, int32(1), f.runner.calls.Load())
	assert.Equal(t, int64(1), c.Summary().TotalSessions)

	c.Stop()
	c.Stop()
	assert.False(t, c.IsActive())
	assert.Equal(t, int64(1), c.Summary().TotalSessions)
}

func TestFailedActionsAreCounted(t *testing.T) {
	f := newFixture(t)
	f.runner.failing.Store(true)
	c := f.open(t, nil)

	require.NoError(t, c.Start())
	assert.Equal(t, 1, c.State().TotalActions)

	last, ok := c.LastOutcome()
	require.True(t, ok)
	assert.False(t, last.Success)
}

func TestSetters_RejectOutOfRange(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, nil)

	assert.ErrorIs(t, c.SetInterval(4999), settings.ErrOutOfRange)
	assert.ErrorIs(t, c.SetInterval(300001), settings.ErrOutOfRange)
	assert.ErrorIs(t, c.SetPixelDistance(0), settings.ErrOutOfRange)
	assert.ErrorIs(t, c.SetPixelDistance(51), settings.ErrOutOfRange)
	assert.ErrorIs(t, c.SetKeyButton("f99"), settings.ErrUnknownKey)

	assert.Equal(t, settings.Default().IntervalMs, c.Config().IntervalMs)
}

func TestSetInterval_WhileActiveRestarts(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, nil)
	require.NoError(t, c.SetInterval(10000))
	require.NoError(t, c.Start())

	require.NoError(t, c.SetInterval(20000))
	assert.True(t, c.IsActive())
	assert.Equal(t, int32(2), f.runner.calls.Load(), "restart fires the immediate action")
	assert.Equal(t, "0:20", c.State().NextActionFormatted)

	f.clock.Advance(10 * time.Second)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(2), f.runner.calls.Load(), "old schedule is gone")

	f.clock.Advance(10 * time.Second)
	assert.Eventually(t, func() bool { return f.runner.calls.Load() == 3 }, time.Second, 5*time.Millisecond)
}

func TestSetInterval_WhileIdleUpdatesCountdown(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, nil)

	require.NoError(t, c.SetInterval(90000))
	assert.False(t, c.IsActive())
	assert.Equal(t, "1:30", c.State().NextActionFormatted)
	assert.Equal(t, int32(0), f.runner.calls.Load())
}

func TestSettingsAndStatsPersistAcrossOpen(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, nil)
	changedAt := f.clock.Now().UnixMilli()

	require.NoError(t, c.SetInterval(7000))
	require.NoError(t, c.SetPixelDistance(12))
	require.NoError(t, c.SetKeyButton("Scroll_Lock"))
	require.NoError(t, c.Start())
	f.clock.Advance(3 * time.Second)
	c.Stop()

	again := f.open(t, nil)
	cfg := again.Config()
	assert.Equal(t, 7000, cfg.IntervalMs)
	assert.Equal(t, 12, cfg.PixelDistance)
	assert.Equal(t, settings.KeyScrollLock, cfg.KeyButton)
	assert.Equal(t, changedAt, cfg.LastModified)

	summary := again.Summary()
	assert.Equal(t, int64(1), summary.TotalSessions)
	assert.Equal(t, int64(1), summary.TotalActions)
	assert.Equal(t, int64(3), summary.TotalTime)
}

func TestAchievementsUnlockFromTotalActions(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, nil, 2, 4)

	require.NoError(t, c.SetInterval(5000))
	require.NoError(t, c.Start())
	f.clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return c.State().TotalActions == 2 }, time.Second, 5*time.Millisecond)
	c.Stop()

	all := c.Achievements()
	require.Len(t, all, 2)
	assert.True(t, all[0].Unlocked)
	assert.False(t, all[1].Unlocked)

	again := f.open(t, nil, 2, 4)
	assert.True(t, again.Achievements()[0].Unlocked, "unlocks are persisted")
}

func TestResetStats(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, nil)

	require.NoError(t, c.Start())
	c.Stop()
	c.ResetStats()

	s := c.State()
	assert.Equal(t, 0, s.TotalActions)
	assert.Equal(t, 0, s.TotalSessions)
}

func TestResetStats_DuringSessionKeepsRunningTime(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, nil)

	require.NoError(t, c.Start())
	f.clock.Advance(10 * time.Minute)
	c.ResetStats()

	s := c.State()
	assert.True(t, s.IsActive)
	assert.Equal(t, "00:10:00", s.RunningTimeFormatted)
	assert.Equal(t, 1, s.TotalSessions)

	f.clock.Advance(time.Minute)
	c.Stop()
	assert.Equal(t, int64(60), c.Summary().TotalTime)
}

func TestSubscribe_ReceivesStateChanges(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, nil)

	ch, cancel := c.Subscribe()
	defer cancel()

	first := <-ch
	assert.False(t, first.IsActive)

	require.NoError(t, c.SetPixelDistance(9))
	assert.Eventually(t, func() bool {
		select {
		case s := <-ch:
			return s.PixelDistance == 9
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestActionOnce_IsNotCounted(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, nil)

	outcome := c.ActionOnce(context.Background())
	assert.True(t, outcome.Success)
	assert.Equal(t, 0, c.State().TotalActions)
}

func TestOpen_FreshInstallAdoptsCloudStats(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, storage.RemoteStats),
		[]byte(`{"totalSessions":3,"totalTime":600,"totalActions":42,"lastModified":1000}`), 0o644))
	remote := storage.NewDirRemote(dir, true)

	f := newFixture(t)
	c := f.open(t, remote)

	assert.True(t, c.CloudAvailable())
	assert.Equal(t, 42, c.State().TotalActions)
	assert.FileExists(t, filepath.Join(dir, storage.RemoteSettings), "missing remote settings get pushed")
}

func TestEnsureInstallID_IsStable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := EnsureInstallID(ctx, f.store)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	again, err := EnsureInstallID(ctx, f.store)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestToggle_SlowCloudDoesNotBlockSession(t *testing.T) {
	dir := t.TempDir()
	remote := &gatedRemote{DirRemote: storage.NewDirRemote(dir, true), gate: make(chan struct{})}

	f := newFixture(t)
	c := f.open(t, remote)
	remote.armed.Store(true)

	start := time.Now()
	active, err := c.Toggle()
	require.NoError(t, err)
	assert.True(t, active)
	assert.Less(t, time.Since(start), 200*time.Millisecond, "start waited on the cloud")

	start = time.Now()
	active, err = c.Toggle()
	require.NoError(t, err)
	assert.False(t, active)
	assert.Less(t, time.Since(start), 200*time.Millisecond, "stop waited on the cloud")

	close(remote.gate)
	c.Close()

	raw, err := os.ReadFile(filepath.Join(dir, storage.RemoteStats))
	require.NoError(t, err)
	var pushed stats.PersistentStatistics
	require.NoError(t, json.Unmarshal(raw, &pushed))
	assert.Equal(t, int64(1), pushed.TotalSessions)
	assert.Equal(t, int64(1), pushed.TotalActions, "close flushes the newest stats")
}
