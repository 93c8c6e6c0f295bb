// Package companion wires the timer loop, the action chain, statistics, sync and
// achievements together and publishes UI state whenever something changes.
package companion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/afkcompanion/afkcli/achievements"
	"github.com/afkcompanion/afkcli/cloudsync"
	"github.com/afkcompanion/afkcli/loop"
	"github.com/afkcompanion/afkcli/settings"
	"github.com/afkcompanion/afkcli/stats"
	"github.com/afkcompanion/afkcli/storage"
	"github.com/afkcompanion/afkcli/types"
	"github.com/afkcompanion/afkcli/utils"
	"github.com/jonboulle/clockwork"
)

const flushTimeout = 5 * time.Second

// Runner produces one activity action
type Runner interface {
	Run(ctx context.Context, cfg settings.Configuration) types.ActionOutcome
}

type Deps struct {
	Runner     Runner
	Local      storage.Local
	Remote     storage.Remote
	Thresholds []int
	InstallID  string
	Clock      clockwork.Clock
}

type Companion struct {
	// opMu serializes start, stop and setting changes; the action path never takes it
	opMu sync.Mutex

	mu          sync.RWMutex
	cfg         settings.Configuration
	lastOutcome *types.ActionOutcome

	runner       Runner
	loop         *loop.Loop
	stats        *stats.Aggregator
	settingsSync *cloudsync.Syncer[settings.Configuration]
	statsSync    *cloudsync.Syncer[stats.PersistentStatistics]
	tracker      *achievements.Tracker
	broadcaster  *Broadcaster
	installID    string
}

// Open loads settings, statistics and achievements and returns an idle companion
func Open(ctx context.Context, deps Deps) (*Companion, error) {
	if deps.Runner == nil || deps.Local == nil {
		return nil, fmt.Errorf("companion requires a runner and a local store")
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	thresholds := deps.Thresholds
	if len(thresholds) == 0 {
		thresholds = settings.DefaultThresholds
	}

	c := &Companion{
		runner:      deps.Runner,
		broadcaster: NewBroadcaster(),
		installID:   deps.InstallID,
	}

	c.settingsSync = cloudsync.New(deps.Local, storage.KeySettings, deps.Remote, storage.RemoteSettings,
		settings.Default, cloudsync.WithClock(clock))
	c.statsSync = cloudsync.New(deps.Local, storage.KeyStats, deps.Remote, storage.RemoteStats,
		func() stats.PersistentStatistics { return stats.NewPersistentStatistics(clock.Now()) },
		cloudsync.WithClock(clock))

	cfg, source, err := c.settingsSync.Load(ctx)
	if err != nil {
		utils.Warn("failed to store settings: %v", err)
	}
	c.cfg = cfg.Sanitize()
	utils.Verbose("settings loaded from %s: %+v", source, c.cfg)

	persistent, source, err := c.statsSync.Load(ctx)
	if err != nil {
		utils.Warn("failed to store stats: %v", err)
	}
	utils.Verbose("stats loaded from %s: %d actions", source, persistent.TotalActions)

	c.stats = stats.NewAggregator(persistent,
		stats.WithClock(clock),
		stats.WithPersister(c.persistStats))

	unlocker := achievements.NewLocalUnlocker(deps.Local)
	unlocked, err := unlocker.Load(ctx)
	if err != nil {
		utils.Warn("failed to load achievements: %v", err)
	}
	c.tracker = achievements.NewTracker(thresholds, unlocker, unlocked)

	c.loop = loop.New(c.act, loop.WithClock(clock), loop.WithTick(c.publish))
	c.loop.SetIdleInterval(c.cfg.Interval())

	return c, nil
}

func (c *Companion) persistStats(p stats.PersistentStatistics) error {
	_, err := c.statsSync.Save(context.Background(), p)
	return err
}

// act runs on the loop goroutine, and synchronously inside Start for the first action
func (c *Companion) act(ctx context.Context) {
	outcome := c.runner.Run(ctx, c.Config())

	c.mu.Lock()
	c.lastOutcome = &outcome
	c.mu.Unlock()

	if outcome.Success {
		utils.Verbose("action: %s", outcome.Message)
	} else {
		utils.Warn("action failed: %s", outcome.Message)
	}

	c.stats.OnAction(outcome)
	// storage writes must outlive a stop that cancels ctx
	c.tracker.TrackAction(context.Background(), c.stats.Persistent().TotalActions)
}

func (c *Companion) publish() {
	c.broadcaster.Publish(c.State())
}

// Start begins a session; starting an active companion does nothing
func (c *Companion) Start() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.startLocked()
}

func (c *Companion) startLocked() error {
	if c.loop.IsRunning() {
		return nil
	}

	cfg := c.Config()
	c.stats.OnSessionStart()
	if err := c.loop.Start(cfg.Interval()); err != nil {
		c.stats.OnSessionStop()
		return fmt.Errorf("failed to start: %w", err)
	}
	utils.Info("started, interval %s, %dpx, key %s", cfg.Interval(), cfg.PixelDistance, cfg.KeyButton)
	c.publish()
	return nil
}

// Stop ends the session and adds its duration to the totals; stopping an idle companion does nothing
func (c *Companion) Stop() {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.stopLocked()
}

func (c *Companion) stopLocked() {
	if !c.loop.IsRunning() {
		return
	}
	c.loop.Stop()
	c.stats.OnSessionStop()
	utils.Info("stopped")
	c.publish()
}

// Toggle flips between active and idle and returns the new activity
func (c *Companion) Toggle() (bool, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.loop.IsRunning() {
		c.stopLocked()
		return false, nil
	}
	if err := c.startLocked(); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Companion) IsActive() bool {
	return c.loop.IsRunning()
}

func (c *Companion) Config() settings.Configuration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// SetInterval changes the interval; an active loop restarts on the new schedule
func (c *Companion) SetInterval(ms int) error {
	if err := settings.ValidateInterval(ms); err != nil {
		return err
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	cfg := c.updateConfig(func(cfg *settings.Configuration) { cfg.IntervalMs = ms })

	if c.loop.IsRunning() {
		if err := c.loop.Restart(cfg.Interval()); err != nil {
			return fmt.Errorf("failed to restart with new interval: %w", err)
		}
	} else {
		c.loop.SetIdleInterval(cfg.Interval())
	}
	c.publish()
	return nil
}

func (c *Companion) SetPixelDistance(px int) error {
	if err := settings.ValidatePixelDistance(px); err != nil {
		return err
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.updateConfig(func(cfg *settings.Configuration) { cfg.PixelDistance = px })
	c.publish()
	return nil
}

// SetKeyButton accepts any spelling ParseKeyButton understands
func (c *Companion) SetKeyButton(name string) error {
	key, err := settings.ParseKeyButton(name)
	if err != nil {
		return err
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.updateConfig(func(cfg *settings.Configuration) { cfg.KeyButton = key })
	c.publish()
	return nil
}

// updateConfig applies change, persists and syncs the result, and returns it.
// A failed local write is logged; the in-memory value still applies.
func (c *Companion) updateConfig(change func(*settings.Configuration)) settings.Configuration {
	c.mu.Lock()
	next := c.cfg
	change(&next)
	c.mu.Unlock()

	saved, err := c.settingsSync.Save(context.Background(), next)
	if err != nil {
		utils.Warn("failed to save settings: %v", err)
	}

	c.mu.Lock()
	c.cfg = saved
	c.mu.Unlock()
	return saved
}

// ActionOnce runs the action chain once outside any session; the result is not counted
func (c *Companion) ActionOnce(ctx context.Context) types.ActionOutcome {
	return c.runner.Run(ctx, c.Config())
}

func (c *Companion) Summary() stats.Summary {
	return c.stats.Summary()
}

func (c *Companion) ResetStats() {
	c.stats.Reset()
	c.publish()
}

func (c *Companion) Achievements() []achievements.Achievement {
	return c.tracker.All()
}

func (c *Companion) LastOutcome() (types.ActionOutcome, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastOutcome == nil {
		return types.ActionOutcome{}, false
	}
	return *c.lastOutcome, true
}

func (c *Companion) InstallID() string {
	return c.installID
}

func (c *Companion) CloudAvailable() bool {
	return c.settingsSync.RemoteAvailable()
}

// Subscribe delivers the current state first, then every change
func (c *Companion) Subscribe() (<-chan types.State, func()) {
	ch, cancel := c.broadcaster.Subscribe()
	c.publish()
	return ch, cancel
}

func (c *Companion) State() types.State {
	cfg := c.Config()
	summary := c.stats.Summary()

	return types.State{
		IsActive:                    c.loop.IsRunning(),
		ActionCount:                 summary.ActionCount,
		RunningTimeFormatted:        summary.RunningTimeFormatted,
		NextActionFormatted:         c.loop.Remaining(),
		Interval:                    cfg.IntervalMs,
		PixelDistance:               cfg.PixelDistance,
		KeyButton:                   string(cfg.KeyButton),
		TotalSessions:               int(summary.TotalSessions),
		TotalTimeFormatted:          summary.TotalTimeFormatted,
		TotalActions:                int(summary.TotalActions),
		AvgSessionDurationFormatted: summary.AvgSessionDurationFormatted,
	}
}

// Close stops any session, flushing its duration, waits briefly for pending cloud
// writes and ends all subscriptions
func (c *Companion) Close() {
	c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := c.statsSync.Flush(ctx); err != nil {
		utils.Warn("%v", err)
	}
	if err := c.settingsSync.Flush(ctx); err != nil {
		utils.Warn("%v", err)
	}

	c.broadcaster.Close()
}
