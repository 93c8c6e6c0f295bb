// Package stats aggregates per-session and lifetime activity counters.
package stats

import (
	"sync"
	"time"

	"github.com/afkcompanion/afkcli/types"
	"github.com/afkcompanion/afkcli/utils"
	"github.com/jonboulle/clockwork"
)

// RunStatistics covers the current (or most recent) session only
type RunStatistics struct {
	ActionCount int        `json:"actionCount"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	// Elapsed is frozen when the session stops
	Elapsed time.Duration `json:"-"`
}

// PersistentStatistics survive restarts and are synced.
// TotalTime is in whole seconds.
type PersistentStatistics struct {
	TotalSessions int64  `json:"totalSessions"`
	TotalTime     int64  `json:"totalTime"`
	TotalActions  int64  `json:"totalActions"`
	FirstUsed     string `json:"firstUsed,omitempty"`
	LastModified  int64  `json:"lastModified"`
}

func NewPersistentStatistics(now time.Time) PersistentStatistics {
	return PersistentStatistics{FirstUsed: now.UTC().Format(time.RFC3339Nano)}
}

func (p PersistentStatistics) Modified() int64 {
	return p.LastModified
}

func (p PersistentStatistics) WithModified(ms int64) PersistentStatistics {
	p.LastModified = ms
	return p
}

// AverageSession returns the mean session length in seconds, 0 with no sessions
func (p PersistentStatistics) AverageSession() float64 {
	if p.TotalSessions <= 0 {
		return 0
	}
	return float64(p.TotalTime) / float64(p.TotalSessions)
}

type Summary struct {
	Active                      bool    `json:"active" yaml:"active" toml:"active"`
	ActionCount                 int     `json:"actionCount" yaml:"actionCount" toml:"actionCount"`
	RunningTimeFormatted        string  `json:"runningTimeFormatted" yaml:"runningTimeFormatted" toml:"runningTimeFormatted"`
	TotalSessions               int64   `json:"totalSessions" yaml:"totalSessions" toml:"totalSessions"`
	TotalTime                   int64   `json:"totalTime" yaml:"totalTime" toml:"totalTime"`
	TotalTimeFormatted          string  `json:"totalTimeFormatted" yaml:"totalTimeFormatted" toml:"totalTimeFormatted"`
	TotalActions                int64   `json:"totalActions" yaml:"totalActions" toml:"totalActions"`
	AvgSessionDuration          float64 `json:"avgSessionDuration" yaml:"avgSessionDuration" toml:"avgSessionDuration"`
	AvgSessionDurationFormatted string  `json:"avgSessionDurationFormatted" yaml:"avgSessionDurationFormatted" toml:"avgSessionDurationFormatted"`
	FirstUsed                   string  `json:"firstUsed,omitempty" yaml:"firstUsed,omitempty" toml:"firstUsed,omitempty"`
}

// Persister receives a copy of the persistent statistics after each mutation
type Persister func(PersistentStatistics) error

type Aggregator struct {
	// saveMu spans a mutation and its save so snapshots are persisted in order
	saveMu     sync.Mutex
	mu         sync.Mutex
	clock      clockwork.Clock
	persist    Persister
	run        RunStatistics
	persistent PersistentStatistics
	// creditFrom is where the running session's lifetime credit starts
	creditFrom time.Time
}

type Option func(*Aggregator)

func WithClock(clock clockwork.Clock) Option {
	return func(a *Aggregator) { a.clock = clock }
}

func WithPersister(p Persister) Option {
	return func(a *Aggregator) { a.persist = p }
}

func NewAggregator(initial PersistentStatistics, opts ...Option) *Aggregator {
	a := &Aggregator{
		clock:   clockwork.NewRealClock(),
		persist: func(PersistentStatistics) error { return nil },
	}
	for _, opt := range opts {
		opt(a)
	}
	if initial.FirstUsed == "" {
		initial.FirstUsed = a.clock.Now().UTC().Format(time.RFC3339Nano)
	}
	a.persistent = initial
	return a
}

// OnSessionStart opens a new session and counts it
func (a *Aggregator) OnSessionStart() {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	now := a.clock.Now()
	a.run = RunStatistics{StartedAt: &now}
	a.creditFrom = now
	a.persistent.TotalSessions++
	snapshot := a.stampLocked(now)
	a.mu.Unlock()

	a.save(snapshot)
}

// OnAction counts an action whether or not it succeeded
func (a *Aggregator) OnAction(outcome types.ActionOutcome) {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	now := a.clock.Now()
	a.run.ActionCount++
	a.persistent.TotalActions++
	snapshot := a.stampLocked(now)
	a.mu.Unlock()

	utils.Verbose("action recorded: %s (success=%t)", outcome.Message, outcome.Success)
	a.save(snapshot)
}

// OnSessionStop adds the elapsed whole seconds to the lifetime total, counting
// only the part after the last Reset. Without an active session it does nothing.
func (a *Aggregator) OnSessionStop() {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	if a.run.StartedAt == nil {
		a.mu.Unlock()
		return
	}
	now := a.clock.Now()
	elapsed := now.Sub(*a.run.StartedAt)
	credited := int64(now.Sub(a.creditFrom) / time.Second)
	a.run.Elapsed = elapsed
	a.run.StartedAt = nil
	a.persistent.TotalTime += credited
	snapshot := a.stampLocked(now)
	a.mu.Unlock()

	utils.Info("session ended after %ds", int64(elapsed/time.Second))
	a.save(snapshot)
}

// Reset replaces the lifetime statistics with fresh defaults. A running session
// keeps its own counters and is credited from now on.
func (a *Aggregator) Reset() {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	now := a.clock.Now()
	a.persistent = NewPersistentStatistics(now)
	if a.run.StartedAt != nil {
		a.persistent.TotalSessions = 1
		a.creditFrom = now
	}
	snapshot := a.stampLocked(now)
	a.mu.Unlock()

	utils.Info("persistent stats cleared")
	a.save(snapshot)
}

func (a *Aggregator) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.run.StartedAt != nil
}

func (a *Aggregator) Run() RunStatistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runLocked()
}

func (a *Aggregator) Persistent() PersistentStatistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.persistent
}

func (a *Aggregator) Summary() Summary {
	a.mu.Lock()
	run := a.runLocked()
	p := a.persistent
	a.mu.Unlock()

	avg := p.AverageSession()
	return Summary{
		Active:                      run.StartedAt != nil,
		ActionCount:                 run.ActionCount,
		RunningTimeFormatted:        FormatRunningTime(run.Elapsed),
		TotalSessions:               p.TotalSessions,
		TotalTime:                   p.TotalTime,
		TotalTimeFormatted:          FormatDuration(float64(p.TotalTime)),
		TotalActions:                p.TotalActions,
		AvgSessionDuration:          avg,
		AvgSessionDurationFormatted: FormatDuration(avg),
		FirstUsed:                   p.FirstUsed,
	}
}

func (a *Aggregator) runLocked() RunStatistics {
	run := a.run
	if run.StartedAt != nil {
		started := *run.StartedAt
		run.StartedAt = &started
		run.Elapsed = a.clock.Since(started)
	}
	return run
}

func (a *Aggregator) stampLocked(now time.Time) PersistentStatistics {
	a.persistent.LastModified = now.UnixMilli()
	return a.persistent
}

func (a *Aggregator) save(p PersistentStatistics) {
	if err := a.persist(p); err != nil {
		utils.Warn("failed to persist stats: %v", err)
	}
}
