package stats

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/afkcompanion/afkcli/types"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	saved []PersistentStatistics
	err   error
}

func (r *recorder) persist(p PersistentStatistics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, p)
	return r.err
}

func (r *recorder) last() PersistentStatistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved[len(r.saved)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

func newTestAggregator(initial PersistentStatistics) (*Aggregator, clockwork.FakeClock, *recorder) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	rec := &recorder{}
	return NewAggregator(initial, WithClock(clock), WithPersister(rec.persist)), clock, rec
}

func outcome(success bool) types.ActionOutcome {
	return types.NewOutcome(success, "cursor", "test", time.Now())
}

func TestNewAggregator_SetsFirstUsed(t *testing.T) {
	a, _, _ := newTestAggregator(PersistentStatistics{})
	assert.Equal(t, "2026-03-01T12:00:00Z", a.Persistent().FirstUsed)

	kept, _, _ := newTestAggregator(PersistentStatistics{FirstUsed: "2020-01-01T00:00:00Z"})
	assert.Equal(t, "2020-01-01T00:00:00Z", kept.Persistent().FirstUsed)
}

func TestSession_CountsAndTime(t *testing.T) {
	a, clock, rec := newTestAggregator(PersistentStatistics{})

	a.OnSessionStart()
	assert.True(t, a.Active())
	assert.Equal(t, int64(1), a.Persistent().TotalSessions)

	a.OnAction(outcome(true))
	a.OnAction(outcome(false))
	a.OnAction(outcome(true))

	clock.Advance(125*time.Second + 700*time.Millisecond)
	a.OnSessionStop()

	p := a.Persistent()
	assert.Equal(t, int64(3), p.TotalActions, "failed actions count too")
	assert.Equal(t, int64(125), p.TotalTime, "whole seconds only")
	assert.Equal(t, 3, a.Run().ActionCount)
	assert.False(t, a.Active())

	assert.Equal(t, 5, rec.count(), "every mutation persists")
	assert.Equal(t, clock.Now().UnixMilli(), rec.last().LastModified)
}

func TestSession_NewSessionResetsRunCount(t *testing.T) {
	a, _, _ := newTestAggregator(PersistentStatistics{})

	a.OnSessionStart()
	a.OnAction(outcome(true))
	a.OnSessionStop()

	a.OnSessionStart()
	assert.Equal(t, 0, a.Run().ActionCount)
	assert.Equal(t, int64(1), a.Persistent().TotalActions)
	assert.Equal(t, int64(2), a.Persistent().TotalSessions)
}

func TestOnSessionStop_WithoutSessionIsNoop(t *testing.T) {
	a, clock, rec := newTestAggregator(PersistentStatistics{TotalTime: 10})

	clock.Advance(time.Hour)
	a.OnSessionStop()

	assert.Equal(t, int64(10), a.Persistent().TotalTime)
	assert.Equal(t, 0, rec.count())

	a.OnSessionStart()
	a.OnSessionStop()
	a.OnSessionStop()
	assert.Equal(t, 2, rec.count())
}

func TestCountersNeverDecrease(t *testing.T) {
	a, clock, _ := newTestAggregator(PersistentStatistics{})
	prev := a.Persistent()

	for i := 0; i < 20; i++ {
		switch i % 4 {
		case 0:
			a.OnSessionStart()
		case 1, 2:
			a.OnAction(outcome(i%2 == 0))
		case 3:
			clock.Advance(time.Duration(i) * time.Second)
			a.OnSessionStop()
		}

		cur := a.Persistent()
		assert.GreaterOrEqual(t, cur.TotalSessions, prev.TotalSessions)
		assert.GreaterOrEqual(t, cur.TotalActions, prev.TotalActions)
		assert.GreaterOrEqual(t, cur.TotalTime, prev.TotalTime)
		prev = cur
	}
}

func TestSummary(t *testing.T) {
	a, clock, _ := newTestAggregator(PersistentStatistics{TotalSessions: 2, TotalTime: 5400, TotalActions: 40})

	s := a.Summary()
	assert.False(t, s.Active)
	assert.Equal(t, "1h 30m", s.TotalTimeFormatted)
	assert.Equal(t, float64(2700), s.AvgSessionDuration)
	assert.Equal(t, "45m", s.AvgSessionDurationFormatted)
	assert.Equal(t, "00:00:00", s.RunningTimeFormatted)

	a.OnSessionStart()
	clock.Advance(61 * time.Second)
	s = a.Summary()
	assert.True(t, s.Active)
	assert.Equal(t, "00:01:01", s.RunningTimeFormatted)
	assert.Equal(t, int64(3), s.TotalSessions)

	a.OnSessionStop()
	clock.Advance(time.Hour)
	assert.Equal(t, "00:01:01", a.Summary().RunningTimeFormatted, "running time freezes on stop")
}

func TestSummary_NoSessions(t *testing.T) {
	a, _, _ := newTestAggregator(PersistentStatistics{})
	s := a.Summary()
	assert.Equal(t, float64(0), s.AvgSessionDuration)
	assert.Equal(t, "0m", s.AvgSessionDurationFormatted)
	assert.Equal(t, "0m", s.TotalTimeFormatted)
}

func TestReset(t *testing.T) {
	a, clock, rec := newTestAggregator(PersistentStatistics{TotalSessions: 9, TotalTime: 900, TotalActions: 99, FirstUsed: "2020-01-01T00:00:00Z"})

	clock.Advance(time.Minute)
	a.Reset()

	p := a.Persistent()
	assert.Equal(t, int64(0), p.TotalSessions)
	assert.Equal(t, int64(0), p.TotalActions)
	assert.Equal(t, int64(0), p.TotalTime)
	assert.Equal(t, "2026-03-01T12:01:00Z", p.FirstUsed)
	require.Equal(t, 1, rec.count())
	assert.Equal(t, p, rec.last())
}

func TestReset_DuringSession(t *testing.T) {
	a, clock, _ := newTestAggregator(PersistentStatistics{TotalSessions: 4})

	a.OnSessionStart()
	a.OnAction(outcome(true))
	clock.Advance(10 * time.Minute)
	a.Reset()

	run := a.Run()
	assert.Equal(t, 1, run.ActionCount, "the running session keeps its counters")
	assert.Equal(t, 10*time.Minute, run.Elapsed, "the running clock is not restarted")
	assert.Equal(t, "00:10:00", a.Summary().RunningTimeFormatted)

	clock.Advance(2 * time.Minute)
	a.OnSessionStop()

	p := a.Persistent()
	assert.Equal(t, int64(1), p.TotalSessions)
	assert.Equal(t, int64(120), p.TotalTime, "only time after the reset is credited")
	assert.Equal(t, 12*time.Minute, a.Run().Elapsed)
}

func TestReset_SessionAfterResetCreditsFully(t *testing.T) {
	a, clock, _ := newTestAggregator(PersistentStatistics{})

	a.OnSessionStart()
	clock.Advance(time.Minute)
	a.Reset()
	a.OnSessionStop()

	a.OnSessionStart()
	clock.Advance(30 * time.Second)
	a.OnSessionStop()

	assert.Equal(t, int64(30), a.Persistent().TotalTime)
	assert.Equal(t, int64(2), a.Persistent().TotalSessions)
}

func TestSave_KeepsMutationOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []int64
	slowOnOdd := func(p PersistentStatistics) error {
		if p.TotalActions%2 == 1 {
			time.Sleep(2 * time.Millisecond)
		}
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, p.TotalActions)
		return nil
	}
	a := NewAggregator(PersistentStatistics{}, WithClock(clockwork.NewFakeClock()), WithPersister(slowOnOdd))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.OnAction(outcome(true))
		}()
	}
	wg.Wait()

	require.Len(t, seen, 20)
	for i, total := range seen {
		assert.Equal(t, int64(i+1), total, "snapshot %d saved out of order", i)
	}
}

func TestPersisterError_IsNotFatal(t *testing.T) {
	a, _, rec := newTestAggregator(PersistentStatistics{})
	rec.err = errors.New("disk full")

	a.OnSessionStart()
	a.OnAction(outcome(true))

	assert.Equal(t, int64(1), a.Persistent().TotalActions)
}

func TestSnapshotInterface(t *testing.T) {
	p := PersistentStatistics{TotalActions: 1}
	stamped := p.WithModified(77)
	assert.Equal(t, int64(77), stamped.Modified())
	assert.Equal(t, int64(0), p.Modified())
}
