// Package loop schedules the periodic activity action and its countdown.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var (
	ErrInvalidInterval = errors.New("interval must be positive")
	ErrAlreadyRunning  = errors.New("loop is already running")
)

const countdownTick = time.Second

// ActionFunc runs one action; ctx is cancelled when the loop stops
type ActionFunc func(ctx context.Context)

// TickFunc is called after every countdown tick and after every action
type TickFunc func()

// Loop fires an action immediately on Start and then every interval,
// while counting the seconds until the next action down for display.
type Loop struct {
	clock    clockwork.Clock
	onAction ActionFunc
	onTick   TickFunc

	mu        sync.Mutex
	running   bool
	interval  time.Duration
	remaining int
	cancel    context.CancelFunc
	done      chan struct{}
}

type Option func(*Loop)

func WithClock(clock clockwork.Clock) Option {
	return func(l *Loop) { l.clock = clock }
}

func WithTick(onTick TickFunc) Option {
	return func(l *Loop) { l.onTick = onTick }
}

func New(onAction ActionFunc, opts ...Option) *Loop {
	l := &Loop{
		clock:    clockwork.NewRealClock(),
		onAction: onAction,
		onTick:   func() {},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start runs the action once before returning, then schedules it every interval
func (l *Loop) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, interval)
	}

	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.running = true
	l.interval = interval
	l.remaining = fullCountdown(interval)
	l.cancel = cancel
	l.done = make(chan struct{})

	// tickers exist before Start returns so no tick is lost to scheduling
	actionTicker := l.clock.NewTicker(interval)
	countdownTicker := l.clock.NewTicker(countdownTick)
	done := l.done
	l.mu.Unlock()

	l.onAction(ctx)
	l.onTick()

	go l.run(ctx, done, actionTicker, countdownTicker)
	return nil
}

func (l *Loop) run(ctx context.Context, done chan struct{}, actionTicker, countdownTicker clockwork.Ticker) {
	defer close(done)
	defer actionTicker.Stop()
	defer countdownTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-actionTicker.Chan():
			// a tick may already be buffered when Stop cancels
			if ctx.Err() != nil {
				return
			}
			l.onAction(ctx)
			// re-phase the countdown to the action; drop a tick that fired with it
			countdownTicker.Reset(countdownTick)
			select {
			case <-countdownTicker.Chan():
			default:
			}
			l.mu.Lock()
			l.remaining = fullCountdown(l.interval)
			l.mu.Unlock()
			l.onTick()

		case <-countdownTicker.Chan():
			if ctx.Err() != nil {
				return
			}
			l.mu.Lock()
			if l.remaining > 0 {
				l.remaining--
			}
			l.mu.Unlock()
			l.onTick()
		}
	}
}

// Stop cancels both schedules and waits until no callback can run anymore.
// Stopping an idle loop is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	cancel, done := l.cancel, l.done
	l.running = false
	l.cancel = nil
	l.done = nil
	l.remaining = fullCountdown(l.interval)
	l.mu.Unlock()

	cancel()
	<-done
}

// Restart stops any running schedule before starting a new one
func (l *Loop) Restart(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, interval)
	}
	l.Stop()
	return l.Start(interval)
}

func (l *Loop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Loop) Interval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.interval
}

// RemainingSeconds is the countdown until the next action
func (l *Loop) RemainingSeconds() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining
}

// Remaining formats the countdown as m:ss
func (l *Loop) Remaining() string {
	return FormatCountdown(l.RemainingSeconds())
}

// SetIdleInterval updates the countdown shown while the loop is idle
func (l *Loop) SetIdleInterval(interval time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running || interval <= 0 {
		return
	}
	l.interval = interval
	l.remaining = fullCountdown(interval)
}

func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func fullCountdown(interval time.Duration) int {
	return int(interval / time.Second)
}
