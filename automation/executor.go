package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/afkcompanion/afkcli/settings"
	"github.com/afkcompanion/afkcli/types"
	"github.com/afkcompanion/afkcli/utils"
	"github.com/jonboulle/clockwork"
)

const (
	nudgeOffset = 1
	nudgeDelay  = 10 * time.Millisecond
)

// Executor performs one simulated-activity cycle: a short cursor round trip
// in a random direction followed by an optional key tap.
type Executor struct {
	primitive Primitive
	animation settings.AnimationConfig
	clock     clockwork.Clock

	rndMu sync.Mutex
	rnd   *rand.Rand
}

type ExecutorOption func(*Executor)

func WithClock(clock clockwork.Clock) ExecutorOption {
	return func(e *Executor) { e.clock = clock }
}

func WithRand(rnd *rand.Rand) ExecutorOption {
	return func(e *Executor) { e.rnd = rnd }
}

func NewExecutor(primitive Primitive, animation settings.AnimationConfig, opts ...ExecutorOption) *Executor {
	if animation.Steps < 1 {
		animation.Steps = 1
	}

	e := &Executor{
		primitive: primitive,
		animation: animation,
		clock:     clockwork.NewRealClock(),
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) randomAngle() float64 {
	e.rndMu.Lock()
	defer e.rndMu.Unlock()
	return e.rnd.Float64() * 2 * math.Pi
}

func (e *Executor) outcome(success bool, strategy StrategyKind, format string, args ...interface{}) types.ActionOutcome {
	return types.NewOutcome(success, string(strategy), fmt.Sprintf(format, args...), e.clock.Now())
}

// Execute moves the cursor pixelDistance away along a random angle and back,
// then taps the configured key. Failures are reported in the outcome, never returned.
func (e *Executor) Execute(ctx context.Context, cfg settings.Configuration) types.ActionOutcome {
	origin, err := e.primitive.CursorPosition()
	if err != nil {
		return e.outcome(false, StrategyCursor, "Mouse action failed: %v", err)
	}

	angle := e.randomAngle()
	// truncation keeps the target inside the radius
	dx := int(math.Trunc(math.Cos(angle) * float64(cfg.PixelDistance)))
	dy := int(math.Trunc(math.Sin(angle) * float64(cfg.PixelDistance)))
	utils.Verbose("Moving mouse from %s to %s", origin, origin.Add(dx, dy))

	if err := e.roundTrip(ctx, origin, dx, dy); err != nil {
		e.restore(origin)
		return e.outcome(false, StrategyCursor, "Mouse action failed: %v", err)
	}

	if err := e.tapKey(ctx, cfg.KeyButton); err != nil {
		return e.outcome(false, StrategyCursor, "Key press failed (%s): %v", cfg.KeyButton, err)
	}

	if cfg.KeyButton != settings.KeyNone && cfg.KeyButton != "" {
		return e.outcome(true, StrategyCursor, "Mouse movement completed (%dpx) with %s", cfg.PixelDistance, cfg.KeyButton)
	}
	return e.outcome(true, StrategyCursor, "Mouse movement completed (%dpx)", cfg.PixelDistance)
}

// roundTrip animates origin -> origin+(dx,dy) -> origin in discrete steps
func (e *Executor) roundTrip(ctx context.Context, origin Point, dx, dy int) error {
	steps := e.animation.Steps

	for i := 1; i <= steps; i++ {
		if err := e.primitive.MoveCursor(origin.Add(dx*i/steps, dy*i/steps)); err != nil {
			return fmt.Errorf("movement step %d: %w", i, err)
		}
		if i < steps {
			if err := e.sleep(ctx, e.animation.StepDelay); err != nil {
				return err
			}
		}
	}

	if err := e.sleep(ctx, e.animation.PauseDelay); err != nil {
		return err
	}

	for i := 1; i <= steps; i++ {
		remaining := steps - i
		if err := e.primitive.MoveCursor(origin.Add(dx*remaining/steps, dy*remaining/steps)); err != nil {
			return fmt.Errorf("return step %d: %w", i, err)
		}
		if i < steps {
			if err := e.sleep(ctx, e.animation.StepDelay); err != nil {
				return err
			}
		}
	}

	return nil
}

// restore puts the cursor back after an interrupted animation
func (e *Executor) restore(origin Point) {
	if err := e.primitive.MoveCursor(origin); err != nil {
		utils.Warn("Failed to restore cursor to %s: %v", origin, err)
	}
}

func (e *Executor) tapKey(ctx context.Context, key settings.KeyButton) error {
	plan := PlanFor(key)
	if len(plan) == 0 {
		utils.Verbose("Skipping key press - none selected")
		return nil
	}

	pressed := false
	for _, op := range plan {
		var err error
		switch op.kind {
		case opPress:
			err = e.primitive.PressKey(key)
			pressed = err == nil
		case opRelease:
			err = e.primitive.ReleaseKey(key)
			if err == nil {
				pressed = false
			}
		case opPause:
			err = e.sleep(ctx, op.pause)
		}
		if err != nil {
			if pressed {
				_ = e.primitive.ReleaseKey(key)
			}
			return err
		}
	}

	utils.Verbose("Keyboard key %s pressed", key)
	return nil
}

// Nudge moves the cursor by one pixel and straight back
func (e *Executor) Nudge(ctx context.Context) types.ActionOutcome {
	origin, err := e.primitive.CursorPosition()
	if err != nil {
		return e.outcome(false, StrategyNudge, "Nudge failed: %v", err)
	}

	if err := e.primitive.MoveCursor(origin.Add(nudgeOffset, 0)); err != nil {
		return e.outcome(false, StrategyNudge, "Nudge failed: %v", err)
	}

	sleepErr := e.sleep(ctx, nudgeDelay)
	if err := e.primitive.MoveCursor(origin); err != nil {
		return e.outcome(false, StrategyNudge, "Nudge failed: %v", err)
	}
	if sleepErr != nil {
		return e.outcome(false, StrategyNudge, "Nudge interrupted: %v", sleepErr)
	}

	return e.outcome(true, StrategyNudge, "Fallback nudge completed")
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.clock.After(d):
		return nil
	}
}
