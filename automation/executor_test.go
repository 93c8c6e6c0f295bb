package automation

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/afkcompanion/afkcli/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastAnimation() settings.AnimationConfig {
	return settings.AnimationConfig{Steps: 12}
}

func configWith(distance int, key settings.KeyButton) settings.Configuration {
	cfg := settings.Default()
	cfg.PixelDistance = distance
	cfg.KeyButton = key
	return cfg
}

func distance(a, b Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

func TestExecute_ReturnsToOrigin(t *testing.T) {
	for _, px := range []int{1, 2, 5, 13, 50} {
		for seed := int64(0); seed < 20; seed++ {
			prim := &fakePrimitive{pos: Point{X: 400, Y: 300}}
			exec := NewExecutor(prim, fastAnimation(), WithRand(rand.New(rand.NewSource(seed))))

			outcome := exec.Execute(context.Background(), configWith(px, settings.KeyNone))

			require.True(t, outcome.Success, outcome.Message)
			final, moves, _ := prim.snapshot()
			assert.Equal(t, Point{X: 400, Y: 300}, final, "px=%d seed=%d", px, seed)
			assert.Equal(t, Point{X: 400, Y: 300}, moves[len(moves)-1])
			assert.Len(t, moves, 24)
		}
	}
}

func TestExecute_StaysWithinRadius(t *testing.T) {
	origin := Point{X: 100, Y: 100}
	for seed := int64(0); seed < 200; seed++ {
		prim := &fakePrimitive{pos: origin}
		exec := NewExecutor(prim, fastAnimation(), WithRand(rand.New(rand.NewSource(seed))))

		outcome := exec.Execute(context.Background(), configWith(5, settings.KeyNone))
		require.True(t, outcome.Success)

		_, moves, _ := prim.snapshot()
		for i, p := range moves {
			assert.LessOrEqual(t, distance(origin, p), 5.0, "step %d at %s escaped radius (seed %d)", i, p, seed)
		}
	}
}

func TestExecute_TapsNormalKeyOnce(t *testing.T) {
	prim := &fakePrimitive{}
	exec := NewExecutor(prim, fastAnimation())

	outcome := exec.Execute(context.Background(), configWith(5, settings.KeyF15))

	require.True(t, outcome.Success)
	assert.Contains(t, outcome.Message, "f15")
	_, _, keys := prim.snapshot()
	assert.Equal(t, []keyEvent{{settings.KeyF15, true}, {settings.KeyF15, false}}, keys)
}

func TestExecute_ToggleKeyIsPressedTwice(t *testing.T) {
	for _, key := range []settings.KeyButton{settings.KeyScrollLock, settings.KeyNumLock, settings.KeyCapsLock} {
		prim := &fakePrimitive{}
		exec := NewExecutor(prim, fastAnimation())

		outcome := exec.Execute(context.Background(), configWith(5, key))

		require.True(t, outcome.Success)
		_, _, keys := prim.snapshot()
		assert.Equal(t, []keyEvent{{key, true}, {key, false}, {key, true}, {key, false}}, keys, "key %s", key)
	}
}

func TestExecute_NoKeyWhenNone(t *testing.T) {
	prim := &fakePrimitive{}
	exec := NewExecutor(prim, fastAnimation())

	outcome := exec.Execute(context.Background(), configWith(5, settings.KeyNone))

	require.True(t, outcome.Success)
	_, _, keys := prim.snapshot()
	assert.Empty(t, keys)
}

func TestExecute_ReadFailureIsReported(t *testing.T) {
	prim := &fakePrimitive{failRead: errors.New("no display")}
	exec := NewExecutor(prim, fastAnimation())

	outcome := exec.Execute(context.Background(), configWith(5, settings.KeyNone))

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Message, "no display")
	assert.Equal(t, string(StrategyCursor), outcome.Strategy)
	assert.NotEmpty(t, outcome.Timestamp)
}

func TestExecute_MoveFailureIsReported(t *testing.T) {
	prim := &fakePrimitive{pos: Point{X: 10, Y: 10}, failMoveAfter: 3}
	exec := NewExecutor(prim, fastAnimation())

	outcome := exec.Execute(context.Background(), configWith(5, settings.KeyNone))

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Message, "display went away")
}

func TestExecute_KeyFailureIsReported(t *testing.T) {
	prim := &fakePrimitive{failKey: errors.New("key refused")}
	exec := NewExecutor(prim, fastAnimation())

	outcome := exec.Execute(context.Background(), configWith(5, settings.KeyF13))

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Message, "key refused")
	final, _, _ := prim.snapshot()
	assert.Equal(t, Point{}, final, "cursor should already be home when key fails")
}

func TestExecute_CancelledSnapsBack(t *testing.T) {
	prim := &fakePrimitive{pos: Point{X: 50, Y: 50}}
	anim := settings.AnimationConfig{Steps: 12, StepDelay: 50 * time.Millisecond, PauseDelay: time.Second}
	exec := NewExecutor(prim, anim)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	outcome := exec.Execute(ctx, configWith(10, settings.KeyNone))

	assert.False(t, outcome.Success)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	final, _, _ := prim.snapshot()
	assert.Equal(t, Point{X: 50, Y: 50}, final)
}

func TestNudge(t *testing.T) {
	prim := &fakePrimitive{pos: Point{X: 7, Y: 9}}
	exec := NewExecutor(prim, fastAnimation())

	outcome := exec.Nudge(context.Background())

	require.True(t, outcome.Success)
	assert.Equal(t, string(StrategyNudge), outcome.Strategy)
	final, moves, _ := prim.snapshot()
	assert.Equal(t, []Point{{X: 8, Y: 9}, {X: 7, Y: 9}}, moves)
	assert.Equal(t, Point{X: 7, Y: 9}, final)
}

func TestPlanFor(t *testing.T) {
	assert.Empty(t, PlanFor(settings.KeyNone))
	assert.Equal(t, 1, PlanFor(settings.KeyF13).Presses())
	assert.Equal(t, 1, PlanFor(settings.KeyPause).Presses())
	assert.Equal(t, 2, PlanFor(settings.KeyCapsLock).Presses())
	assert.True(t, IsToggleKey(settings.KeyScrollLock))
	assert.False(t, IsToggleKey(settings.KeyF20))
}
