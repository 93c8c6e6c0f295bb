// Package achievements unlocks named milestones as the lifetime action count grows.
package achievements

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/afkcompanion/afkcli/utils"
)

// Name returns the achievement name for threshold index i
func Name(i int) string {
	return fmt.Sprintf("NEW_ACHIEVEMENT_%d", i)
}

// Unlocker records an unlocked achievement somewhere durable
type Unlocker interface {
	Unlock(ctx context.Context, name string) error
}

type Achievement struct {
	Name      string `json:"name"`
	Threshold int    `json:"threshold"`
	Unlocked  bool   `json:"unlocked"`
}

type Tracker struct {
	mu         sync.Mutex
	thresholds []int
	unlocked   map[string]bool
	unlocker   Unlocker
}

// NewTracker sorts thresholds ascending and starts from the already unlocked names
func NewTracker(thresholds []int, unlocker Unlocker, unlocked []string) *Tracker {
	sorted := append([]int(nil), thresholds...)
	sort.Ints(sorted)

	t := &Tracker{
		thresholds: sorted,
		unlocked:   make(map[string]bool, len(unlocked)),
		unlocker:   unlocker,
	}
	for _, name := range unlocked {
		t.unlocked[name] = true
	}
	return t
}

// TrackAction unlocks every threshold at or below total that is not unlocked yet
// and returns the names unlocked by this call. A failed unlock is retried on the next call.
func (t *Tracker) TrackAction(ctx context.Context, total int64) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var fresh []string
	for i, threshold := range t.thresholds {
		if total < int64(threshold) {
			break
		}
		name := Name(i)
		if t.unlocked[name] {
			continue
		}
		if err := t.unlocker.Unlock(ctx, name); err != nil {
			utils.Warn("failed to unlock %s: %v", name, err)
			continue
		}
		t.unlocked[name] = true
		fresh = append(fresh, name)
		utils.Info("achievement unlocked: %s at %d actions", name, total)
	}
	return fresh
}

func (t *Tracker) IsUnlocked(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unlocked[name]
}

// All lists every achievement in threshold order
func (t *Tracker) All() []Achievement {
	t.mu.Lock()
	defer t.mu.Unlock()

	list := make([]Achievement, 0, len(t.thresholds))
	for i, threshold := range t.thresholds {
		name := Name(i)
		list = append(list, Achievement{Name: name, Threshold: threshold, Unlocked: t.unlocked[name]})
	}
	return list
}
