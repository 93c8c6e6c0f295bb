package automation

import (
	"time"

	"github.com/afkcompanion/afkcli/settings"
)

type keyOpKind int

const (
	opPress keyOpKind = iota
	opRelease
	opPause
)

type keyOp struct {
	kind  keyOpKind
	pause time.Duration
}

// KeyPlan is the ordered sequence of press/release/pause operations for one key tap
type KeyPlan []keyOp

const togglePause = 10 * time.Millisecond

var (
	tapPlan = KeyPlan{{kind: opPress}, {kind: opRelease}}

	// lock keys are tapped twice so the lock ends in its original state
	togglePlan = KeyPlan{
		{kind: opPress}, {kind: opRelease},
		{kind: opPause, pause: togglePause},
		{kind: opPress}, {kind: opRelease},
	}

	toggleKeys = map[settings.KeyButton]bool{
		settings.KeyScrollLock: true,
		settings.KeyNumLock:    true,
		settings.KeyCapsLock:   true,
	}
)

// IsToggleKey reports whether the key keeps a persistent lock state
func IsToggleKey(key settings.KeyButton) bool {
	return toggleKeys[key]
}

// PlanFor returns the tap plan for key; KeyNone yields an empty plan
func PlanFor(key settings.KeyButton) KeyPlan {
	if key == settings.KeyNone || key == "" {
		return nil
	}
	if IsToggleKey(key) {
		return togglePlan
	}
	return tapPlan
}

// Presses counts how many times the plan presses the key
func (p KeyPlan) Presses() int {
	n := 0
	for _, op := range p {
		if op.kind == opPress {
			n++
		}
	}
	return n
}
