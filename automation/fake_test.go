package automation

import (
	"errors"
	"sync"

	"github.com/afkcompanion/afkcli/settings"
)

type keyEvent struct {
	key  settings.KeyButton
	down bool
}

// fakePrimitive records every cursor move and key event
type fakePrimitive struct {
	mu       sync.Mutex
	pos      Point
	moves    []Point
	keys     []keyEvent
	failRead error
	failMove error
	failKey  error
	// failMoveAfter fails every move after this many successful ones, when > 0
	failMoveAfter int
}

func (f *fakePrimitive) Name() string { return "fake" }

func (f *fakePrimitive) CursorPosition() (Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRead != nil {
		return Point{}, f.failRead
	}
	return f.pos, nil
}

func (f *fakePrimitive) MoveCursor(p Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMove != nil {
		return f.failMove
	}
	if f.failMoveAfter > 0 && len(f.moves) >= f.failMoveAfter {
		return errors.New("display went away")
	}
	f.pos = p
	f.moves = append(f.moves, p)
	return nil
}

func (f *fakePrimitive) PressKey(key settings.KeyButton) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKey != nil {
		return f.failKey
	}
	f.keys = append(f.keys, keyEvent{key: key, down: true})
	return nil
}

func (f *fakePrimitive) ReleaseKey(key settings.KeyButton) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, keyEvent{key: key, down: false})
	return nil
}

func (f *fakePrimitive) snapshot() (Point, []Point, []keyEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos, append([]Point(nil), f.moves...), append([]keyEvent(nil), f.keys...)
}
