// Package automation simulates user activity through an OS input capability.
package automation

import (
	"errors"
	"fmt"

	"github.com/afkcompanion/afkcli/settings"
)

// ErrUnavailable is returned by primitives that cannot drive input on this build or display
var ErrUnavailable = errors.New("automation backend unavailable")

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) Add(dx, dy int) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Primitive is the OS-level input capability. Implementations are platform specific.
type Primitive interface {
	Name() string
	CursorPosition() (Point, error)
	MoveCursor(p Point) error
	PressKey(key settings.KeyButton) error
	ReleaseKey(key settings.KeyButton) error
}

// Probe checks that a primitive can at least read the cursor
func Probe(p Primitive) error {
	if _, err := p.CursorPosition(); err != nil {
		return fmt.Errorf("%s: %w", p.Name(), err)
	}
	return nil
}
