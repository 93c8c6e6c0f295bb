//go:build !cgo

package automation

import (
	"fmt"

	"github.com/afkcompanion/afkcli/settings"
)

// unavailable is used on builds without cgo, where robotgo cannot be linked
type unavailable struct{}

// NewSystemPrimitive returns the input backend for this build
func NewSystemPrimitive() Primitive {
	return unavailable{}
}

func (unavailable) Name() string { return "none" }

func (unavailable) CursorPosition() (Point, error) {
	return Point{}, fmt.Errorf("%w: built without cgo", ErrUnavailable)
}

func (unavailable) MoveCursor(Point) error {
	return fmt.Errorf("%w: built without cgo", ErrUnavailable)
}

func (unavailable) PressKey(settings.KeyButton) error {
	return fmt.Errorf("%w: built without cgo", ErrUnavailable)
}

func (unavailable) ReleaseKey(settings.KeyButton) error {
	return fmt.Errorf("%w: built without cgo", ErrUnavailable)
}
