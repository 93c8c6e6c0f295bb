//go:build cgo

package automation

import (
	"fmt"
	"os"
	"runtime"

	"github.com/afkcompanion/afkcli/settings"
	"github.com/go-vgo/robotgo"
)

var robotgoKeyNames = map[settings.KeyButton]string{
	settings.KeyF13:        "f13",
	settings.KeyF14:        "f14",
	settings.KeyF15:        "f15",
	settings.KeyF16:        "f16",
	settings.KeyF17:        "f17",
	settings.KeyF18:        "f18",
	settings.KeyF19:        "f19",
	settings.KeyF20:        "f20",
	settings.KeyScrollLock: "scroll_lock",
	settings.KeyNumLock:    "numpad_lock",
	settings.KeyCapsLock:   "capslock",
	settings.KeyPause:      "pause",
}

// Robotgo drives the real cursor and keyboard through github.com/go-vgo/robotgo
type Robotgo struct{}

// NewSystemPrimitive returns the input backend for this build
func NewSystemPrimitive() Primitive {
	return &Robotgo{}
}

func (r *Robotgo) Name() string {
	return "robotgo"
}

func (r *Robotgo) checkDisplay() error {
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" {
		return fmt.Errorf("%w: DISPLAY is not set", ErrUnavailable)
	}
	return nil
}

func (r *Robotgo) CursorPosition() (p Point, err error) {
	if err := r.checkDisplay(); err != nil {
		return Point{}, err
	}
	defer recoverInto(&err)

	x, y := robotgo.Location()
	return Point{X: x, Y: y}, nil
}

func (r *Robotgo) MoveCursor(p Point) (err error) {
	if err := r.checkDisplay(); err != nil {
		return err
	}
	defer recoverInto(&err)

	robotgo.Move(p.X, p.Y)
	return nil
}

func (r *Robotgo) PressKey(key settings.KeyButton) error {
	return r.toggle(key, "down")
}

func (r *Robotgo) ReleaseKey(key settings.KeyButton) error {
	return r.toggle(key, "up")
}

func (r *Robotgo) toggle(key settings.KeyButton, direction string) (err error) {
	name, ok := robotgoKeyNames[key]
	if !ok {
		return fmt.Errorf("key %q is not supported by robotgo", key)
	}
	if err := r.checkDisplay(); err != nil {
		return err
	}
	defer recoverInto(&err)

	return robotgo.KeyToggle(name, direction)
}

// robotgo surfaces some native failures as panics
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("robotgo panic: %v", r)
	}
}
