// Package settings holds the user-adjustable configuration and the static application config file.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultInterval      = 60 * time.Second
	MinInterval          = 5 * time.Second
	MaxInterval          = 5 * time.Minute
	DefaultPixelDistance = 5
	MinPixelDistance     = 1
	MaxPixelDistance     = 50
)

var (
	ErrOutOfRange = errors.New("value out of range")
	ErrUnknownKey = errors.New("unknown key button")
)

// KeyButton is the optional key tapped after each cursor round trip
type KeyButton string

const (
	KeyNone       KeyButton = "none"
	KeyF13        KeyButton = "f13"
	KeyF14        KeyButton = "f14"
	KeyF15        KeyButton = "f15"
	KeyF16        KeyButton = "f16"
	KeyF17        KeyButton = "f17"
	KeyF18        KeyButton = "f18"
	KeyF19        KeyButton = "f19"
	KeyF20        KeyButton = "f20"
	KeyScrollLock KeyButton = "scrolllock"
	KeyNumLock    KeyButton = "numlock"
	KeyCapsLock   KeyButton = "capslock"
	KeyPause      KeyButton = "pause"
)

// KeyButtons lists every accepted key button in display order
var KeyButtons = []KeyButton{
	KeyNone,
	KeyF13, KeyF14, KeyF15, KeyF16, KeyF17, KeyF18, KeyF19, KeyF20,
	KeyScrollLock, KeyNumLock, KeyCapsLock, KeyPause,
}

// ParseKeyButton accepts names case-insensitively, with or without separators ("Scroll_Lock", "F13")
func ParseKeyButton(s string) (KeyButton, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("_", "", "-", "", " ", "").Replace(normalized)
	if normalized == "" {
		return KeyNone, nil
	}

	for _, k := range KeyButtons {
		if string(k) == normalized {
			return k, nil
		}
	}

	return KeyNone, fmt.Errorf("%w: %q", ErrUnknownKey, s)
}

// Configuration is the user-facing settings blob, persisted and synced as a whole
type Configuration struct {
	IntervalMs    int       `json:"interval"`
	PixelDistance int       `json:"pixelDistance"`
	KeyButton     KeyButton `json:"keyButton"`
	LastModified  int64     `json:"lastModified"`
}

// Default returns a pristine configuration; LastModified stays 0 so any remote copy wins
func Default() Configuration {
	return Configuration{
		IntervalMs:    int(DefaultInterval / time.Millisecond),
		PixelDistance: DefaultPixelDistance,
		KeyButton:     KeyNone,
	}
}

// Interval returns the action interval as a duration
func (c Configuration) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// Modified implements the sync snapshot contract
func (c Configuration) Modified() int64 {
	return c.LastModified
}

// WithModified implements the sync snapshot contract
func (c Configuration) WithModified(ms int64) Configuration {
	c.LastModified = ms
	return c
}

// Validate checks every field against the accepted bounds
func (c Configuration) Validate() error {
	if err := ValidateInterval(c.IntervalMs); err != nil {
		return err
	}
	if err := ValidatePixelDistance(c.PixelDistance); err != nil {
		return err
	}
	if _, err := ParseKeyButton(string(c.KeyButton)); err != nil {
		return err
	}
	return nil
}

// Sanitize replaces invalid fields with defaults; used on blobs read from storage
func (c Configuration) Sanitize() Configuration {
	def := Default()
	if ValidateInterval(c.IntervalMs) != nil {
		c.IntervalMs = def.IntervalMs
	}
	if ValidatePixelDistance(c.PixelDistance) != nil {
		c.PixelDistance = def.PixelDistance
	}
	if k, err := ParseKeyButton(string(c.KeyButton)); err != nil {
		c.KeyButton = def.KeyButton
	} else {
		c.KeyButton = k
	}
	return c
}

func ValidateInterval(ms int) error {
	// compare in ms; converting first overflows Duration for huge inputs
	if int64(ms) < MinInterval.Milliseconds() || int64(ms) > MaxInterval.Milliseconds() {
		return fmt.Errorf("%w: interval %dms must be between %d and %d", ErrOutOfRange, ms, MinInterval.Milliseconds(), MaxInterval.Milliseconds())
	}
	return nil
}

func ValidatePixelDistance(px int) error {
	if px < MinPixelDistance || px > MaxPixelDistance {
		return fmt.Errorf("%w: pixel distance %d must be between %d and %d", ErrOutOfRange, px, MinPixelDistance, MaxPixelDistance)
	}
	return nil
}
