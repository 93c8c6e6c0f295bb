package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/afkcompanion/afkcli/automation"
	"github.com/afkcompanion/afkcli/settings"
)

const (
	KeyInterval      = "interval"
	KeyPixelDistance = "pixel-distance"
	KeyKeyButton     = "key-button"
)

// ConfigKeys lists the settings config get/set understand
var ConfigKeys = []string{KeyInterval, KeyPixelDistance, KeyKeyButton}

func StatusCommand(ctx context.Context, b Backend) *CommandResponse {
	state, err := b.State(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("failed to get state: %w", err))
	}
	return NewSuccessResponse(state)
}

func ToggleCommand(ctx context.Context, b Backend) *CommandResponse {
	state, err := b.Toggle(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("failed to toggle: %w", err))
	}
	return NewSuccessResponse(state)
}

// ConfigGetCommand returns every setting, or one when key is set
func ConfigGetCommand(ctx context.Context, b Backend, key string) *CommandResponse {
	state, err := b.State(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("failed to get settings: %w", err))
	}

	all := map[string]interface{}{
		KeyInterval:      state.Interval,
		KeyPixelDistance: state.PixelDistance,
		KeyKeyButton:     state.KeyButton,
	}
	if key == "" {
		return NewSuccessResponse(all)
	}

	value, ok := all[normalizeKey(key)]
	if !ok {
		return NewErrorResponse(fmt.Errorf("unknown setting %q, expected one of %s", key, strings.Join(ConfigKeys, ", ")))
	}
	return NewSuccessResponse(map[string]interface{}{normalizeKey(key): value})
}

// ConfigSetCommand changes one setting; interval accepts milliseconds or a Go duration ("30s")
func ConfigSetCommand(ctx context.Context, b Backend, key, value string) *CommandResponse {
	var err error
	switch normalizeKey(key) {
	case KeyInterval:
		var ms int
		ms, err = ParseIntervalMs(value)
		if err == nil {
			_, err = b.SetInterval(ctx, ms)
		}
	case KeyPixelDistance:
		var px int
		px, err = strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			err = fmt.Errorf("invalid pixel distance %q: %w", value, err)
		} else {
			_, err = b.SetPixelDistance(ctx, px)
		}
	case KeyKeyButton:
		_, err = b.SetKeyButton(ctx, value)
	default:
		err = fmt.Errorf("unknown setting %q, expected one of %s", key, strings.Join(ConfigKeys, ", "))
	}

	if err != nil {
		return NewErrorResponse(err)
	}
	return ConfigGetCommand(ctx, b, "")
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, "_", "-")
	switch key {
	case "pixeldistance", "distance":
		return KeyPixelDistance
	case "keybutton", "key":
		return KeyKeyButton
	}
	return key
}

// ParseIntervalMs accepts "30000" (milliseconds) or a duration such as "30s" or "2m"
func ParseIntervalMs(value string) (int, error) {
	value = strings.TrimSpace(value)
	if ms, err := strconv.Atoi(value); err == nil {
		return ms, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: use milliseconds or a duration like 30s", value)
	}
	return int(d / time.Millisecond), nil
}

func StatsCommand(ctx context.Context, b Backend) *CommandResponse {
	summary, err := b.Stats(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("failed to get stats: %w", err))
	}
	return NewSuccessResponse(summary)
}

func StatsResetCommand(ctx context.Context, b Backend) *CommandResponse {
	if err := b.ResetStats(ctx); err != nil {
		return NewErrorResponse(fmt.Errorf("failed to reset stats: %w", err))
	}
	return NewSuccessResponse(map[string]string{"message": "Statistics cleared"})
}

func AchievementsCommand(ctx context.Context, b Backend) *CommandResponse {
	list, err := b.Achievements(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("failed to get achievements: %w", err))
	}
	return NewSuccessResponse(list)
}

func ActionOnceCommand(ctx context.Context, b Backend) *CommandResponse {
	outcome, err := b.ActionOnce(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("failed to run action: %w", err))
	}
	if !outcome.Success {
		return &CommandResponse{Status: "error", Data: outcome, Error: outcome.Message}
	}
	return NewSuccessResponse(outcome)
}

type KeyInfo struct {
	Name   string `json:"name"`
	Toggle bool   `json:"toggle"`
	Taps   int    `json:"taps"`
}

// KeysCommand lists the key buttons and how each is tapped
func KeysCommand() *CommandResponse {
	keys := make([]KeyInfo, 0, len(settings.KeyButtons))
	for _, k := range settings.KeyButtons {
		keys = append(keys, KeyInfo{
			Name:   string(k),
			Toggle: automation.IsToggleKey(k),
			Taps:   automation.PlanFor(k).Presses(),
		})
	}
	return NewSuccessResponse(keys)
}
