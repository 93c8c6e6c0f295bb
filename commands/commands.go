package commands

import (
	"context"

	"github.com/afkcompanion/afkcli/achievements"
	"github.com/afkcompanion/afkcli/companion"
	"github.com/afkcompanion/afkcli/server"
	"github.com/afkcompanion/afkcli/stats"
	"github.com/afkcompanion/afkcli/types"
)

// CommandResponse represents a standardized response format for all commands
type CommandResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) *CommandResponse {
	return &CommandResponse{
		Status: "ok",
		Data:   data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(err error) *CommandResponse {
	return &CommandResponse{
		Status: "error",
		Error:  err.Error(),
	}
}

// Backend is the companion surface commands work against: an in-process
// companion, or a running server reached over JSON-RPC.
type Backend interface {
	State(ctx context.Context) (types.State, error)
	Toggle(ctx context.Context) (types.State, error)
	SetInterval(ctx context.Context, ms int) (types.State, error)
	SetPixelDistance(ctx context.Context, px int) (types.State, error)
	SetKeyButton(ctx context.Context, key string) (types.State, error)
	Stats(ctx context.Context) (stats.Summary, error)
	ResetStats(ctx context.Context) error
	Achievements(ctx context.Context) ([]achievements.Achievement, error)
	ActionOnce(ctx context.Context) (types.ActionOutcome, error)
}

// LocalBackend drives a companion in this process
type LocalBackend struct {
	Companion *companion.Companion
}

func (b LocalBackend) State(ctx context.Context) (types.State, error) {
	return b.Companion.State(), nil
}

func (b LocalBackend) Toggle(ctx context.Context) (types.State, error) {
	if _, err := b.Companion.Toggle(); err != nil {
		return types.State{}, err
	}
	return b.Companion.State(), nil
}

func (b LocalBackend) SetInterval(ctx context.Context, ms int) (types.State, error) {
	if err := b.Companion.SetInterval(ms); err != nil {
		return types.State{}, err
	}
	return b.Companion.State(), nil
}

func (b LocalBackend) SetPixelDistance(ctx context.Context, px int) (types.State, error) {
	if err := b.Companion.SetPixelDistance(px); err != nil {
		return types.State{}, err
	}
	return b.Companion.State(), nil
}

func (b LocalBackend) SetKeyButton(ctx context.Context, key string) (types.State, error) {
	if err := b.Companion.SetKeyButton(key); err != nil {
		return types.State{}, err
	}
	return b.Companion.State(), nil
}

func (b LocalBackend) Stats(ctx context.Context) (stats.Summary, error) {
	return b.Companion.Summary(), nil
}

func (b LocalBackend) ResetStats(ctx context.Context) error {
	b.Companion.ResetStats()
	return nil
}

func (b LocalBackend) Achievements(ctx context.Context) ([]achievements.Achievement, error) {
	return b.Companion.Achievements(), nil
}

func (b LocalBackend) ActionOnce(ctx context.Context) (types.ActionOutcome, error) {
	return b.Companion.ActionOnce(ctx), nil
}

// RemoteBackend forwards to a running server
type RemoteBackend struct {
	Client *server.Client
}

func (b RemoteBackend) state(ctx context.Context, method string, params interface{}) (types.State, error) {
	var s types.State
	err := b.Client.Call(ctx, method, params, &s)
	return s, err
}

func (b RemoteBackend) State(ctx context.Context) (types.State, error) {
	return b.state(ctx, "state", nil)
}

func (b RemoteBackend) Toggle(ctx context.Context) (types.State, error) {
	return b.state(ctx, "toggle", nil)
}

func (b RemoteBackend) SetInterval(ctx context.Context, ms int) (types.State, error) {
	return b.state(ctx, "set_interval", server.SetIntervalParams{Interval: &ms})
}

func (b RemoteBackend) SetPixelDistance(ctx context.Context, px int) (types.State, error) {
	return b.state(ctx, "set_pixel_distance", server.SetPixelDistanceParams{PixelDistance: &px})
}

func (b RemoteBackend) SetKeyButton(ctx context.Context, key string) (types.State, error) {
	return b.state(ctx, "set_key_button", server.SetKeyButtonParams{KeyButton: &key})
}

func (b RemoteBackend) Stats(ctx context.Context) (stats.Summary, error) {
	var s stats.Summary
	err := b.Client.Call(ctx, "stats", nil, &s)
	return s, err
}

func (b RemoteBackend) ResetStats(ctx context.Context) error {
	return b.Client.Call(ctx, "stats_reset", nil, nil)
}

func (b RemoteBackend) Achievements(ctx context.Context) ([]achievements.Achievement, error) {
	var list []achievements.Achievement
	err := b.Client.Call(ctx, "achievements", nil, &list)
	return list, err
}

func (b RemoteBackend) ActionOnce(ctx context.Context) (types.ActionOutcome, error) {
	var outcome types.ActionOutcome
	err := b.Client.Call(ctx, "action_once", nil, &outcome)
	return outcome, err
}
