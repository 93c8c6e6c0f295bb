package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/afkcompanion/afkcli/settings"
)

// HandlerFunc is the signature for JSON-RPC method handlers
type HandlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)

// RPCError carries a JSON-RPC error code through handler returns
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Data)
	}
	return e.Message
}

func invalidParams(format string, args ...interface{}) error {
	return &RPCError{Code: ErrCodeInvalidParams, Message: errTitleInvalidParam, Data: fmt.Sprintf(format, args...)}
}

// toRPCError maps handler errors onto JSON-RPC codes; rejected settings are invalid params
func toRPCError(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	if errors.Is(err, settings.ErrOutOfRange) || errors.Is(err, settings.ErrUnknownKey) {
		return &RPCError{Code: ErrCodeInvalidParams, Message: errTitleInvalidParam, Data: err.Error()}
	}
	return &RPCError{Code: ErrCodeServerError, Message: errTitleServer, Data: err.Error()}
}

// methodRegistry returns a map of method names to handler functions.
// Both /rpc and /ws dispatch through it.
func (s *Server) methodRegistry() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		"state":              s.handleState,
		"toggle":             s.handleToggle,
		"set_interval":       s.handleSetInterval,
		"set_pixel_distance": s.handleSetPixelDistance,
		"set_key_button":     s.handleSetKeyButton,
		"stats":              s.handleStats,
		"stats_reset":        s.handleStatsReset,
		"achievements":       s.handleAchievements,
		"action_once":        s.handleActionOnce,
		"server.shutdown":    s.handleShutdown,
	}
}

// Methods lists registered method names in sorted order
func (s *Server) Methods() []string {
	names := make([]string, 0, len(s.registry))
	for name := range s.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute dispatches a method call using the registry. A method that is
// already running is refused rather than queued.
func (s *Server) Execute(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	handler, exists := s.registry[method]
	if !exists {
		return nil, &RPCError{Code: ErrCodeMethodNotFound, Message: errTitleNotFound, Data: fmt.Sprintf("Method '%s' not found", method)}
	}

	if !s.acquire(method) {
		return nil, &RPCError{Code: ErrCodeServerError, Message: errTitleServer, Data: fmt.Sprintf("'%s' is already in progress", method)}
	}
	defer s.release(method)

	return handler(ctx, params)
}

func (s *Server) acquire(method string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if s.inflight[method] {
		return false
	}
	s.inflight[method] = true
	return true
}

func (s *Server) release(method string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, method)
}

func decodeParams(params json.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return invalidParams("params are required")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return invalidParams("invalid parameters: %v", err)
	}
	return nil
}

type SetIntervalParams struct {
	Interval *int `json:"interval"`
}

type SetPixelDistanceParams struct {
	PixelDistance *int `json:"pixelDistance"`
}

type SetKeyButtonParams struct {
	KeyButton *string `json:"keyButton"`
}

func (s *Server) handleState(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return s.companion.State(), nil
}

func (s *Server) handleToggle(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if _, err := s.companion.Toggle(); err != nil {
		return nil, err
	}
	return s.companion.State(), nil
}

func (s *Server) handleSetInterval(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p SetIntervalParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Interval == nil {
		return nil, invalidParams("'interval' is required")
	}
	if err := s.companion.SetInterval(*p.Interval); err != nil {
		return nil, err
	}
	return s.companion.State(), nil
}

func (s *Server) handleSetPixelDistance(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p SetPixelDistanceParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.PixelDistance == nil {
		return nil, invalidParams("'pixelDistance' is required")
	}
	if err := s.companion.SetPixelDistance(*p.PixelDistance); err != nil {
		return nil, err
	}
	return s.companion.State(), nil
}

func (s *Server) handleSetKeyButton(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p SetKeyButtonParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.KeyButton == nil {
		return nil, invalidParams("'keyButton' is required")
	}
	if err := s.companion.SetKeyButton(*p.KeyButton); err != nil {
		return nil, err
	}
	return s.companion.State(), nil
}

func (s *Server) handleStats(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return s.companion.Summary(), nil
}

func (s *Server) handleStatsReset(ctx context.Context, params json.RawMessage) (interface{}, error) {
	s.companion.ResetStats()
	return okResponse, nil
}

func (s *Server) handleAchievements(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return s.companion.Achievements(), nil
}

func (s *Server) handleActionOnce(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return s.companion.ActionOnce(ctx), nil
}

func (s *Server) handleShutdown(ctx context.Context, params json.RawMessage) (interface{}, error) {
	s.requestShutdown()
	return okResponse, nil
}
