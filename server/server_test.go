package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/afkcompanion/afkcli/companion"
	"github.com/afkcompanion/afkcli/settings"
	"github.com/afkcompanion/afkcli/storage"
	"github.com/afkcompanion/afkcli/types"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingRunner succeeds immediately unless a gate is armed
type blockingRunner struct {
	mu      sync.Mutex
	gate    chan struct{}
	entered chan struct{}
}

func (r *blockingRunner) arm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = make(chan struct{})
	r.entered = make(chan struct{}, 1)
}

func (r *blockingRunner) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	close(r.gate)
	r.gate = nil
}

func (r *blockingRunner) Run(ctx context.Context, cfg settings.Configuration) types.ActionOutcome {
	r.mu.Lock()
	gate, entered := r.gate, r.entered
	r.mu.Unlock()

	if gate != nil {
		entered <- struct{}{}
		<-gate
	}
	return types.NewOutcome(true, "cursor", "Mouse movement completed (5px)", time.Now())
}

func newTestServer(t *testing.T) (*Server, *blockingRunner) {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "afkcli.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	runner := &blockingRunner{}
	c, err := companion.Open(context.Background(), companion.Deps{
		Runner: runner,
		Local:  store,
		Clock:  clockwork.NewFakeClock(),
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return New(c, false), runner
}

func postRPC(t *testing.T, url string, body string) JSONRPCResponse {
	t.Helper()
	resp, err := http.Post(url+"/rpc", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out JSONRPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func errorCode(t *testing.T, resp JSONRPCResponse) float64 {
	t.Helper()
	require.NotNil(t, resp.Error)
	return resp.Error.(map[string]interface{})["code"].(float64)
}

func resultMap(t *testing.T, resp JSONRPCResponse) map[string]interface{} {
	t.Helper()
	require.Nil(t, resp.Error)
	return resp.Result.(map[string]interface{})
}

func TestRootEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var data map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))
	assert.Equal(t, "ok", data["status"])
}

func TestRPCEndpoint_RejectsGet(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/rpc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRPCEndpoint_ProtocolErrors(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	tests := []struct {
		name string
		body string
		code int
	}{
		{"invalid json", `{bad`, ErrCodeParseError},
		{"wrong version", `{"jsonrpc":"1.0","method":"state","id":1}`, ErrCodeInvalidRequest},
		{"missing id", `{"jsonrpc":"2.0","method":"state"}`, ErrCodeInvalidRequest},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, ErrCodeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","method":"reboot","id":1}`, ErrCodeMethodNotFound},
		{"missing params", `{"jsonrpc":"2.0","method":"set_interval","id":1}`, ErrCodeInvalidParams},
		{"missing field", `{"jsonrpc":"2.0","method":"set_interval","params":{},"id":1}`, ErrCodeInvalidParams},
		{"out of range", `{"jsonrpc":"2.0","method":"set_interval","params":{"interval":1000},"id":1}`, ErrCodeInvalidParams},
		{"unknown key", `{"jsonrpc":"2.0","method":"set_key_button","params":{"keyButton":"f42"},"id":1}`, ErrCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postRPC(t, srv.URL, tt.body)
			assert.Equal(t, "2.0", resp.JSONRPC)
			assert.Equal(t, float64(tt.code), errorCode(t, resp))
		})
	}
}

func TestRPCEndpoint_Methods(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	state := resultMap(t, postRPC(t, srv.URL, `{"jsonrpc":"2.0","method":"state","id":1}`))
	assert.Equal(t, false, state["isActive"])
	assert.Equal(t, float64(60000), state["interval"])

	state = resultMap(t, postRPC(t, srv.URL, `{"jsonrpc":"2.0","method":"set_interval","params":{"interval":5000},"id":2}`))
	assert.Equal(t, float64(5000), state["interval"])
	assert.Equal(t, "0:05", state["nextActionFormatted"])

	state = resultMap(t, postRPC(t, srv.URL, `{"jsonrpc":"2.0","method":"set_pixel_distance","params":{"pixelDistance":20},"id":3}`))
	assert.Equal(t, float64(20), state["pixelDistance"])

	state = resultMap(t, postRPC(t, srv.URL, `{"jsonrpc":"2.0","method":"set_key_button","params":{"keyButton":"F15"},"id":4}`))
	assert.Equal(t, "f15", state["keyButton"])

	state = resultMap(t, postRPC(t, srv.URL, `{"jsonrpc":"2.0","method":"toggle","id":5}`))
	assert.Equal(t, true, state["isActive"])
	assert.Equal(t, float64(1), state["actionCount"])

	summary := resultMap(t, postRPC(t, srv.URL, `{"jsonrpc":"2.0","method":"stats","id":6}`))
	assert.Equal(t, float64(1), summary["totalSessions"])

	state = resultMap(t, postRPC(t, srv.URL, `{"jsonrpc":"2.0","method":"toggle","id":7}`))
	assert.Equal(t, false, state["isActive"])

	outcome := resultMap(t, postRPC(t, srv.URL, `{"jsonrpc":"2.0","method":"action_once","id":8}`))
	assert.Equal(t, true, outcome["success"])

	ach := postRPC(t, srv.URL, `{"jsonrpc":"2.0","method":"achievements","id":9}`)
	require.Nil(t, ach.Error)
	assert.Len(t, ach.Result, len(settings.DefaultThresholds))

	reset := resultMap(t, postRPC(t, srv.URL, `{"jsonrpc":"2.0","method":"stats_reset","id":10}`))
	assert.Equal(t, "ok", reset["status"])
	summary = resultMap(t, postRPC(t, srv.URL, `{"jsonrpc":"2.0","method":"stats","id":11}`))
	assert.Equal(t, float64(0), summary["totalActions"])
}

func TestMethods_ListsRegistrySorted(t *testing.T) {
	s, _ := newTestServer(t)

	methods := s.Methods()
	assert.Len(t, methods, len(s.registry))
	assert.Contains(t, methods, "toggle")
	assert.Contains(t, methods, "server.shutdown")
	assert.IsNonDecreasing(t, methods)
}

func TestSendJSONRPCResponse_UnencodableResultIsInternalError(t *testing.T) {
	rec := httptest.NewRecorder()
	sendJSONRPCResponse(rec, 7, map[string]interface{}{"bad": make(chan int)})

	var resp struct {
		Error map[string]interface{} `json:"error"`
		ID    float64                `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(ErrCodeInternalError), resp.Error["code"])
	assert.Equal(t, "Internal error", resp.Error["message"])
	assert.Equal(t, float64(7), resp.ID)
}

func TestExecute_RefusesConcurrentCallOfSameMethod(t *testing.T) {
	s, runner := newTestServer(t)
	runner.arm()

	done := make(chan error, 1)
	go func() {
		_, err := s.Execute(context.Background(), "action_once", nil)
		done <- err
	}()
	<-runner.entered

	_, err := s.Execute(context.Background(), "action_once", nil)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, ErrCodeServerError, rpcErr.Code)

	_, err = s.Execute(context.Background(), "state", nil)
	assert.NoError(t, err, "other methods are unaffected")

	runner.release()
	require.NoError(t, <-done)

	_, err = s.Execute(context.Background(), "action_once", nil)
	assert.NoError(t, err, "the guard is released after completion")
}

func TestShutdownMethod(t *testing.T) {
	s, _ := newTestServer(t)

	select {
	case <-s.Done():
		t.Fatal("done before shutdown")
	default:
	}

	_, err := s.Execute(context.Background(), "server.shutdown", nil)
	require.NoError(t, err)
	_, err = s.Execute(context.Background(), "server.shutdown", nil)
	require.NoError(t, err, "repeated shutdown is harmless")

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("shutdown did not signal")
	}
}

func TestListenAndServe_StopsOnShutdownCall(t *testing.T) {
	s, _ := newTestServer(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe(context.Background(), addr) }()

	client, err := NewClient(addr)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return client.Running(context.Background()) }, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, client.Call(context.Background(), "server.shutdown", nil, nil))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t)
	s.enableCORS = true
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/rpc", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
