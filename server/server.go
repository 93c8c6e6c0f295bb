package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/afkcompanion/afkcli/companion"
	"github.com/afkcompanion/afkcli/utils"
)

const (
	// Parse error: Invalid JSON was received by the server
	ErrCodeParseError = -32700

	// Invalid Request: The JSON sent is not a valid Request object
	ErrCodeInvalidRequest = -32600

	// Method not found: The method does not exist / is not available
	ErrCodeMethodNotFound = -32601

	// Server error: Internal JSON-RPC error
	ErrCodeServerError = -32000

	// Invalid params: Invalid method parameters
	ErrCodeInvalidParams = -32602

	// Internal error: Internal JSON-RPC error
	ErrCodeInternalError = -32603
)

const (
	errTitleParse        = "Parse error"
	errTitleInvalidReq   = "Invalid Request"
	errTitleNotFound     = "Method not found"
	errTitleServer       = "Server error"
	errTitleInvalidParam = "Invalid params"
	errTitleInternal     = "Internal error"

	errMsgParse          = "expecting jsonrpc payload"
	errMsgInvalidJSONRPC = "'jsonrpc' must be '2.0'"
	errMsgIDRequired     = "'id' field is required"
	errMsgMethodRequired = "'method' is required"
)

// Server timeouts
const (
	ReadTimeout     = 10 * time.Second
	WriteTimeout    = 10 * time.Second
	IdleTimeout     = 120 * time.Second
	ShutdownTimeout = 5 * time.Second
)

var okResponse = map[string]interface{}{"status": "ok"}

type JSONRPCRequest struct {
	// these fields are all omitempty, so we can report back to client if they are missing
	JSONRPC string          `json:"jsonrpc,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC response
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   interface{} `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// JSONRPCNotification is pushed to websocket clients without a request
type JSONRPCNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// Server exposes a companion over JSON-RPC on /rpc and /ws
type Server struct {
	companion  *companion.Companion
	registry   map[string]HandlerFunc
	enableCORS bool

	inflightMu sync.Mutex
	inflight   map[string]bool

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

func New(c *companion.Companion, enableCORS bool) *Server {
	s := &Server{
		companion:  c,
		enableCORS: enableCORS,
		inflight:   make(map[string]bool),
		shutdown:   make(chan struct{}),
	}
	s.registry = s.methodRegistry()
	return s
}

// corsMiddleware handles CORS preflight requests and adds CORS headers to responses.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", sendBanner)
	mux.HandleFunc("/rpc", s.handleJSONRPC)
	mux.HandleFunc("/ws", s.handleWebSocket)

	if s.enableCORS {
		return corsMiddleware(mux)
	}
	return mux
}

// Done is closed once a client asked the server to shut down
func (s *Server) Done() <-chan struct{} {
	return s.shutdown
}

func (s *Server) requestShutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })
}

// ListenAndServe serves until ctx is cancelled or a client calls server.shutdown
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	addr, err := utils.NormalizeListenAddr(addr)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}

	utils.Verbose("Serving methods: %s", strings.Join(s.Methods(), ", "))

	errCh := make(chan error, 1)
	go func() {
		utils.Info("Starting server on http://%s...", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case <-s.shutdown:
		utils.Info("Shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONRPCError(w, nil, ErrCodeParseError, errTitleParse, errMsgParse)
		return
	}

	if rpcErr := validateRequest(req); rpcErr != nil {
		sendJSONRPCError(w, rpcErr.id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}

	utils.Verbose("Request ID: %v, Method: %s, Params: %s", req.ID, req.Method, string(req.Params))

	result, err := s.Execute(r.Context(), req.Method, req.Params)
	if err != nil {
		rpcErr := toRPCError(err)
		utils.Warn("Error executing method %s: %v", req.Method, err)
		sendJSONRPCError(w, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}

	sendJSONRPCResponse(w, req.ID, result)
}

type requestError struct {
	*RPCError
	id interface{}
}

func validateRequest(req JSONRPCRequest) *requestError {
	if req.JSONRPC != "2.0" {
		return &requestError{&RPCError{Code: ErrCodeInvalidRequest, Message: errTitleInvalidReq, Data: errMsgInvalidJSONRPC}, req.ID}
	}
	if req.ID == nil {
		return &requestError{&RPCError{Code: ErrCodeInvalidRequest, Message: errTitleInvalidReq, Data: errMsgIDRequired}, nil}
	}
	if req.Method == "" {
		return &requestError{&RPCError{Code: ErrCodeInvalidRequest, Message: errTitleInvalidReq, Data: errMsgMethodRequired}, req.ID}
	}
	return nil
}

func sendJSONRPCResponse(w http.ResponseWriter, id interface{}, result interface{}) {
	data, err := json.Marshal(JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	})
	if err != nil {
		utils.Error("failed to encode result for request %v: %v", id, err)
		sendJSONRPCError(w, id, ErrCodeInternalError, errTitleInternal, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(append(data, '\n'))
}

func sendJSONRPCError(w http.ResponseWriter, id interface{}, code int, message string, data interface{}) {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Error: map[string]interface{}{
			"code":    code,
			"message": message,
			"data":    data,
		},
		ID: id,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func sendBanner(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(okResponse)
}
