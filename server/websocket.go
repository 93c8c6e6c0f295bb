package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/afkcompanion/afkcli/utils"
	"github.com/gorilla/websocket"
)

const (
	// stateNotification is the method name of pushed state updates
	stateNotification = "state"
	wsWriteTimeout    = 5 * time.Second
)

type wsConnection struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func newUpgrader(enableCORS bool) *websocket.Upgrader {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	if enableCORS {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
	} else {
		upgrader.CheckOrigin = isSameOrigin
	}

	return &upgrader
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := newUpgrader(s.enableCORS).Upgrade(w, r, nil)
	if err != nil {
		utils.Warn("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	wsConn := &wsConnection{conn: conn}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	states, unsubscribe := s.companion.Subscribe()
	defer unsubscribe()

	pushDone := make(chan struct{})
	go func() {
		defer close(pushDone)
		for {
			select {
			case <-ctx.Done():
				return
			case state, ok := <-states:
				if !ok {
					return
				}
				if err := wsConn.sendNotification(stateNotification, state); err != nil {
					utils.Verbose("WebSocket push failed: %v", err)
					cancel()
					return
				}
			}
		}
	}()

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			// connection closed or error
			utils.Verbose("WebSocket connection closed: %v", err)
			break
		}

		if messageType != websocket.TextMessage {
			_ = wsConn.sendError(nil, ErrCodeInvalidRequest, errTitleInvalidReq, "only text messages accepted for requests")
			continue
		}

		s.handleWSMessage(ctx, wsConn, message)
	}

	cancel()
	<-pushDone
}

func isSameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	return originURL.Host == r.Host
}

func (s *Server) handleWSMessage(ctx context.Context, wsConn *wsConnection, message []byte) {
	var req JSONRPCRequest
	if err := json.Unmarshal(message, &req); err != nil {
		_ = wsConn.sendError(nil, ErrCodeParseError, errTitleParse, errMsgParse)
		return
	}

	if rpcErr := validateRequest(req); rpcErr != nil {
		_ = wsConn.sendError(rpcErr.id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}

	utils.Verbose("WebSocket Request ID: %v, Method: %s, Params: %s", req.ID, req.Method, string(req.Params))

	result, err := s.Execute(ctx, req.Method, req.Params)
	if err != nil {
		rpcErr := toRPCError(err)
		utils.Warn("Error executing method %s: %v", req.Method, err)
		_ = wsConn.sendError(req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}

	_ = wsConn.sendResponse(req.ID, result)
}

func (wsc *wsConnection) sendResponse(id interface{}, result interface{}) error {
	data, err := json.Marshal(JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	})
	if err != nil {
		utils.Error("failed to encode result for request %v: %v", id, err)
		return wsc.sendError(id, ErrCodeInternalError, errTitleInternal, err.Error())
	}

	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()
	_ = wsc.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return wsc.conn.WriteMessage(websocket.TextMessage, data)
}

func (wsc *wsConnection) sendError(id interface{}, code int, message string, data interface{}) error {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Error: map[string]interface{}{
			"code":    code,
			"message": message,
			"data":    data,
		},
		ID: id,
	}
	return wsc.sendJSON(response)
}

func (wsc *wsConnection) sendNotification(method string, params interface{}) error {
	return wsc.sendJSON(JSONRPCNotification{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
}

func (wsc *wsConnection) sendJSON(v interface{}) error {
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()
	_ = wsc.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return wsc.conn.WriteJSON(v)
}
