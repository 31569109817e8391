package rpcserver

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/time/rate"
)

// defaultToolCallRate/defaultToolCallBurst throttle tools/call dispatch so a
// misbehaving client can't stall the embedded store with an unbounded burst
// of concurrent learn/recall requests over a single stdio connection.
const (
	defaultToolCallRate  = 50
	defaultToolCallBurst = 20
)

// Backend is everything the dispatcher needs from the embedded client
// (pkg/kuzuclient) to serve the four tools. Declaring it here rather than
// importing kuzuclient keeps rpcserver a leaf package and the dependency
// direction pointing from kuzuclient to rpcserver.
type Backend interface {
	Enhance(ctx context.Context, p EnhanceParams) (map[string]any, error)
	Learn(ctx context.Context, p LearnParams) (map[string]any, error)
	Recall(ctx context.Context, p RecallParams) (map[string]any, error)
	Stats(ctx context.Context, p StatsParams) (map[string]any, error)
	Shutdown(ctx context.Context) error
}

// toolSchemas is the static schema payload for tools/list (spec §4.7,
// §6.2).
var toolSchemas = []map[string]any{
	{"name": "enhance", "description": "Rewrite a prompt by prepending relevant memories as context."},
	{"name": "learn", "description": "Classify and persist a new observation, asynchronously."},
	{"name": "recall", "description": "Return memories relevant to a query."},
	{"name": "stats", "description": "Return store statistics."},
}

// Server dispatches JSON-RPC requests to a Backend (spec §4.7).
type Server struct {
	backend         Backend
	protocolVersion string
	toolCallLimiter *rate.Limiter
}

// NewServer builds a Server with the default tools/call rate limit.
func NewServer(backend Backend) *Server {
	return NewServerWithRateLimit(backend, defaultToolCallRate, defaultToolCallBurst)
}

// NewServerWithRateLimit builds a Server whose tools/call dispatch is
// throttled to reqPerSec sustained, burst allowed in a single instant.
func NewServerWithRateLimit(backend Backend, reqPerSec float64, burst int) *Server {
	return &Server{
		backend:         backend,
		protocolVersion: "2024-11-05",
		toolCallLimiter: rate.NewLimiter(rate.Limit(reqPerSec), burst),
	}
}

// HandleRequest parses one line of input, dispatches it, and returns the
// marshalled response. A request with no "id" is a notification: nil, nil
// is returned and the transport writes nothing.
func (s *Server) HandleRequest(ctx context.Context, line []byte) ([]byte, error) {
	var req JSONRPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return s.errorResponse(nil, ErrCodeParseError, err.Error()), nil
	}
	if req.Method == "" {
		return s.errorResponse(req.ID, ErrCodeInvalidRequest, "missing method"), nil
	}

	isNotification := req.ID == nil

	result, rpcErr := s.dispatch(ctx, req)
	if isNotification {
		return nil, nil
	}
	if rpcErr != nil {
		return s.errorResponse(req.ID, rpcErr.Code, rpcErr.Message), nil
	}
	return s.successResponse(req.ID, result)
}

func (s *Server) dispatch(ctx context.Context, req JSONRPCRequest) (any, *JSONRPCError) {
	switch req.Method {
	case "initialize":
		return map[string]any{
			"protocolVersion": s.protocolVersion,
			"serverInfo":      map[string]any{"name": "kuzu-memory", "version": "1.0.0"},
			"capabilities":    map[string]any{"tools": map[string]any{}},
		}, nil
	case "initialized":
		return map[string]any{}, nil
	case "tools/list":
		return map[string]any{"tools": toolSchemas}, nil
	case "tools/call":
		return s.dispatchToolCall(ctx, req.Params)
	case "ping":
		return map[string]any{"pong": true}, nil
	case "shutdown":
		if err := s.backend.Shutdown(ctx); err != nil {
			return nil, &JSONRPCError{Code: ErrCodeInternalError, Message: err.Error()}
		}
		return map[string]any{"status": "ok"}, nil
	default:
		return nil, &JSONRPCError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("unknown method %q", req.Method)}
	}
}

func (s *Server) dispatchToolCall(ctx context.Context, raw json.RawMessage) (any, *JSONRPCError) {
	if !s.toolCallLimiter.Allow() {
		return nil, &JSONRPCError{Code: ErrCodeInternalError, Message: "rate limit exceeded, slow down tool calls"}
	}

	var call ToolCallParams
	if err := json.Unmarshal(raw, &call); err != nil {
		return nil, &JSONRPCError{Code: ErrCodeInvalidParams, Message: err.Error()}
	}

	var (
		result map[string]any
		err    error
	)
	switch call.Name {
	case "enhance":
		var p EnhanceParams
		if err = json.Unmarshal(call.Arguments, &p); err == nil {
			result, err = s.backend.Enhance(ctx, p)
		}
	case "learn":
		var p LearnParams
		if err = json.Unmarshal(call.Arguments, &p); err == nil {
			result, err = s.backend.Learn(ctx, p)
		}
	case "recall":
		var p RecallParams
		if err = json.Unmarshal(call.Arguments, &p); err == nil {
			result, err = s.backend.Recall(ctx, p)
		}
	case "stats":
		var p StatsParams
		if err = json.Unmarshal(call.Arguments, &p); err == nil {
			result, err = s.backend.Stats(ctx, p)
		}
	default:
		return nil, &JSONRPCError{Code: ErrCodeInvalidParams, Message: fmt.Sprintf("unknown tool %q", call.Name)}
	}

	if err != nil {
		// Tool-level failures surface as a normal result with
		// status:"error" rather than a protocol error (spec §4.7).
		return map[string]any{"status": "error", "error": err.Error()}, nil
	}
	return result, nil
}

func (s *Server) successResponse(id any, result any) ([]byte, error) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
	return json.Marshal(resp)
}

func (s *Server) errorResponse(id any, code int, message string) []byte {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &JSONRPCError{Code: code, Message: message}}
	data, err := json.Marshal(resp)
	if err != nil {
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"internal error"}}`)
	}
	return data
}
