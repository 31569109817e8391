package rpcserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/bobmatnyc/kuzu-memory/internal/rpcserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	enhanceResult  map[string]any
	learnResult    map[string]any
	recallResult   map[string]any
	statsResult    map[string]any
	err            error
	shutdownCalled bool
}

func (f *fakeBackend) Enhance(ctx context.Context, p rpcserver.EnhanceParams) (map[string]any, error) {
	return f.enhanceResult, f.err
}
func (f *fakeBackend) Learn(ctx context.Context, p rpcserver.LearnParams) (map[string]any, error) {
	return f.learnResult, f.err
}
func (f *fakeBackend) Recall(ctx context.Context, p rpcserver.RecallParams) (map[string]any, error) {
	return f.recallResult, f.err
}
func (f *fakeBackend) Stats(ctx context.Context, p rpcserver.StatsParams) (map[string]any, error) {
	return f.statsResult, f.err
}
func (f *fakeBackend) Shutdown(ctx context.Context) error {
	f.shutdownCalled = true
	return nil
}

func call(t *testing.T, s *rpcserver.Server, method string, params any, id any) map[string]any {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		require.NoError(t, err)
		raw = b
	}
	req := rpcserver.JSONRPCRequest{JSONRPC: "2.0", ID: id, Method: method, Params: raw}
	reqBytes, err := json.Marshal(req)
	require.NoError(t, err)

	respBytes, err := s.HandleRequest(context.Background(), reqBytes)
	require.NoError(t, err)
	require.NotNil(t, respBytes)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(respBytes, &resp))
	return resp
}

func TestInitialize_ReturnsProtocolInfo(t *testing.T) {
	s := rpcserver.NewServer(&fakeBackend{})
	resp := call(t, s, "initialize", nil, float64(1))

	result, ok := resp["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2024-11-05", result["protocolVersion"])
}

func TestToolsList_ReturnsFourTools(t *testing.T) {
	s := rpcserver.NewServer(&fakeBackend{})
	resp := call(t, s, "tools/list", nil, float64(2))

	result := resp["result"].(map[string]any)
	tools := result["tools"].([]any)
	assert.Len(t, tools, 4)
}

func TestToolsCall_Enhance_RoutesToBackend(t *testing.T) {
	backend := &fakeBackend{enhanceResult: map[string]any{"enhanced_prompt": "hi", "status": "ok"}}
	s := rpcserver.NewServer(backend)

	params := rpcserver.ToolCallParams{Name: "enhance", Arguments: mustJSON(t, rpcserver.EnhanceParams{Prompt: "hi"})}
	resp := call(t, s, "tools/call", params, float64(3))

	result := resp["result"].(map[string]any)
	assert.Equal(t, "hi", result["enhanced_prompt"])
}

func TestToolsCall_UnknownTool_ReturnsInvalidParams(t *testing.T) {
	s := rpcserver.NewServer(&fakeBackend{})
	params := rpcserver.ToolCallParams{Name: "bogus", Arguments: json.RawMessage(`{}`)}
	resp := call(t, s, "tools/call", params, float64(4))

	errObj := resp["error"].(map[string]any)
	assert.Equal(t, float64(rpcserver.ErrCodeInvalidParams), errObj["code"])
}

func TestToolsCall_BackendError_ReturnsStatusErrorResult(t *testing.T) {
	backend := &fakeBackend{err: errors.New("boom")}
	s := rpcserver.NewServer(backend)
	params := rpcserver.ToolCallParams{Name: "recall", Arguments: mustJSON(t, rpcserver.RecallParams{Query: "x"})}
	resp := call(t, s, "tools/call", params, float64(5))

	result := resp["result"].(map[string]any)
	assert.Equal(t, "error", result["status"])
}

func TestUnknownMethod_ReturnsMethodNotFound(t *testing.T) {
	s := rpcserver.NewServer(&fakeBackend{})
	resp := call(t, s, "bogus/method", nil, float64(6))

	errObj := resp["error"].(map[string]any)
	assert.Equal(t, float64(rpcserver.ErrCodeMethodNotFound), errObj["code"])
}

func TestNotification_ProducesNoResponse(t *testing.T) {
	s := rpcserver.NewServer(&fakeBackend{})
	req := rpcserver.JSONRPCRequest{JSONRPC: "2.0", Method: "initialized"}
	reqBytes, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := s.HandleRequest(context.Background(), reqBytes)
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestShutdown_CallsBackend(t *testing.T) {
	backend := &fakeBackend{}
	s := rpcserver.NewServer(backend)
	call(t, s, "shutdown", nil, float64(7))
	assert.True(t, backend.shutdownCalled)
}

func TestMalformedJSON_ReturnsParseError(t *testing.T) {
	s := rpcserver.NewServer(&fakeBackend{})
	resp, err := s.HandleRequest(context.Background(), []byte(`{not json`))
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(resp, &parsed))
	errObj := parsed["error"].(map[string]any)
	assert.Equal(t, float64(rpcserver.ErrCodeParseError), errObj["code"])
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
