package rpcserver_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bobmatnyc/kuzu-memory/internal/rpcserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdioTransport_Serve_EchoesOneResponsePerLine(t *testing.T) {
	backend := &fakeBackend{}
	server := rpcserver.NewServer(backend)

	input := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"ping"}` + "\n")
	var out bytes.Buffer

	transport := rpcserver.NewStdioTransportFor(server, input, &out)
	err := transport.Serve(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"pong":true`)
}

func TestStdioTransport_Serve_SkipsBlankLines(t *testing.T) {
	backend := &fakeBackend{}
	server := rpcserver.NewServer(backend)

	input := strings.NewReader("\n" + `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n\n")
	var out bytes.Buffer

	transport := rpcserver.NewStdioTransportFor(server, input, &out)
	err := transport.Serve(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 1)
}

func TestStdioTransport_Serve_NotificationProducesNoOutput(t *testing.T) {
	backend := &fakeBackend{}
	server := rpcserver.NewServer(backend)

	input := strings.NewReader(`{"jsonrpc":"2.0","method":"initialized"}` + "\n")
	var out bytes.Buffer

	transport := rpcserver.NewStdioTransportFor(server, input, &out)
	err := transport.Serve(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.String())
}
