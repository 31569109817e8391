package rpcserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
)

// maxLineSize caps a single JSON-RPC line (spec §4.7 frames are
// newline-delimited JSON; 4MB accommodates large learn payloads).
// Grounded on the teacher's internal/api/mcp/transport.go StdioTransport.
const maxLineSize = 4 * 1024 * 1024

// StdioTransport serves a Server over stdin/stdout, one line per request.
// All diagnostic output goes to stderr: stdout carries only protocol
// frames.
type StdioTransport struct {
	server *Server
	in     io.Reader
	out    io.Writer
	logger *log.Logger
}

// NewStdioTransport builds a transport over os.Stdin/os.Stdout.
func NewStdioTransport(server *Server) *StdioTransport {
	return NewStdioTransportFor(server, os.Stdin, os.Stdout)
}

// NewStdioTransportFor builds a transport over arbitrary in/out streams,
// used in tests to avoid touching the real stdin/stdout.
func NewStdioTransportFor(server *Server, in io.Reader, out io.Writer) *StdioTransport {
	return &StdioTransport{
		server: server,
		in:     in,
		out:    out,
		logger: log.New(os.Stderr, "kuzu-memory: ", log.LstdFlags),
	}
}

// Serve reads newline-delimited requests until ctx is cancelled or stdin
// is closed.
func (t *StdioTransport) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(t.in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				t.logger.Printf("read error: %v", err)
				return err
			}
			return nil // stdin closed (EOF)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		resp, err := t.server.HandleRequest(ctx, line)
		if err != nil {
			t.logger.Printf("handle error: %v", err)
			resp = t.internalErrorResponse(line, err)
		}
		if resp == nil {
			continue // notification: no response
		}
		if err := t.writeResponse(resp); err != nil {
			t.logger.Printf("write error: %v", err)
			return err
		}
	}
}

func (t *StdioTransport) writeResponse(resp []byte) error {
	if _, err := t.out.Write(resp); err != nil {
		return err
	}
	_, err := t.out.Write([]byte("\n"))
	return err
}

// internalErrorResponse builds a best-effort error frame when dispatch
// itself fails unexpectedly, extracting the request ID from the raw line
// if possible rather than dropping it.
func (t *StdioTransport) internalErrorResponse(line []byte, cause error) []byte {
	var probe struct {
		ID any `json:"id"`
	}
	_ = json.Unmarshal(line, &probe)

	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      probe.ID,
		Error:   &JSONRPCError{Code: ErrCodeInternalError, Message: cause.Error()},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"internal error"}}`)
	}
	return data
}
