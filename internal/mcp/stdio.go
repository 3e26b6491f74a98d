// ABOUTME: Stdio transport for the MCP server (newline-delimited JSON-RPC).
// ABOUTME: Serves one local client, sharing dispatch with the HTTP transport.

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// maxStdioLineSize bounds a single JSON-RPC message on the stdio transport.
const maxStdioLineSize = 4 << 20

// ServeStdio reads newline-delimited JSON-RPC requests from r and writes one
// response line per request to w. Notifications produce no output. The loop
// ends when r is exhausted or ctx is cancelled.
//
// Stdio clients are local and already trusted with the process, so no
// authentication or session handshake applies on this transport.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStdioLineSize)

	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("invalid JSON on stdio", "error", err)
			if err := enc.Encode(JSONRPCResponse{
				JSONRPC: "2.0",
				Error:   &JSONRPCError{Code: JSONRPCParseError, Message: "invalid JSON"},
			}); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
			continue
		}

		// Notifications get no response line
		if len(req.ID) == 0 || string(req.ID) == "null" {
			s.logger.Debug("stdio notification", "method", req.Method)
			continue
		}

		resp := s.dispatchRPC(ctx, req)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	return nil
}
