// Package mcp implements the Model Context Protocol server for the document tools.
//
// # Overview
//
// MCP (Model Context Protocol) is a standard for AI tool integration. This
// package exposes the tool registry to MCP clients (Claude Desktop, IDE
// integrations, custom applications) over two transports: Streamable HTTP and
// stdio.
//
// # HTTP transport
//
// JSON-RPC 2.0 over a single endpoint, per the Streamable HTTP transport spec
// (2025-11-25):
//
//   - POST /mcp - JSON-RPC requests (initialize, tools/list, tools/call)
//   - DELETE /mcp - terminate a session
//
// initialize creates a session and returns its id in the Mcp-Session-Id
// response header; every later request must echo that header. Sessions are
// in-memory and vanish on restart, after which clients re-initialize.
//
// Authentication is bearer-token:
//
//	Authorization: Bearer <token>
//
// Tokens are JWTs verified by an auth.TokenVerifier. When RequireAuth is off,
// requests without a token pass through, but a present-and-invalid token is
// still rejected.
//
// # Stdio transport
//
// ServeStdio reads newline-delimited JSON-RPC from a reader and writes one
// response line per request. No sessions, no authentication: the local client
// already owns the process.
//
// # Tool execution
//
// Clients call tools/list to discover the tool schemas, then tools/call to
// run one:
//
//	{
//	  "jsonrpc": "2.0",
//	  "method": "tools/call",
//	  "params": {
//	    "name": "get_item",
//	    "arguments": {"containerName": "orders", "id": "a1"}
//	  },
//	  "id": 2
//	}
//
// Tool outcomes, including tool-level failures, come back as a CallToolResult
// with text content and an isError flag. JSON-RPC errors are reserved for
// protocol problems: unknown method, unknown tool, malformed params.
package mcp
