// ABOUTME: MCP-compatible HTTP server exposing the container tools to agents.
// ABOUTME: Implements Streamable HTTP transport (spec 2025-11-25) with session management.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelworks/docgate/internal/auth"
	"github.com/kestrelworks/docgate/internal/tools"
)

// Supported MCP protocol versions
var supportedProtocolVersions = map[string]bool{
	"2025-03-26": true,
	"2025-11-25": true,
}

// latestProtocolVersion is the version we advertise in initialize responses
const latestProtocolVersion = "2025-11-25"

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// JSON-RPC 2.0 types

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603
)

// MCP-specific types

// MCPToolInfo represents an MCP tool definition.
type MCPToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// MCPListToolsResult is the result for tools/list.
type MCPListToolsResult struct {
	Tools []MCPToolInfo `json:"tools"`
}

// MCPCallToolParams are the params for tools/call.
type MCPCallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// MCPCallToolResult is the result for tools/call.
type MCPCallToolResult struct {
	Content []MCPContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

// MCPContent represents content in a tool result.
type MCPContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// mcpSession tracks an active MCP client session.
type mcpSession struct {
	id              string
	protocolVersion string
	subject         string
	ownerToken      string // bearer token used to verify session ownership on DELETE
	createdAt       time.Time
}

// sessionStore manages active MCP sessions (in-memory).
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*mcpSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*mcpSession)}
}

func (s *sessionStore) create(protocolVersion, subject, ownerToken string) *mcpSession {
	sess := &mcpSession{
		id:              uuid.New().String(),
		protocolVersion: protocolVersion,
		subject:         subject,
		ownerToken:      ownerToken,
		createdAt:       time.Now(),
	}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess
}

func (s *sessionStore) get(id string) (*mcpSession, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	return sess, ok
}

func (s *sessionStore) delete(id string) bool {
	s.mu.Lock()
	_, existed := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	return existed
}

// Config holds configuration for the MCP server.
type Config struct {
	Registry      *tools.Registry
	Logger        *slog.Logger
	TokenVerifier auth.TokenVerifier
	RequireAuth   bool   // reject requests that lack a valid bearer token
	ServerName    string // advertised in initialize responses
	ServerVersion string
}

// Server exposes the tool registry over MCP transports. The HTTP side
// conforms to the Streamable HTTP transport spec (2025-11-25); stdio serves a
// single local client (see stdio.go).
type Server struct {
	registry      *tools.Registry
	logger        *slog.Logger
	verifier      auth.TokenVerifier
	requireAuth   bool
	serverName    string
	serverVersion string
	sessions      *sessionStore
}

// NewServer creates a new MCP server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.RequireAuth && cfg.TokenVerifier == nil {
		return nil, errors.New("token verifier required when auth is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	name := cfg.ServerName
	if name == "" {
		name = "docgate"
	}
	version := cfg.ServerVersion
	if version == "" {
		version = "dev"
	}

	return &Server{
		registry:      cfg.Registry,
		logger:        logger,
		verifier:      cfg.TokenVerifier,
		requireAuth:   cfg.RequireAuth,
		serverName:    name,
		serverVersion: version,
		sessions:      newSessionStore(),
	}, nil
}

// RegisterRoutes registers the MCP endpoint on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/mcp", s.handleMCP)
}

// handleMCP is the single MCP endpoint supporting POST and DELETE per the
// Streamable HTTP transport spec.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodGet:
		// Server-initiated SSE streams are not supported
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "POST, GET, DELETE")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// handleDelete terminates a session. The caller must present the same bearer
// token that created the session, so one client cannot tear down another's.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
		return
	}

	sess, ok := s.sessions.get(sessionID)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if sess.ownerToken != "" && bearerToken(r) != sess.ownerToken {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	s.sessions.delete(sessionID)
	s.logger.Info("MCP session terminated", "session_id", sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// handlePost processes JSON-RPC messages sent via HTTP POST.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	protoVersion := r.Header.Get("Mcp-Protocol-Version")

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.sendJSONRPCError(w, nil, JSONRPCParseError, "failed to read request body", nil)
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.sendJSONRPCError(w, nil, JSONRPCInvalidRequest, "request body too large", nil)
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendJSONRPCError(w, nil, JSONRPCParseError, "invalid JSON", nil)
		return
	}

	if req.JSONRPC != "2.0" {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "invalid JSON-RPC version", nil)
		return
	}

	isInitialize := req.Method == "initialize"
	isNotification := len(req.ID) == 0 || string(req.ID) == "null"

	// Validate the protocol version header (not required on initialize).
	if !isInitialize && protoVersion != "" && !supportedProtocolVersions[protoVersion] {
		http.Error(w, "Bad Request: unsupported MCP-Protocol-Version", http.StatusBadRequest)
		return
	}

	if isInitialize {
		subject, authErr := s.authenticate(r)
		if authErr != nil {
			// A present-but-invalid token is always rejected, even when auth
			// is optional; silent fallback would mask misconfigured clients.
			if errors.Is(authErr, errInvalidToken) {
				s.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "invalid or expired token", nil)
				return
			}
			if s.requireAuth {
				s.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "authentication required", nil)
				return
			}
			subject = ""
		}
		s.handleInitialize(w, r, req, subject)
		return
	}

	// Non-initialize requests require a valid session
	if sessionID == "" {
		http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
		return
	}
	if _, ok := s.sessions.get(sessionID); !ok {
		// Session expired or unknown - client must re-initialize
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	s.logger.Debug("MCP request",
		"method", req.Method,
		"is_notification", isNotification,
		"session_id", sessionID,
	)

	// Notifications are accepted with HTTP 202 and no body
	if isNotification {
		if !strings.HasPrefix(req.Method, "notifications/") {
			s.logger.Warn("received notification for non-notification method", "method", req.Method)
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	s.sendResponse(w, s.dispatchRPC(r.Context(), req))
}

// handleInitialize handles the MCP initialize handshake and creates a session.
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request, req JSONRPCRequest, subject string) {
	sess := s.sessions.create(latestProtocolVersion, subject, bearerToken(r))

	s.logger.Info("MCP session created",
		"session_id", sess.id,
		"protocol_version", sess.protocolVersion,
	)

	w.Header().Set("Mcp-Session-Id", sess.id)
	s.sendJSONRPCResult(w, req.ID, s.initializeResult())
}

// dispatchRPC routes a parsed JSON-RPC request to its handler and builds the
// response. Shared by the HTTP and stdio transports.
func (s *Server) dispatchRPC(ctx context.Context, req JSONRPCRequest) JSONRPCResponse {
	var result any
	var rpcErr *JSONRPCError

	switch req.Method {
	case "initialize":
		result = s.initializeResult()
	case "tools/list":
		result = s.toolsListResult()
	case "tools/call":
		result, rpcErr = s.toolsCallResult(ctx, req.Params)
	default:
		rpcErr = &JSONRPCError{Code: JSONRPCMethodNotFound, Message: "method not found"}
	}

	resp := JSONRPCResponse{JSONRPC: "2.0", ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	return resp
}

func (s *Server) initializeResult() map[string]any {
	return map[string]any{
		"protocolVersion": latestProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    s.serverName,
			"version": s.serverVersion,
		},
	}
}

func (s *Server) toolsListResult() MCPListToolsResult {
	defs := s.registry.Definitions()

	result := MCPListToolsResult{
		Tools: make([]MCPToolInfo, len(defs)),
	}
	for i, def := range defs {
		result.Tools[i] = MCPToolInfo{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: json.RawMessage(def.InputSchema),
		}
	}

	s.logger.Debug("tools/list", "count", len(defs))
	return result
}

func (s *Server) toolsCallResult(ctx context.Context, params json.RawMessage) (any, *JSONRPCError) {
	var callParams MCPCallToolParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &callParams); err != nil {
			return nil, &JSONRPCError{Code: JSONRPCInvalidParams, Message: "invalid params"}
		}
	}

	if callParams.Name == "" {
		return nil, &JSONRPCError{Code: JSONRPCInvalidParams, Message: "tool name is required"}
	}

	s.logger.Debug("tools/call", "tool_name", callParams.Name)

	res, err := s.registry.Dispatch(ctx, callParams.Name, callParams.Arguments)
	if err != nil {
		return nil, s.toolError(callParams.Name, err)
	}

	s.logger.Debug("tools/call complete",
		"tool_name", callParams.Name,
		"is_error", res.IsError,
	)

	return MCPCallToolResult{
		Content: []MCPContent{{Type: "text", Text: res.Text}},
		IsError: res.IsError,
	}, nil
}

// toolError maps dispatch-level failures onto JSON-RPC errors. Faults inside
// a tool never reach here; the dispatcher normalizes those into results.
func (s *Server) toolError(toolName string, err error) *JSONRPCError {
	s.logger.Warn("tool dispatch failed",
		"tool_name", toolName,
		"error", err,
	)

	code := JSONRPCInternalError
	message := "tool dispatch failed"

	switch {
	case errors.Is(err, tools.ErrToolNotFound):
		code = JSONRPCInvalidParams
		message = "tool not found"
	case errors.Is(err, context.DeadlineExceeded):
		message = "tool execution timed out"
	case errors.Is(err, context.Canceled):
		message = "request cancelled"
	}

	return &JSONRPCError{Code: code, Message: message}
}

// errInvalidToken marks a token that was provided but failed verification.
// Distinct from "no auth": a provided-but-bad token is rejected even when
// authentication is optional.
var errInvalidToken = errors.New("invalid or expired token")

// authenticate extracts and verifies the bearer token on the request.
func (s *Server) authenticate(r *http.Request) (string, error) {
	if s.verifier == nil {
		return "", errors.New("no authentication configured")
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("missing authorization")
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errors.New("invalid authorization header format")
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", errors.New("empty token")
	}

	subject, err := s.verifier.Verify(token)
	if err != nil {
		return "", errInvalidToken
	}

	return subject, nil
}

// bearerToken returns the raw bearer token on the request, if any.
func bearerToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// sendJSONRPCResult sends a successful JSON-RPC response.
func (s *Server) sendJSONRPCResult(w http.ResponseWriter, id json.RawMessage, result any) {
	s.sendResponse(w, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

// sendJSONRPCError sends a JSON-RPC error response.
func (s *Server) sendJSONRPCError(w http.ResponseWriter, id json.RawMessage, code int, message string, data any) {
	s.sendResponse(w, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	})
}

func (s *Server) sendResponse(w http.ResponseWriter, resp JSONRPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC response", "error", err)
	}
}
