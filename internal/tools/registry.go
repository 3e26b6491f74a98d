// ABOUTME: Thread-safe registry of tool definitions and handlers
// ABOUTME: Dispatch applies the failure boundary so no call escapes as a fault

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrToolNotFound indicates the requested tool is not registered.
var ErrToolNotFound = errors.New("tool not found")

// ErrToolCollision indicates a tool name is already registered.
var ErrToolCollision = errors.New("tool name collision")

// Definition describes a tool to protocol clients.
type Definition struct {
	Name        string
	Description string
	InputSchema string // JSON Schema for the tool's arguments
}

// Handler executes a tool with the decoded argument mapping. It returns the
// JSON-encoded payload or a fault for the normalizer to classify.
type Handler func(ctx context.Context, args map[string]any) ([]byte, error)

// Tool pairs a definition with its handler.
type Tool struct {
	Definition Definition
	Handler    Handler
}

// Pack is a named collection of tools registered together.
type Pack struct {
	ID    string
	Tools []*Tool
}

// Registry holds registered tools and dispatches calls to them. Each call
// is an independent unit of work; the registry itself is immutable after
// registration apart from the lock-guarded map.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	order  []string
	logger *slog.Logger

	// Timeout bounds a single tool call when non-zero. Set before serving.
	Timeout time.Duration
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]*Tool),
		logger: logger.With("component", "tools"),
	}
}

// RegisterPack registers every tool in the pack, rejecting name collisions
// before any tool is added.
func (r *Registry) RegisterPack(pack *Pack) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tool := range pack.Tools {
		if _, exists := r.tools[tool.Definition.Name]; exists {
			return fmt.Errorf("%w: %s", ErrToolCollision, tool.Definition.Name)
		}
	}

	for _, tool := range pack.Tools {
		r.tools[tool.Definition.Name] = tool
		r.order = append(r.order, tool.Definition.Name)
	}

	r.logger.Info("registered tool pack", "pack_id", pack.ID, "tools", len(pack.Tools))
	return nil
}

// Definitions returns tool definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Dispatch runs the named tool with the given raw arguments and returns a
// normalized result. Faults inside the tool become error results, never
// returned errors; only an unknown tool name fails.
func (r *Registry) Dispatch(ctx context.Context, name string, arguments json.RawMessage) (Result, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	args := map[string]any{}
	if len(arguments) > 0 && string(arguments) != "null" {
		if err := json.Unmarshal(arguments, &args); err != nil {
			verr := &ValidationError{Field: "arguments", Reason: "must be a JSON object"}
			return normalize(r.logger, name, nil, verr), nil
		}
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	payload, err := r.run(ctx, tool, args)
	return normalize(r.logger, name, payload, err), nil
}

// run invokes the handler, converting panics into errors so a fault in one
// call can never take down the dispatcher.
func (r *Registry) run(ctx context.Context, tool *Tool, args map[string]any) (payload []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("internal error: %v", rec)
		}
	}()
	return tool.Handler(ctx, args)
}
