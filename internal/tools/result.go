// ABOUTME: Failure boundary mapping operation outcomes onto uniform tool results
// ABOUTME: Classifies faults as not-found, validation, serialization, or service

package tools

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/kestrelworks/docgate/internal/docstore"
)

// Result is the uniform outcome of a tool call: a textual payload and an
// error flag. When IsError is true the payload is a human-readable error
// description, never partial data.
type Result struct {
	Text    string
	IsError bool
}

// msgNotFound is the stable payload for a missing document. Clients match
// on it, so it never changes.
const msgNotFound = "Error: Item not found"

// SerializationError wraps a JSON encode failure. The cause is logged but
// never surfaced to the caller.
type SerializationError struct {
	What string
	Err  error
}

func (e *SerializationError) Error() string { return "failed to serialize " + e.What }
func (e *SerializationError) Unwrap() error { return e.Err }

// marshal encodes a response payload, tagging failures for the normalizer.
func marshal(what string, v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, &SerializationError{What: what, Err: err}
	}
	return b, nil
}

// normalize maps a handler outcome onto a Result. Every fault lands in
// exactly one of the four variants; nothing propagates past this boundary
// as an unhandled error.
func normalize(logger *slog.Logger, tool string, payload []byte, err error) Result {
	if err == nil {
		return Result{Text: string(payload)}
	}

	var valErr *ValidationError
	var serErr *SerializationError
	var svcErr *docstore.ServiceError

	switch {
	case errors.Is(err, docstore.ErrNotFound):
		logger.Warn("item not found", "tool", tool)
		return Result{Text: msgNotFound, IsError: true}

	case errors.As(err, &valErr):
		logger.Warn("invalid arguments", "tool", tool, "field", valErr.Field, "reason", valErr.Reason)
		return Result{Text: "Error: " + valErr.Error(), IsError: true}

	case errors.As(err, &serErr):
		logger.Warn("serialization error", "tool", tool, "error", serErr.Unwrap())
		return Result{Text: "Error: Failed to serialize " + serErr.What, IsError: true}

	case errors.As(err, &svcErr):
		logger.Warn("store error", "tool", tool, "status", svcErr.StatusCode, "message", svcErr.Message)
		return Result{Text: "Error: " + svcErr.Error(), IsError: true}

	default:
		logger.Warn("tool error", "tool", tool, "error", err)
		return Result{Text: "Error: " + err.Error(), IsError: true}
	}
}
