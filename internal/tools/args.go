// ABOUTME: Argument validation for tool-call requests
// ABOUTME: All checks run before any store I/O so invalid input has no side effects

package tools

import (
	"fmt"
	"strings"
)

// ValidationError reports a missing or malformed tool argument. The field
// name is always part of the message surfaced to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// requireString returns the named argument as a non-blank string.
func requireString(args map[string]any, field string) (string, error) {
	v, ok := args[field]
	if !ok || v == nil {
		return "", &ValidationError{Field: field, Reason: "is required"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ValidationError{Field: field, Reason: "must be a string"}
	}
	if strings.TrimSpace(s) == "" {
		return "", &ValidationError{Field: field, Reason: "cannot be blank"}
	}
	return s, nil
}

// requireObject returns the named argument as a JSON object.
func requireObject(args map[string]any, field string) (map[string]any, error) {
	v, ok := args[field]
	if !ok || v == nil {
		return nil, &ValidationError{Field: field, Reason: "is required"}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &ValidationError{Field: field, Reason: "must be an object"}
	}
	return obj, nil
}

// optionalString returns the named argument when it is a non-blank string,
// otherwise the fallback.
func optionalString(args map[string]any, field, fallback string) string {
	if v, ok := args[field]; ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return fallback
}
