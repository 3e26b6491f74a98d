// ABOUTME: Store interface and document types for partitioned document storage
// ABOUTME: Defines the Document type, query parameters, and the store fault surface

package docstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no document exists for the given container,
// id, and partition key.
var ErrNotFound = errors.New("document not found")

// Document is an arbitrary JSON object stored in a container. Every stored
// document carries a string "id" field, unique within its partition.
type Document map[string]any

// QueryParameter is a named value bound into a query.
type QueryParameter struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// ServiceError is a store-side fault carrying the backend's status code and
// a short message. It never carries a raw backend response body.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("store error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("store error: %s", e.Message)
}

// Store is a partitioned document store. Implementations manage their own
// connection pooling and retry policy; the process holds a single Store for
// its lifetime and closes it on shutdown.
type Store interface {
	// PointRead returns the document with the given id in the given
	// partition, or ErrNotFound.
	PointRead(ctx context.Context, container, id, partitionKey string) (Document, error)

	// Upsert inserts or replaces the document. The document must already
	// carry an "id" field. Returns the stored document.
	Upsert(ctx context.Context, container string, doc Document) (Document, error)

	// Replace overwrites the document with the given id wholesale.
	// Returns ErrNotFound if no document exists to replace.
	Replace(ctx context.Context, container, id, partitionKey string, doc Document) (Document, error)

	// QueryAll executes a query against the container and drains every
	// matching row into memory before returning.
	QueryAll(ctx context.Context, container, query string, params []QueryParameter) ([]Document, error)

	// Close releases the underlying connection.
	Close() error
}

// ID returns the document's "id" field, or "" when absent or not a string.
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Clone returns a deep copy of the document. Nested objects and arrays are
// copied recursively; scalars are shared (they are immutable).
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(CloneValue(map[string]any(d)).(map[string]any))
}

// CloneValue deep-copies a JSON-shaped value (maps, slices, scalars).
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return val
	}
}
