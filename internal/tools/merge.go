// ABOUTME: Recursive document merge used by the update_item operation
// ABOUTME: Objects merge field-by-field; arrays and scalars replace wholesale

package tools

import "github.com/kestrelworks/docgate/internal/docstore"

// valueKind tags the three JSON value shapes the merge distinguishes.
type valueKind int

const (
	kindScalar valueKind = iota
	kindObject
	kindArray
)

func kindOf(v any) valueKind {
	switch v.(type) {
	case map[string]any:
		return kindObject
	case []any:
		return kindArray
	default:
		return kindScalar
	}
}

// Merge returns a new document equal to target with patch applied. A field
// whose value is an object on both sides merges recursively; every other
// field is replaced by the patch value outright, arrays included. Patch
// fields win at every depth. Neither input is mutated.
func Merge(target docstore.Document, patch map[string]any) docstore.Document {
	merged := target.Clone()
	if merged == nil {
		merged = docstore.Document{}
	}
	mergeInto(map[string]any(merged), patch)
	return merged
}

func mergeInto(target, patch map[string]any) {
	for field, value := range patch {
		existing, ok := target[field]
		if ok && kindOf(existing) == kindObject && kindOf(value) == kindObject {
			mergeInto(existing.(map[string]any), value.(map[string]any))
			continue
		}
		// Copied so the merged document never aliases the caller's patch.
		target[field] = docstore.CloneValue(value)
	}
}
