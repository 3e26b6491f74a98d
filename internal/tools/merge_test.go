// ABOUTME: Tests for the recursive document merge
// ABOUTME: Covers identity, right bias, atomic arrays, and copy semantics

package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelworks/docgate/internal/docstore"
)

func TestMergeEmptyPatchIsIdentity(t *testing.T) {
	doc := docstore.Document{
		"id":     "a1",
		"name":   "widget",
		"nested": map[string]any{"x": float64(1)},
		"tags":   []any{"a", "b"},
	}

	merged := Merge(doc, map[string]any{})

	assert.Equal(t, doc, merged)
}

func TestMergeScalarOverwrite(t *testing.T) {
	doc := docstore.Document{"id": "a1", "qty": float64(1)}

	merged := Merge(doc, map[string]any{"qty": float64(5)})

	assert.Equal(t, float64(5), merged["qty"])
	assert.Equal(t, "a1", merged["id"])
}

func TestMergeNestedObjectsMergeRecursively(t *testing.T) {
	doc := docstore.Document{
		"nested": map[string]any{"a": float64(1), "keep": "yes"},
	}

	merged := Merge(doc, map[string]any{
		"nested": map[string]any{"b": float64(2)},
	})

	assert.Equal(t, map[string]any{
		"a":    float64(1),
		"b":    float64(2),
		"keep": "yes",
	}, merged["nested"])
}

func TestMergePatchWinsAtEveryDepth(t *testing.T) {
	doc := docstore.Document{
		"nested": map[string]any{"inner": map[string]any{"v": "old"}},
	}

	merged := Merge(doc, map[string]any{
		"nested": map[string]any{"inner": map[string]any{"v": "new"}},
	})

	inner := merged["nested"].(map[string]any)["inner"].(map[string]any)
	assert.Equal(t, "new", inner["v"])
}

func TestMergeArraysReplaceWholesale(t *testing.T) {
	doc := docstore.Document{"tags": []any{"a", "b", "c"}}

	merged := Merge(doc, map[string]any{"tags": []any{"z"}})

	assert.Equal(t, []any{"z"}, merged["tags"])
}

func TestMergeTypeChangesAreAllowed(t *testing.T) {
	doc := docstore.Document{
		"obj":    map[string]any{"x": float64(1)},
		"scalar": "text",
	}

	merged := Merge(doc, map[string]any{
		"obj":    "now a string",
		"scalar": map[string]any{"y": float64(2)},
	})

	assert.Equal(t, "now a string", merged["obj"])
	assert.Equal(t, map[string]any{"y": float64(2)}, merged["scalar"])
}

func TestMergeSequentialEqualsRightBiasedUnion(t *testing.T) {
	doc := docstore.Document{"id": "a1"}

	step1 := Merge(doc, map[string]any{"nested": map[string]any{"a": float64(1)}})
	step2 := Merge(step1, map[string]any{"nested": map[string]any{"b": float64(2)}})

	assert.Equal(t, map[string]any{
		"a": float64(1),
		"b": float64(2),
	}, step2["nested"])
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	doc := docstore.Document{"nested": map[string]any{"a": float64(1)}}
	patch := map[string]any{"nested": map[string]any{"b": float64(2)}}

	merged := Merge(doc, patch)

	// Original document untouched.
	assert.Equal(t, map[string]any{"a": float64(1)}, doc["nested"])

	// Mutating the merged result must not leak into the patch.
	merged["nested"].(map[string]any)["b"] = float64(99)
	assert.Equal(t, float64(2), patch["nested"].(map[string]any)["b"])
}

func TestMergeAddsNewFields(t *testing.T) {
	doc := docstore.Document{"id": "a1"}

	merged := Merge(doc, map[string]any{"added": true})

	assert.Equal(t, true, merged["added"])
}
