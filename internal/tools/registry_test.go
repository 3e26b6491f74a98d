// ABOUTME: Tests for tool registration and dispatch behavior
// ABOUTME: Covers unknown tools, collisions, malformed arguments, and panics

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestDispatchUnknownTool(t *testing.T) {
	reg := NewRegistry(slog.Default())

	_, err := reg.Dispatch(context.Background(), "no_such_tool", nil)
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("error = %v, want ErrToolNotFound", err)
	}
}

func TestRegisterPackRejectsCollisions(t *testing.T) {
	reg := NewRegistry(slog.Default())

	pack := &Pack{
		ID: "test",
		Tools: []*Tool{
			{
				Definition: Definition{Name: "echo"},
				Handler: func(ctx context.Context, args map[string]any) ([]byte, error) {
					return []byte(`{}`), nil
				},
			},
		},
	}
	if err := reg.RegisterPack(pack); err != nil {
		t.Fatalf("RegisterPack: %v", err)
	}

	if err := reg.RegisterPack(pack); !errors.Is(err, ErrToolCollision) {
		t.Fatalf("second RegisterPack error = %v, want ErrToolCollision", err)
	}
}

func TestDispatchMalformedArguments(t *testing.T) {
	reg := newTestRegistry(t, newTestStore(t))

	res, err := reg.Dispatch(context.Background(), "get_item", json.RawMessage(`["not","an","object"]`))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result for malformed arguments")
	}
	if !strings.Contains(res.Text, "arguments") {
		t.Errorf("payload %q does not name the offending field", res.Text)
	}
}

func TestDispatchNullArguments(t *testing.T) {
	reg := newTestRegistry(t, newTestStore(t))

	// Null arguments behave like an empty mapping; validation reports the
	// first missing field rather than a decode failure.
	res, err := reg.Dispatch(context.Background(), "get_item", json.RawMessage(`null`))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if res.Text != "Error: containerName is required" {
		t.Errorf("payload = %q", res.Text)
	}
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	reg := NewRegistry(slog.Default())

	err := reg.RegisterPack(&Pack{
		ID: "test",
		Tools: []*Tool{
			{
				Definition: Definition{Name: "boom"},
				Handler: func(ctx context.Context, args map[string]any) ([]byte, error) {
					panic("handler exploded")
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("RegisterPack: %v", err)
	}

	res, err := reg.Dispatch(context.Background(), "boom", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result from panicking handler")
	}
	if !strings.Contains(res.Text, "internal error") {
		t.Errorf("payload = %q", res.Text)
	}
}

func TestDefinitionsPreserveRegistrationOrder(t *testing.T) {
	reg := newTestRegistry(t, newTestStore(t))

	defs := reg.Definitions()
	want := []string{"get_item", "put_item", "update_item", "query_container"}
	if len(defs) != len(want) {
		t.Fatalf("got %d definitions, want %d", len(defs), len(want))
	}
	for i, name := range want {
		if defs[i].Name != name {
			t.Errorf("defs[%d] = %q, want %q", i, defs[i].Name, name)
		}
		if defs[i].InputSchema == "" {
			t.Errorf("defs[%d] has no input schema", i)
		}
	}
}
