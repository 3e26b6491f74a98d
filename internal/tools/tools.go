// ABOUTME: Container tools pack: get_item, put_item, update_item, query_container
// ABOUTME: Handlers validate arguments, call the document store, and return JSON payloads

package tools

import (
	"context"

	"github.com/google/uuid"

	"github.com/kestrelworks/docgate/internal/docstore"
)

// ContainerPack creates the document-access pack backed by the given store.
func ContainerPack(s docstore.Store) *Pack {
	h := &containerHandlers{store: s}
	return &Pack{
		ID: "container",
		Tools: []*Tool{
			{
				Definition: Definition{
					Name:        "get_item",
					Description: "Retrieves an item from a container by ID",
					InputSchema: `{"type":"object","properties":{"containerName":{"type":"string"},"id":{"type":"string"},"partitionKey":{"type":"string"}},"required":["containerName","id"]}`,
				},
				Handler: h.GetItem,
			},
			{
				Definition: Definition{
					Name:        "put_item",
					Description: "Inserts or replaces an item in a container",
					InputSchema: `{"type":"object","properties":{"containerName":{"type":"string"},"item":{"type":"object"}},"required":["containerName","item"]}`,
				},
				Handler: h.PutItem,
			},
			{
				Definition: Definition{
					Name:        "update_item",
					Description: "Updates fields in an existing item by deep-merging the given updates",
					InputSchema: `{"type":"object","properties":{"containerName":{"type":"string"},"id":{"type":"string"},"updates":{"type":"object"},"partitionKey":{"type":"string"}},"required":["containerName","id","updates"]}`,
				},
				Handler: h.UpdateItem,
			},
			{
				Definition: Definition{
					Name:        "query_container",
					Description: "Runs a query against a container and returns all matching rows",
					InputSchema: `{"type":"object","properties":{"containerName":{"type":"string"},"query":{"type":"string"},"parameters":{"type":"array","items":{"type":"object","properties":{"name":{"type":"string"},"value":{"type":"string"}},"required":["name","value"]}}},"required":["containerName","query"]}`,
				},
				Handler: h.QueryContainer,
			},
		},
	}
}

type containerHandlers struct {
	store docstore.Store
}

// GetItem performs a point read. The partition key defaults to the id.
func (h *containerHandlers) GetItem(ctx context.Context, args map[string]any) ([]byte, error) {
	container, err := requireString(args, "containerName")
	if err != nil {
		return nil, err
	}
	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}
	pk := optionalString(args, "partitionKey", id)

	doc, err := h.store.PointRead(ctx, container, id, pk)
	if err != nil {
		return nil, err
	}
	return marshal("item", doc)
}

// PutItem upserts the given item, generating an id when none is present.
func (h *containerHandlers) PutItem(ctx context.Context, args map[string]any) ([]byte, error) {
	container, err := requireString(args, "containerName")
	if err != nil {
		return nil, err
	}
	item, err := requireObject(args, "item")
	if err != nil {
		return nil, err
	}

	doc := docstore.Document(item).Clone()
	if doc.ID() == "" {
		doc["id"] = uuid.New().String()
	}

	stored, err := h.store.Upsert(ctx, container, doc)
	if err != nil {
		return nil, err
	}
	return marshal("item", stored)
}

// UpdateItem reads the current document, merges the updates onto a private
// copy, and writes the result back as a full replace. The replace is
// unconditional last-write-wins; a concurrent writer may be overwritten.
func (h *containerHandlers) UpdateItem(ctx context.Context, args map[string]any) ([]byte, error) {
	container, err := requireString(args, "containerName")
	if err != nil {
		return nil, err
	}
	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}
	updates, err := requireObject(args, "updates")
	if err != nil {
		return nil, err
	}
	pk := optionalString(args, "partitionKey", id)

	current, err := h.store.PointRead(ctx, container, id, pk)
	if err != nil {
		return nil, err
	}

	merged := Merge(current, updates)

	replaced, err := h.store.Replace(ctx, container, id, pk, merged)
	if err != nil {
		return nil, err
	}
	return marshal("item", replaced)
}

// QueryContainer runs the query and buffers every matching row before
// encoding; no pagination is surfaced to the caller.
func (h *containerHandlers) QueryContainer(ctx context.Context, args map[string]any) ([]byte, error) {
	container, err := requireString(args, "containerName")
	if err != nil {
		return nil, err
	}
	query, err := requireString(args, "query")
	if err != nil {
		return nil, err
	}
	params, err := queryParameters(args)
	if err != nil {
		return nil, err
	}

	docs, err := h.store.QueryAll(ctx, container, query, params)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		// Zero matches is an empty array, never null and never an error.
		docs = []docstore.Document{}
	}
	return marshal("query results", docs)
}

// queryParameters decodes the optional parameters argument.
func queryParameters(args map[string]any) ([]docstore.QueryParameter, error) {
	v, ok := args["parameters"]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, &ValidationError{Field: "parameters", Reason: "must be an array"}
	}

	params := make([]docstore.QueryParameter, 0, len(list))
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, &ValidationError{Field: "parameters", Reason: "entries must be objects"}
		}
		name, ok := obj["name"].(string)
		if !ok || name == "" {
			return nil, &ValidationError{Field: "parameters", Reason: "entries require a name"}
		}
		params = append(params, docstore.QueryParameter{Name: name, Value: obj["value"]})
	}
	return params, nil
}
