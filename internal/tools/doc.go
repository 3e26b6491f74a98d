// Package tools implements the gateway's tool dispatch layer.
//
// # Overview
//
// Four document-access tools are exposed to MCP clients:
//
//   - get_item: point read by container, id, and optional partition key
//   - put_item: insert-or-replace, generating an id when absent
//   - update_item: read, deep-merge, full replace
//   - query_container: run a query and return every matching row
//
// A tool call flows through three stages:
//
//	argument validation -> store call(s) -> result normalization
//
// Validation runs before any store I/O, so invalid input never has partial
// side effects. Normalization is the failure boundary: every outcome,
// including panics, becomes a Result{Text, IsError} pair. Faults classify
// into exactly four variants — not-found, validation, serialization, and
// service — in one place (normalize), never per call site.
//
// # Merging
//
// update_item applies its updates with Merge: objects merge recursively,
// arrays and scalars replace wholesale, and patch values win at every
// depth. The merge operates on a private copy of the stored document
// because the result is written back as a full replace.
//
// # Concurrency
//
// Tool calls share nothing but the store handle. update_item's replace is
// unconditional last-write-wins; the store arbitrates racing writers.
package tools
