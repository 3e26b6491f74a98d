// Package docstore provides partitioned document storage for the gateway.
//
// # Architecture
//
// The package defines a single Store interface with two implementations:
//
//   - CosmosStore: production driver over the Azure Cosmos DB SDK
//   - SQLiteStore: local engine for development and tests
//
// Callers hold exactly one Store for the process lifetime. The Store owns
// connection pooling, retry, and deadline policy; the dispatcher above it
// only shapes calls and decodes results.
//
// # Data model
//
// A Document is an arbitrary JSON object with a string "id" field unique
// within its partition. Documents are addressed by (container, partition
// key, id). Both drivers use the document id as the partition key value,
// mirroring a pk-on-/id container layout.
//
// # Fault surface
//
// Every method reports faults from a closed set:
//
//   - ErrNotFound: the document does not exist
//   - *ServiceError: any other backend fault, carrying a status code and a
//     short message but never a raw response body
//
// # Local queries
//
// SQLiteStore runs queries in SQLite's SQL dialect against a temporary view
// named after the container, with columns id, partition_key, and body (the
// document as JSON text):
//
//	SELECT body FROM items WHERE json_extract(body, '$.kind') = @kind
//
// Parameters use the @name form and bind natively. All methods accept
// context.Context for cancellation.
package docstore
