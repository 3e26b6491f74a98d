// ABOUTME: Local SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Stores documents as JSON text keyed by container, partition key, and id

package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local SQLite database. It exists for
// development and tests. Queries run in SQLite's SQL dialect against a
// temporary per-container view with columns id, partition_key, and body
// (the document as JSON text); @name parameters bind natively. A row with a
// single column of JSON text decodes to that object; other rows decode
// column-by-column, with the body column decoded inline.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// Container names become view identifiers, so they are restricted.
var validContainerName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NewSQLiteStore creates a new SQLite-backed document store at the given
// path. The schema is created automatically; parent directories too.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "docstore")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Each pooled connection to :memory: would get its own empty database,
	// so pin the pool to a single connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite document store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			container TEXT NOT NULL,
			partition_key TEXT NOT NULL,
			id TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (container, partition_key, id)
		);

		CREATE INDEX IF NOT EXISTS idx_documents_container_id
			ON documents(container, id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// PointRead returns the document for (container, partitionKey, id).
func (s *SQLiteStore) PointRead(ctx context.Context, container, id, partitionKey string) (Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM documents
		WHERE container = ? AND partition_key = ? AND id = ?
	`, container, partitionKey, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &ServiceError{Message: err.Error()}
	}

	var doc Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return doc, nil
}

// Upsert inserts or replaces the document. As with the Cosmos driver, the
// document's id doubles as its partition key value.
func (s *SQLiteStore) Upsert(ctx context.Context, container string, doc Document) (Document, error) {
	id := doc.ID()
	if id == "" {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "document has no id"}
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (container, partition_key, id, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (container, partition_key, id)
		DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`, container, id, id, string(body), now, now)
	if err != nil {
		return nil, &ServiceError{Message: err.Error()}
	}

	return doc.Clone(), nil
}

// Replace overwrites an existing document wholesale.
func (s *SQLiteStore) Replace(ctx context.Context, container, id, partitionKey string, doc Document) (Document, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET body = ?, updated_at = ?
		WHERE container = ? AND partition_key = ? AND id = ?
	`, string(body), now, container, partitionKey, id)
	if err != nil {
		return nil, &ServiceError{Message: err.Error()}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, &ServiceError{Message: err.Error()}
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return doc.Clone(), nil
}

// QueryAll executes the query against a temp view named after the container
// and drains every row. The view is connection-local, so the view creation
// and the query run on a single pooled connection.
func (s *SQLiteStore) QueryAll(ctx context.Context, container, query string, params []QueryParameter) ([]Document, error) {
	if !validContainerName.MatchString(container) {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: fmt.Sprintf("invalid container name %q", container)}
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, &ServiceError{Message: err.Error()}
	}
	defer conn.Close()

	_, err = conn.ExecContext(ctx, fmt.Sprintf(`
		CREATE TEMP VIEW IF NOT EXISTS %s AS
		SELECT id, partition_key, body FROM documents WHERE container = '%s'
	`, container, container))
	if err != nil {
		return nil, &ServiceError{Message: err.Error()}
	}

	args := make([]any, len(params))
	for i, p := range params {
		args[i] = sql.Named(strings.TrimPrefix(p.Name, "@"), p.Value)
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ServiceError{Message: err.Error()}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &ServiceError{Message: err.Error()}
	}

	var docs []Document
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &ServiceError{Message: err.Error()}
		}
		docs = append(docs, decodeRow(cols, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, &ServiceError{Message: err.Error()}
	}

	return docs, nil
}

// decodeRow turns a result row into a JSON object. A single JSON-text column
// yields the decoded object itself; otherwise columns map to fields, with
// the body column decoded inline.
func decodeRow(cols []string, vals []any) Document {
	if len(cols) == 1 {
		if doc, ok := decodeJSONObject(vals[0]); ok {
			return doc
		}
	}

	doc := make(Document, len(cols))
	for i, col := range cols {
		v := vals[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		if col == "body" {
			if nested, ok := decodeJSONObject(v); ok {
				doc[col] = map[string]any(nested)
				continue
			}
		}
		doc[col] = v
	}
	return doc
}

func decodeJSONObject(v any) (Document, bool) {
	var text string
	switch val := v.(type) {
	case string:
		text = val
	case []byte:
		text = string(val)
	default:
		return nil, false
	}

	var doc Document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, false
	}
	return doc, true
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	s.logger.Debug("closing SQLite document store")
	return s.db.Close()
}
