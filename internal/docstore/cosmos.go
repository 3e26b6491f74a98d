// ABOUTME: Azure Cosmos DB implementation of the Store interface using azcosmos
// ABOUTME: Maps SDK response errors onto ErrNotFound and ServiceError

package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
)

// CosmosConfig configures a CosmosStore.
type CosmosConfig struct {
	Endpoint string
	Key      string // empty means the ambient Azure credential chain
	Database string
}

// CosmosStore implements Store against an Azure Cosmos DB database.
// Retry, throttling backoff, and connection pooling live inside the SDK
// client; this layer only shapes calls and decodes results.
type CosmosStore struct {
	client   *azcosmos.Client
	database string
	logger   *slog.Logger
}

var _ Store = (*CosmosStore)(nil)

// NewCosmosStore creates a store client for the given account and database.
// When cfg.Key is empty, DefaultAzureCredential is used instead.
func NewCosmosStore(cfg CosmosConfig) (*CosmosStore, error) {
	logger := slog.Default().With("component", "docstore")

	var client *azcosmos.Client
	if cfg.Key != "" {
		cred, err := azcosmos.NewKeyCredential(cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("creating key credential: %w", err)
		}
		client, err = azcosmos.NewClientWithKey(cfg.Endpoint, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("creating cosmos client: %w", err)
		}
		logger.Info("using key-based Cosmos DB authentication", "endpoint", cfg.Endpoint)
	} else {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("creating default credential: %w", err)
		}
		client, err = azcosmos.NewClient(cfg.Endpoint, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("creating cosmos client: %w", err)
		}
		logger.Info("using ambient Azure credentials for Cosmos DB", "endpoint", cfg.Endpoint)
	}

	return &CosmosStore{
		client:   client,
		database: cfg.Database,
		logger:   logger,
	}, nil
}

func (s *CosmosStore) container(name string) (*azcosmos.ContainerClient, error) {
	c, err := s.client.NewContainer(s.database, name)
	if err != nil {
		return nil, classifyCosmosError(err)
	}
	return c, nil
}

// PointRead reads a single document by id and partition key.
func (s *CosmosStore) PointRead(ctx context.Context, container, id, partitionKey string) (Document, error) {
	c, err := s.container(container)
	if err != nil {
		return nil, err
	}

	resp, err := c.ReadItem(ctx, azcosmos.NewPartitionKeyString(partitionKey), id, nil)
	if err != nil {
		return nil, classifyCosmosError(err)
	}

	var doc Document
	if err := json.Unmarshal(resp.Value, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return doc, nil
}

// Upsert inserts or replaces the document. The document's id doubles as its
// partition key value, matching the pk-on-/id container layout we provision.
func (s *CosmosStore) Upsert(ctx context.Context, container string, doc Document) (Document, error) {
	c, err := s.container(container)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}

	resp, err := c.UpsertItem(ctx, azcosmos.NewPartitionKeyString(doc.ID()), body, nil)
	if err != nil {
		return nil, classifyCosmosError(err)
	}

	// Cosmos echoes the stored item, including system properties.
	if len(resp.Value) > 0 {
		var stored Document
		if err := json.Unmarshal(resp.Value, &stored); err != nil {
			return nil, fmt.Errorf("decoding stored document: %w", err)
		}
		return stored, nil
	}
	return doc, nil
}

// Replace overwrites the document with the given id wholesale.
func (s *CosmosStore) Replace(ctx context.Context, container, id, partitionKey string, doc Document) (Document, error) {
	c, err := s.container(container)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}

	resp, err := c.ReplaceItem(ctx, azcosmos.NewPartitionKeyString(partitionKey), id, body, nil)
	if err != nil {
		return nil, classifyCosmosError(err)
	}

	if len(resp.Value) > 0 {
		var stored Document
		if err := json.Unmarshal(resp.Value, &stored); err != nil {
			return nil, fmt.Errorf("decoding stored document: %w", err)
		}
		return stored, nil
	}
	return doc, nil
}

// QueryAll runs the query across all partitions and drains every page of
// results before returning.
func (s *CosmosStore) QueryAll(ctx context.Context, container, query string, params []QueryParameter) ([]Document, error) {
	c, err := s.container(container)
	if err != nil {
		return nil, err
	}

	var opts *azcosmos.QueryOptions
	if len(params) > 0 {
		qp := make([]azcosmos.QueryParameter, len(params))
		for i, p := range params {
			qp[i] = azcosmos.QueryParameter{Name: p.Name, Value: p.Value}
		}
		opts = &azcosmos.QueryOptions{QueryParameters: qp}
	}

	// An empty partition key runs the query across partitions.
	pager := c.NewQueryItemsPager(query, azcosmos.PartitionKey{}, opts)

	var docs []Document
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, classifyCosmosError(err)
		}
		for _, item := range page.Items {
			var doc Document
			if err := json.Unmarshal(item, &doc); err != nil {
				return nil, fmt.Errorf("decoding query row: %w", err)
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Close is a no-op; the SDK's transport needs no explicit shutdown.
func (s *CosmosStore) Close() error {
	return nil
}

// classifyCosmosError folds SDK faults into the package's closed fault set:
// 404 becomes ErrNotFound, everything else a ServiceError with the status
// and error code but never the raw response body.
func classifyCosmosError(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		if respErr.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		msg := respErr.ErrorCode
		if msg == "" {
			msg = http.StatusText(respErr.StatusCode)
		}
		return &ServiceError{StatusCode: respErr.StatusCode, Message: msg}
	}
	return &ServiceError{Message: err.Error()}
}
