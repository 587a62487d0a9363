// Package indexing pushes new document versions to downstream retrieval
// systems. Indexing is best-effort: a failure here never rolls back the
// version write, since vectors can be retried or backfilled later.
package indexing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/sitewatch/sitewatch/internal/domain"
	"github.com/sitewatch/sitewatch/internal/logger"
)

// Embedder produces a retrieval vector for a piece of text. The embedding
// model itself is an external collaborator.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NoopEmbedder returns no vector. Used when no embedding service is
// configured.
type NoopEmbedder struct{}

// Embed returns nil without error.
func (NoopEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, nil
}

// DocumentIndexer indexes document versions downstream.
type DocumentIndexer interface {
	IndexVersion(ctx context.Context, doc *domain.VersionedDocument) error
}

// indexedDocument is the downstream index shape for one document version.
type indexedDocument struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	ContentHash string    `json:"content_hash"`
	Version     int       `json:"version"`
	Embedding   []float32 `json:"embedding,omitempty"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// Config holds Elasticsearch indexer configuration.
type Config struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// ElasticIndexer writes document versions to an Elasticsearch index.
type ElasticIndexer struct {
	client   *es.Client
	embedder Embedder
	index    string
	log      logger.Interface
}

// NewElasticIndexer creates an Elasticsearch-backed document indexer.
func NewElasticIndexer(cfg Config, embedder Embedder, log logger.Interface) (*ElasticIndexer, error) {
	client, err := es.NewClient(es.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	index := cfg.Index
	if index == "" {
		index = "sitewatch_documents"
	}

	if embedder == nil {
		embedder = NoopEmbedder{}
	}

	return &ElasticIndexer{
		client:   client,
		embedder: embedder,
		index:    index,
		log:      log,
	}, nil
}

// IndexVersion embeds and indexes one document version. Embedding failures
// degrade to indexing without a vector.
func (i *ElasticIndexer) IndexVersion(ctx context.Context, doc *domain.VersionedDocument) error {
	vector, embedErr := i.embedder.Embed(ctx, doc.Content)
	if embedErr != nil {
		i.log.Warn("Embedding failed, indexing without vector",
			"url", doc.URL, "error", embedErr.Error())
		vector = nil
	}

	payload, marshalErr := json.Marshal(indexedDocument{
		ID:          doc.ID,
		TenantID:    doc.TenantID,
		URL:         doc.URL,
		Title:       doc.Title,
		Content:     doc.Content,
		ContentHash: doc.ContentHash,
		Version:     doc.Version,
		Embedding:   vector,
		IndexedAt:   time.Now(),
	})
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal document: %w", marshalErr)
	}

	res, indexErr := i.client.Index(
		i.index,
		bytes.NewReader(payload),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(doc.ID),
	)
	if indexErr != nil {
		return fmt.Errorf("failed to index document: %w", indexErr)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch returned %s indexing %s", res.Status(), doc.URL)
	}

	return nil
}

// NoopIndexer discards document versions. Used when no downstream index is
// configured.
type NoopIndexer struct{}

// IndexVersion does nothing.
func (NoopIndexer) IndexVersion(_ context.Context, _ *domain.VersionedDocument) error {
	return nil
}
