// Package ingest drives normalized product records through the multi-sink
// write pipeline: object storage, the vector index, and the relational store.
package ingest

import (
	"context"
	"time"
)

// ObjectStore writes image artifacts and returns a durable public URL.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// VectorPoint is one vector plus its metadata payload, keyed by a VectorID.
type VectorPoint struct {
	ID      uint64
	Vector  []float32
	Payload map[string]any
}

// VectorStore upserts points into a named collection. Implementations gate
// writes on the fixed collection allow-list: an unknown name is a silent
// no-op, not an error.
type VectorStore interface {
	Upsert(ctx context.Context, collection string, points []VectorPoint) error
}

// ProductRow is the relational shape of one product upsert.
type ProductRow struct {
	ProductID    uint64
	Title        string
	Description  []string
	Price        string
	NumImages    int
	Images       []string
	Caption      string
	S3ImageURLs  []string
	Financing    any
	PromoTagline string
	Sizes        []string
	URL          string
	Category     string
	InsertedAt   time.Time
	UpdatedAt    time.Time
}

// EmbeddingRow is the relational shape of one persisted vector's metadata.
// ImageIndex and S3ImageURL are nil for the text embedding.
type EmbeddingRow struct {
	VectorID   uint64
	ProductID  uint64
	ImageIndex *int
	S3ImageURL *string
	Kind       string
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// CatalogStore persists products and embedding metadata with upsert
// semantics: insert if absent, otherwise update mutable columns while the
// insertion timestamp is preserved.
type CatalogStore interface {
	UpsertProduct(ctx context.Context, row ProductRow) error
	UpsertEmbedding(ctx context.Context, row EmbeddingRow) error
	Ping(ctx context.Context) error
	Close()
}

// Publisher pushes ingest events downstream.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}
