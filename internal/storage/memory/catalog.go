package memory

import (
	"context"
	"sync"

	"github.com/jibbs-ai/catalog-ingest/internal/ingest"
)

// CatalogStore keeps product and embedding rows in maps with the same upsert
// semantics as the Postgres store: a second write for the same key updates
// everything except the insertion timestamp.
type CatalogStore struct {
	mu         sync.RWMutex
	products   map[uint64]ingest.ProductRow
	embeddings map[uint64]ingest.EmbeddingRow
}

// NewCatalogStore returns an empty CatalogStore.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		products:   make(map[uint64]ingest.ProductRow),
		embeddings: make(map[uint64]ingest.EmbeddingRow),
	}
}

// UpsertProduct inserts or updates the row, preserving InsertedAt on update.
func (s *CatalogStore) UpsertProduct(_ context.Context, row ingest.ProductRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.products[row.ProductID]; ok {
		row.InsertedAt = prev.InsertedAt
	}
	s.products[row.ProductID] = row
	return nil
}

// UpsertEmbedding inserts or updates the row, preserving InsertedAt on update.
func (s *CatalogStore) UpsertEmbedding(_ context.Context, row ingest.EmbeddingRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.embeddings[row.VectorID]; ok {
		row.InsertedAt = prev.InsertedAt
	}
	s.embeddings[row.VectorID] = row
	return nil
}

// Product returns the stored product row, for test assertions.
func (s *CatalogStore) Product(id uint64) (ingest.ProductRow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.products[id]
	return row, ok
}

// Embedding returns the stored embedding row, for test assertions.
func (s *CatalogStore) Embedding(id uint64) (ingest.EmbeddingRow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.embeddings[id]
	return row, ok
}

// Counts returns how many product and embedding rows are stored.
func (s *CatalogStore) Counts() (products, embeddings int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products), len(s.embeddings)
}

// Ping always succeeds.
func (s *CatalogStore) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *CatalogStore) Close() {}
