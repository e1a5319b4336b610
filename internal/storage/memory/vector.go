package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jibbs-ai/catalog-ingest/internal/ingest"
)

// VectorStore keeps upserted points per collection. It enforces the same
// collection allow-list as the Qdrant store: points aimed at an unknown
// collection are dropped without error.
type VectorStore struct {
	allowed map[string]bool
	logger  *zap.Logger

	mu     sync.RWMutex
	points map[string]map[uint64]ingest.VectorPoint
}

// NewVectorStore returns an empty VectorStore gated on the given collections.
func NewVectorStore(collections []string, logger *zap.Logger) *VectorStore {
	allowed := make(map[string]bool, len(collections))
	for _, name := range collections {
		allowed[name] = true
	}
	return &VectorStore{
		allowed: allowed,
		logger:  logger,
		points:  make(map[string]map[uint64]ingest.VectorPoint),
	}
}

// Upsert stores the points keyed by ID, or silently drops them when the
// collection is not allow-listed.
func (s *VectorStore) Upsert(_ context.Context, collection string, points []ingest.VectorPoint) error {
	if !s.allowed[collection] {
		s.logger.Warn("dropping points for unknown collection", zap.String("collection", collection), zap.Int("points", len(points)))
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.points[collection]
	if coll == nil {
		coll = make(map[uint64]ingest.VectorPoint)
		s.points[collection] = coll
	}
	for _, p := range points {
		coll[p.ID] = p
	}
	return nil
}

// Point returns the stored point with the given ID, for test assertions.
func (s *VectorStore) Point(collection string, id uint64) (ingest.VectorPoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[collection][id]
	return p, ok
}

// Count returns the number of points in a collection.
func (s *VectorStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points[collection])
}

// Ping always succeeds.
func (s *VectorStore) Ping(context.Context) error {
	return nil
}
