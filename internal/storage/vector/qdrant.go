// Package vector provides the Qdrant-backed vector index.
package vector

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/jibbs-ai/catalog-ingest/internal/ingest"
)

// Config controls the Qdrant client and the fixed collection layout.
type Config struct {
	Host        string
	Port        int
	APIKey      string
	UseTLS      bool
	Collections []string
	Dimension   uint64
}

// Store upserts points into Qdrant. Writes are gated on the configured
// collection allow-list: an unknown collection name is dropped without error
// so a misrouted batch cannot create collections implicitly.
type Store struct {
	client  *qdrant.Client
	allowed map[string]bool
	dim     uint64
	logger  *zap.Logger
}

// New connects to Qdrant and builds the Store.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("qdrant.host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = 768
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}
	allowed := make(map[string]bool, len(cfg.Collections))
	for _, name := range cfg.Collections {
		allowed[name] = true
	}
	return &Store{client: client, allowed: allowed, dim: cfg.Dimension, logger: logger}, nil
}

// EnsureCollections creates any allow-listed collection that does not exist
// yet, sized for cosine similarity at the configured dimension.
func (s *Store) EnsureCollections(ctx context.Context) error {
	for name := range s.allowed {
		exists, err := s.client.CollectionExists(ctx, name)
		if err != nil {
			return fmt.Errorf("check collection %s: %w", name, err)
		}
		if exists {
			continue
		}
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.dim,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
		s.logger.Info("created vector collection", zap.String("collection", name), zap.Uint64("dimension", s.dim))
	}
	return nil
}

// Upsert writes the points into the named collection, or silently drops them
// when the collection is not allow-listed.
func (s *Store) Upsert(ctx context.Context, collection string, points []ingest.VectorPoint) error {
	if !s.allowed[collection] {
		s.logger.Warn("dropping points for unknown collection", zap.String("collection", collection), zap.Int("points", len(points)))
		return nil
	}
	if len(points) == 0 {
		return nil
	}

	upsert := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		upsert = append(upsert, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(p.Payload),
		})
	}
	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         upsert,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points into %s: %w", len(points), collection, err)
	}
	return nil
}

// Ping checks Qdrant liveness.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// Close tears down the underlying gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}
