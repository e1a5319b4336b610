// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jibbs-ai/catalog-ingest/internal/ingest"
)

// CatalogStoreConfig controls the Postgres connection pool used for catalog rows.
type CatalogStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Ping(context.Context) error
	Close()
}

// CatalogStore writes product and embedding rows into Postgres.
type CatalogStore struct {
	pool execCloser
}

// NewCatalogStore creates a Postgres-backed CatalogStore using the provided config.
func NewCatalogStore(ctx context.Context, cfg CatalogStoreConfig) (*CatalogStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &CatalogStore{pool: pool}, nil
}

// NewCatalogStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewCatalogStoreWithPool(pool execCloser) (*CatalogStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &CatalogStore{pool: pool}, nil
}

// Ping verifies the connection is alive.
func (s *CatalogStore) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("catalog store is not configured")
	}
	return s.pool.Ping(ctx)
}

// Close releases the underlying pool resources.
func (s *CatalogStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// UpsertProduct inserts the product row, or on conflict updates every mutable
// column while product_inserted_at keeps its original value.
func (s *CatalogStore) UpsertProduct(ctx context.Context, row ingest.ProductRow) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("catalog store is not configured")
	}
	financingJSON, err := json.Marshal(row.Financing)
	if err != nil {
		return fmt.Errorf("marshal financing: %w", err)
	}
	query := `
INSERT INTO products (
	product_id,
	product_title,
	description,
	price,
	num_images,
	product_images,
	product_caption,
	product_s3_image_urls,
	financing,
	promo_tagline,
	sizes_available,
	product_url,
	product_category,
	product_inserted_at,
	product_updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
)
ON CONFLICT (product_id) DO UPDATE SET
	product_title = EXCLUDED.product_title,
	description = EXCLUDED.description,
	price = EXCLUDED.price,
	num_images = EXCLUDED.num_images,
	product_images = EXCLUDED.product_images,
	product_caption = EXCLUDED.product_caption,
	product_s3_image_urls = EXCLUDED.product_s3_image_urls,
	financing = EXCLUDED.financing,
	promo_tagline = EXCLUDED.promo_tagline,
	sizes_available = EXCLUDED.sizes_available,
	product_url = EXCLUDED.product_url,
	product_category = EXCLUDED.product_category,
	product_updated_at = EXCLUDED.product_updated_at`

	args := []any{
		int64(row.ProductID),
		row.Title,
		row.Description,
		row.Price,
		row.NumImages,
		row.Images,
		row.Caption,
		row.S3ImageURLs,
		financingJSON,
		row.PromoTagline,
		row.Sizes,
		row.URL,
		row.Category,
		row.InsertedAt,
		row.UpdatedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

// UpsertEmbedding inserts the embedding metadata row, or on conflict updates
// the mutable columns while embedding_inserted_at keeps its original value.
func (s *CatalogStore) UpsertEmbedding(ctx context.Context, row ingest.EmbeddingRow) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("catalog store is not configured")
	}
	query := `
INSERT INTO embeddings (
	vector_id,
	product_id,
	product_image_index,
	product_s3_image_url,
	embedding_type,
	embedding_inserted_at,
	embedding_updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7
)
ON CONFLICT (vector_id) DO UPDATE SET
	product_id = EXCLUDED.product_id,
	product_image_index = EXCLUDED.product_image_index,
	product_s3_image_url = EXCLUDED.product_s3_image_url,
	embedding_type = EXCLUDED.embedding_type,
	embedding_updated_at = EXCLUDED.embedding_updated_at`

	args := []any{
		int64(row.VectorID),
		int64(row.ProductID),
		row.ImageIndex,
		row.S3ImageURL,
		row.Kind,
		row.InsertedAt,
		row.UpdatedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert embedding: %w", err)
	}
	return nil
}
