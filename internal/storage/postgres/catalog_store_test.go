package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/jibbs-ai/catalog-ingest/internal/catalog"
	"github.com/jibbs-ai/catalog-ingest/internal/ingest"
)

func TestUpsertProductInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewCatalogStoreWithPool(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	row := ingest.ProductRow{
		ProductID:    4837572562234635292,
		Title:        "Classic Denim Jacket",
		Description:  []string{"Oversized fit", "100% cotton"},
		Price:        "£49.99",
		NumImages:    2,
		Images:       []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"},
		Caption:      "Classic Denim Jacket. Oversized fit 100% cotton",
		S3ImageURLs:  []string{"https://bucket.s3.us-east-1.amazonaws.com/4837572562234635292/image_0.jpg"},
		Financing:    &catalog.Financing{RawText: "or 4 payments of £12.50"},
		PromoTagline: "20% OFF",
		Sizes:        []string{"S", "M", "L"},
		URL:          "https://shop.example.com/products/classic-denim-jacket",
		Category:     "jackets",
		InsertedAt:   now,
		UpdatedAt:    now,
	}

	mock.ExpectExec("INSERT INTO products").
		WithArgs(
			int64(row.ProductID),
			row.Title,
			row.Description,
			row.Price,
			row.NumImages,
			row.Images,
			row.Caption,
			row.S3ImageURLs,
			[]byte(`{"raw_text":"or 4 payments of £12.50","payments_count":null,"payment_amount":null}`),
			row.PromoTagline,
			row.Sizes,
			row.URL,
			row.Category,
			row.InsertedAt,
			row.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.UpsertProduct(context.Background(), row))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEmbeddingInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewCatalogStoreWithPool(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	ordinal := 0
	s3URL := "https://bucket.s3.us-east-1.amazonaws.com/4837572562234635292/image_0.jpg"
	row := ingest.EmbeddingRow{
		VectorID:   5180293897566968394,
		ProductID:  4837572562234635292,
		ImageIndex: &ordinal,
		S3ImageURL: &s3URL,
		Kind:       catalog.EmbeddingImage,
		InsertedAt: now,
		UpdatedAt:  now,
	}

	mock.ExpectExec("INSERT INTO embeddings").
		WithArgs(
			int64(row.VectorID),
			int64(row.ProductID),
			row.ImageIndex,
			row.S3ImageURL,
			row.Kind,
			row.InsertedAt,
			row.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.UpsertEmbedding(context.Background(), row))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogStoreRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewCatalogStoreWithPool(nil)
	require.Error(t, err)

	var store *CatalogStore
	require.Error(t, store.Ping(context.Background()))
}
