package ingest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jibbs-ai/catalog-ingest/internal/catalog"
	"github.com/jibbs-ai/catalog-ingest/internal/embedding"
	"github.com/jibbs-ai/catalog-ingest/internal/ingest"
	"github.com/jibbs-ai/catalog-ingest/internal/storage/memory"
)

const (
	textCollection  = "jibbs_product_text_embeddings"
	imageCollection = "jibbs_product_image_embeddings"

	denimProductID  = uint64(4837572562234635292)
	denimTextVector = uint64(6729848907000652807)
	denimImageVec0  = uint64(5180293897566968394)
	denimImageVec1  = uint64(5347840428348346608)
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type stubEmbedder struct {
	textErr  error
	imageErr error
}

func (e stubEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	if e.textErr != nil {
		return nil, e.textErr
	}
	return []float32{1, 0, 0}, nil
}

func (e stubEmbedder) EmbedImage(context.Context, []byte) ([]float32, error) {
	if e.imageErr != nil {
		return nil, e.imageErr
	}
	return []float32{0, 1, 0}, nil
}

type stubCaptioner struct{ caption string }

func (c stubCaptioner) Caption(context.Context, []byte) (string, error) {
	return c.caption, nil
}

type failingVectorStore struct{}

func (failingVectorStore) Upsert(context.Context, string, []ingest.VectorPoint) error {
	return errors.New("vector index down")
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpeg-bytes-" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func denimRecord(imageBase string) catalog.ProductRecord {
	return catalog.ProductRecord{
		Title:    "Classic Denim Jacket - Final Sale",
		Price:    "£49.99",
		URL:      "https://shop.example.com/products/classic-denim-jacket",
		Images:   []string{imageBase + "/a.jpg", imageBase + "/b.jpg"},
		Details:  []string{"Oversized fit", "100% cotton"},
		Sizes:    []string{"S", "M"},
		Category: "jackets",
	}
}

func newWriter(objects ingest.ObjectStore, vectors ingest.VectorStore, store ingest.CatalogStore, emb embedding.Embedder, captioner embedding.Captioner, now time.Time) *ingest.Writer {
	cfg := ingest.WriterConfig{TextCollection: textCollection, ImageCollection: imageCollection}
	return ingest.NewWriter(cfg, objects, vectors, store, emb, captioner, nil, fixedClock{t: now}, zap.NewNop())
}

func TestWriterWritesAllSinks(t *testing.T) {
	t.Parallel()

	srv := imageServer(t)
	objects := memory.NewObjectStore("catalog-images", "us-east-1")
	vectors := memory.NewVectorStore([]string{textCollection, imageCollection}, zap.NewNop())
	store := memory.NewCatalogStore()
	now := time.Unix(1700000000, 0).UTC()

	w := newWriter(objects, vectors, store, stubEmbedder{}, nil, now)
	res, err := w.Write(context.Background(), denimRecord(srv.URL))
	require.NoError(t, err)

	require.Equal(t, denimProductID, res.ProductID)
	require.Equal(t, 2, res.ImagesStored)
	require.Equal(t, 3, res.VectorsUpserted)
	require.Zero(t, res.SinkErrors)

	keys, err := objects.List(context.Background(), "4837572562234635292/")
	require.NoError(t, err)
	require.Equal(t, []string{
		"4837572562234635292/image_0.jpg",
		"4837572562234635292/image_1.jpg",
	}, keys)

	text, ok := vectors.Point(textCollection, denimTextVector)
	require.True(t, ok)
	require.Equal(t, int64(denimProductID), text.Payload["product_id"])
	require.Equal(t, 2, text.Payload["num_images"])
	require.Equal(t, catalog.EmbeddingText, text.Payload["embedding_type"])

	img0, ok := vectors.Point(imageCollection, denimImageVec0)
	require.True(t, ok)
	require.Equal(t,
		"https://catalog-images.s3.us-east-1.amazonaws.com/4837572562234635292/image_0.jpg",
		img0.Payload["product_s3_image_url"])
	_, ok = vectors.Point(imageCollection, denimImageVec1)
	require.True(t, ok)

	row, ok := store.Product(denimProductID)
	require.True(t, ok)
	require.Equal(t, "Classic Denim Jacket", row.Title)
	require.Equal(t, "Classic Denim Jacket. Oversized fit 100% cotton", row.Caption)
	require.Equal(t, 2, row.NumImages)
	require.Len(t, row.S3ImageURLs, 2)
	require.Equal(t, now, row.InsertedAt)

	textRow, ok := store.Embedding(denimTextVector)
	require.True(t, ok)
	require.Nil(t, textRow.ImageIndex)
	require.Nil(t, textRow.S3ImageURL)
	require.Equal(t, catalog.EmbeddingText, textRow.Kind)

	imgRow, ok := store.Embedding(denimImageVec1)
	require.True(t, ok)
	require.NotNil(t, imgRow.ImageIndex)
	require.Equal(t, 1, *imgRow.ImageIndex)
	require.NotNil(t, imgRow.S3ImageURL)
}

func TestWriterRejectsFailedRecord(t *testing.T) {
	t.Parallel()

	w := newWriter(
		memory.NewObjectStore("", ""),
		memory.NewVectorStore(nil, zap.NewNop()),
		memory.NewCatalogStore(),
		stubEmbedder{}, nil, time.Now(),
	)
	_, err := w.Write(context.Background(), catalog.ProductRecord{
		URL:      "https://shop.example.com/products/gone",
		Category: "shoes",
		Err:      catalog.ErrFailedFetch,
	})
	require.Error(t, err)
}

func TestWriterIsolatesVectorFailure(t *testing.T) {
	t.Parallel()

	srv := imageServer(t)
	store := memory.NewCatalogStore()
	now := time.Unix(1700000000, 0).UTC()

	w := newWriter(memory.NewObjectStore("", ""), failingVectorStore{}, store, stubEmbedder{}, nil, now)
	res, err := w.Write(context.Background(), denimRecord(srv.URL))
	require.NoError(t, err)

	// Every vector upsert failed (1 text + 2 images) but the relational and
	// object sinks were still written.
	require.Equal(t, 3, res.SinkErrors)
	require.Zero(t, res.VectorsUpserted)
	require.Equal(t, 2, res.ImagesStored)

	_, ok := store.Product(denimProductID)
	require.True(t, ok)
	products, embeddings := store.Counts()
	require.Equal(t, 1, products)
	require.Equal(t, 3, embeddings)
}

func TestWriterIdempotentReingest(t *testing.T) {
	t.Parallel()

	srv := imageServer(t)
	objects := memory.NewObjectStore("catalog-images", "us-east-1")
	vectors := memory.NewVectorStore([]string{textCollection, imageCollection}, zap.NewNop())
	store := memory.NewCatalogStore()
	first := time.Unix(1700000000, 0).UTC()

	w := newWriter(objects, vectors, store, stubEmbedder{}, nil, first)
	_, err := w.Write(context.Background(), denimRecord(srv.URL))
	require.NoError(t, err)

	second := first.Add(time.Hour)
	w = newWriter(objects, vectors, store, stubEmbedder{}, nil, second)
	_, err = w.Write(context.Background(), denimRecord(srv.URL))
	require.NoError(t, err)

	require.Equal(t, 1, vectors.Count(textCollection))
	require.Equal(t, 2, vectors.Count(imageCollection))
	products, embeddings := store.Counts()
	require.Equal(t, 1, products)
	require.Equal(t, 3, embeddings)

	row, _ := store.Product(denimProductID)
	require.Equal(t, first, row.InsertedAt)
	require.Equal(t, second, row.UpdatedAt)
}

func TestWriterSkipsImagesWhenUnsupported(t *testing.T) {
	t.Parallel()

	srv := imageServer(t)
	vectors := memory.NewVectorStore([]string{textCollection, imageCollection}, zap.NewNop())
	store := memory.NewCatalogStore()

	emb := stubEmbedder{imageErr: embedding.ErrImageUnsupported}
	w := newWriter(memory.NewObjectStore("", ""), vectors, store, emb, nil, time.Unix(1700000000, 0))
	res, err := w.Write(context.Background(), denimRecord(srv.URL))
	require.NoError(t, err)

	require.Zero(t, res.SinkErrors)
	require.Equal(t, 1, res.VectorsUpserted)
	require.Equal(t, 1, vectors.Count(textCollection))
	require.Equal(t, 0, vectors.Count(imageCollection))
}

func TestWriterAppendsGeneratedCaption(t *testing.T) {
	t.Parallel()

	srv := imageServer(t)
	store := memory.NewCatalogStore()
	vectors := memory.NewVectorStore([]string{textCollection, imageCollection}, zap.NewNop())

	w := newWriter(memory.NewObjectStore("", ""), vectors, store, stubEmbedder{},
		stubCaptioner{caption: "a blue denim jacket"}, time.Unix(1700000000, 0))
	_, err := w.Write(context.Background(), denimRecord(srv.URL))
	require.NoError(t, err)

	row, ok := store.Product(denimProductID)
	require.True(t, ok)
	require.Equal(t, "Classic Denim Jacket. Oversized fit 100% cotton a blue denim jacket", row.Caption)
}
