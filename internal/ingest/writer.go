package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jibbs-ai/catalog-ingest/internal/catalog"
	"github.com/jibbs-ai/catalog-ingest/internal/embedding"
	"github.com/jibbs-ai/catalog-ingest/internal/metrics"
)

// Sink names used in logs and metrics.
const (
	sinkObject     = "object"
	sinkVector     = "vector"
	sinkRelational = "relational"
	sinkEmbedding  = "embedding"
)

// WriterConfig names the two permitted vector collections.
type WriterConfig struct {
	TextCollection  string
	ImageCollection string
}

// Writer fans one normalized record out to the three sinks. Each sink call is
// independently isolated: a failure is logged and counted but never prevents
// or masks the other sinks. Idempotent re-ingestion, not cross-sink
// transactions, is what repairs partial writes.
type Writer struct {
	cfg       WriterConfig
	objects   ObjectStore
	vectors   VectorStore
	store     CatalogStore
	embedder  embedding.Embedder
	captioner embedding.Captioner
	imageHTTP *http.Client
	clock     Clock
	logger    *zap.Logger
}

// NewWriter constructs a Writer. captioner may be nil; imageHTTP defaults to
// http.DefaultClient.
func NewWriter(
	cfg WriterConfig,
	objects ObjectStore,
	vectors VectorStore,
	store CatalogStore,
	embedder embedding.Embedder,
	captioner embedding.Captioner,
	imageHTTP *http.Client,
	clock Clock,
	logger *zap.Logger,
) *Writer {
	if imageHTTP == nil {
		imageHTTP = http.DefaultClient
	}
	return &Writer{
		cfg:       cfg,
		objects:   objects,
		vectors:   vectors,
		store:     store,
		embedder:  embedder,
		captioner: captioner,
		imageHTTP: imageHTTP,
		clock:     clock,
		logger:    logger,
	}
}

// WriteResult summarizes one record's fan-out.
type WriteResult struct {
	ProductID       uint64
	ImagesStored    int
	VectorsUpserted int
	SinkErrors      int
}

type storedImage struct {
	ordinal int
	data    []byte
	s3URL   string
}

// Write processes one successfully scraped record end to end. It returns an
// error only for misuse (a fetch-failure record); sink failures are soft and
// reflected in the result's SinkErrors count.
func (w *Writer) Write(ctx context.Context, rec catalog.ProductRecord) (WriteResult, error) {
	if rec.Failed() {
		return WriteResult{}, errors.New("refusing to write a failed fetch record")
	}

	title := catalog.CanonicalTitle(rec.Title)
	pid := catalog.ProductID(title)
	res := WriteResult{ProductID: pid}

	images := w.storeImages(ctx, pid, rec, &res)
	caption := w.buildCaption(ctx, title, rec.Details, images)

	now := w.clock.Now()
	w.upsertTextEmbedding(ctx, title, pid, caption, len(rec.Images), now, &res)
	w.upsertImageEmbeddings(ctx, title, pid, images, now, &res)
	w.upsertProduct(ctx, pid, title, caption, rec, images, now, &res)

	return res, nil
}

// storeImages resolves each image URL to bytes once, uploads the bytes under
// the {product_id}/image_{ordinal}.jpg key, and returns the ordinals that
// survived. A failed download or upload drops that ordinal only.
func (w *Writer) storeImages(ctx context.Context, pid uint64, rec catalog.ProductRecord, res *WriteResult) []storedImage {
	stored := make([]storedImage, 0, len(rec.Images))
	for i, imageURL := range rec.Images {
		data, err := embedding.ImageFromURL(imageURL).Resolve(ctx, w.imageHTTP)
		if err != nil {
			w.sinkFailure(sinkObject, err, zap.String("image_url", imageURL))
			res.SinkErrors++
			continue
		}

		key := fmt.Sprintf("%d/image_%d.jpg", pid, i)
		s3URL, err := w.objects.Put(ctx, key, "image/jpeg", data)
		if err != nil {
			w.sinkFailure(sinkObject, err, zap.String("key", key))
			res.SinkErrors++
			// Keep the bytes: the vector index can still be fed even
			// when the object store is down.
			stored = append(stored, storedImage{ordinal: i, data: data})
			continue
		}
		metrics.ObserveObjectBytes(len(data))
		res.ImagesStored++
		stored = append(stored, storedImage{ordinal: i, data: data, s3URL: s3URL})
	}
	return stored
}

// buildCaption derives the deterministic text caption, optionally enriched
// with a generated description of the first stored image.
func (w *Writer) buildCaption(ctx context.Context, title string, details []string, images []storedImage) string {
	caption := catalog.Caption(title, details)
	if w.captioner == nil || len(images) == 0 {
		return caption
	}
	generated, err := w.captioner.Caption(ctx, images[0].data)
	if err != nil {
		w.logger.Debug("image caption unavailable", zap.String("title", title), zap.Error(err))
		return caption
	}
	if generated == "" {
		return caption
	}
	return caption + " " + generated
}

func (w *Writer) upsertTextEmbedding(
	ctx context.Context,
	title string,
	pid uint64,
	caption string,
	numImages int,
	now time.Time,
	res *WriteResult,
) {
	vec, err := w.embedder.EmbedText(ctx, caption)
	if err != nil {
		w.sinkFailure(sinkEmbedding, err, zap.String("kind", catalog.EmbeddingText))
		res.SinkErrors++
		return
	}

	vid := catalog.VectorID(title, catalog.EmbeddingText, 0)
	point := VectorPoint{
		ID:     vid,
		Vector: vec,
		Payload: map[string]any{
			"product_id":     int64(pid),
			"num_images":     numImages,
			"embedding_type": catalog.EmbeddingText,
		},
	}
	if err := w.vectors.Upsert(ctx, w.cfg.TextCollection, []VectorPoint{point}); err != nil {
		w.sinkFailure(sinkVector, err, zap.String("collection", w.cfg.TextCollection))
		res.SinkErrors++
	} else {
		res.VectorsUpserted++
	}

	row := EmbeddingRow{
		VectorID:   vid,
		ProductID:  pid,
		Kind:       catalog.EmbeddingText,
		InsertedAt: now,
		UpdatedAt:  now,
	}
	if err := w.store.UpsertEmbedding(ctx, row); err != nil {
		w.sinkFailure(sinkRelational, err, zap.Uint64("vector_id", vid))
		res.SinkErrors++
	}
}

func (w *Writer) upsertImageEmbeddings(
	ctx context.Context,
	title string,
	pid uint64,
	images []storedImage,
	now time.Time,
	res *WriteResult,
) {
	for _, img := range images {
		vec, err := w.embedder.EmbedImage(ctx, img.data)
		if err != nil {
			if errors.Is(err, embedding.ErrImageUnsupported) {
				w.logger.Debug("image embeddings unsupported by provider; skipping remainder")
				return
			}
			w.sinkFailure(sinkEmbedding, err, zap.Int("ordinal", img.ordinal))
			res.SinkErrors++
			continue
		}

		vid := catalog.VectorID(title, catalog.EmbeddingImage, img.ordinal)
		point := VectorPoint{
			ID:     vid,
			Vector: vec,
			Payload: map[string]any{
				"product_id":           int64(pid),
				"product_s3_image_url": img.s3URL,
				"embedding_type":       catalog.EmbeddingImage,
			},
		}
		if err := w.vectors.Upsert(ctx, w.cfg.ImageCollection, []VectorPoint{point}); err != nil {
			w.sinkFailure(sinkVector, err, zap.String("collection", w.cfg.ImageCollection))
			res.SinkErrors++
		} else {
			res.VectorsUpserted++
		}

		ordinal := img.ordinal
		var s3URL *string
		if img.s3URL != "" {
			s3URL = &img.s3URL
		}
		row := EmbeddingRow{
			VectorID:   vid,
			ProductID:  pid,
			ImageIndex: &ordinal,
			S3ImageURL: s3URL,
			Kind:       catalog.EmbeddingImage,
			InsertedAt: now,
			UpdatedAt:  now,
		}
		if err := w.store.UpsertEmbedding(ctx, row); err != nil {
			w.sinkFailure(sinkRelational, err, zap.Uint64("vector_id", vid))
			res.SinkErrors++
		}
	}
}

func (w *Writer) upsertProduct(
	ctx context.Context,
	pid uint64,
	title, caption string,
	rec catalog.ProductRecord,
	images []storedImage,
	now time.Time,
	res *WriteResult,
) {
	s3URLs := make([]string, 0, len(images))
	for _, img := range images {
		if img.s3URL != "" {
			s3URLs = append(s3URLs, img.s3URL)
		}
	}

	row := ProductRow{
		ProductID:    pid,
		Title:        title,
		Description:  rec.Details,
		Price:        rec.Price,
		NumImages:    len(rec.Images),
		Images:       rec.Images,
		Caption:      caption,
		S3ImageURLs:  s3URLs,
		Financing:    rec.Financing,
		PromoTagline: rec.PromoTagline,
		Sizes:        rec.Sizes,
		URL:          rec.URL,
		Category:     rec.Category,
		InsertedAt:   now,
		UpdatedAt:    now,
	}
	if err := w.store.UpsertProduct(ctx, row); err != nil {
		w.sinkFailure(sinkRelational, err, zap.Uint64("product_id", pid))
		res.SinkErrors++
	}
}

func (w *Writer) sinkFailure(sink string, err error, fields ...zap.Field) {
	metrics.ObserveSinkFailure(sink)
	w.logger.Error("sink write failed", append(fields, zap.String("sink", sink), zap.Error(err))...)
}
