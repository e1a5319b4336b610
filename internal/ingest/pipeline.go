package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jibbs-ai/catalog-ingest/internal/catalog"
	"github.com/jibbs-ai/catalog-ingest/internal/metrics"
)

// RecordSource streams scraped records; satisfied by the crawler.
type RecordSource interface {
	Stream(ctx context.Context, categories []string) <-chan catalog.ProductRecord
}

// RunSummary reports one pipeline run.
type RunSummary struct {
	RunID      string
	Categories []string
	Succeeded  int
	Failed     int
	SinkErrors int
	Started    time.Time
	Finished   time.Time
}

// Event is published downstream after each record is written.
type Event struct {
	RunID     string `json:"run_id"`
	ProductID uint64 `json:"product_id"`
	Category  string `json:"category"`
	URL       string `json:"url"`
	Images    int    `json:"images"`
}

// Pipeline wires the record source to the multi-sink writer. Records arrive
// in completion order; each is written before the next is taken so sink load
// stays bounded by the fetcher's concurrency, not by an extra worker pool.
type Pipeline struct {
	source    RecordSource
	writer    *Writer
	publisher Publisher
	topic     string
	clock     Clock
	logger    *zap.Logger
}

// NewPipeline constructs a Pipeline. publisher may be nil to skip events.
func NewPipeline(source RecordSource, writer *Writer, publisher Publisher, topic string, clock Clock, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		source:    source,
		writer:    writer,
		publisher: publisher,
		topic:     topic,
		clock:     clock,
		logger:    logger,
	}
}

// Run drains the stream for the given categories and returns a summary. Error
// records from failed fetches are counted and logged but never written; they
// do not abort the run. Run returns an error only when the context ends.
func (p *Pipeline) Run(ctx context.Context, categories []string) (RunSummary, error) {
	summary := RunSummary{
		RunID:      uuid.NewString(),
		Categories: categories,
		Started:    p.clock.Now(),
	}
	logger := p.logger.With(zap.String("run_id", summary.RunID))
	logger.Info("ingest run starting", zap.Strings("categories", categories))

	for rec := range p.source.Stream(ctx, categories) {
		if err := ctx.Err(); err != nil {
			summary.Finished = p.clock.Now()
			metrics.ObserveRun("canceled")
			return summary, err
		}

		if rec.Failed() {
			summary.Failed++
			metrics.ObserveRecord(rec.Category, "failed")
			logger.Warn("skipping failed fetch",
				zap.String("category", rec.Category),
				zap.String("url", rec.URL),
				zap.String("error", rec.Err))
			continue
		}

		res, err := p.writer.Write(ctx, rec)
		if err != nil {
			summary.Failed++
			metrics.ObserveRecord(rec.Category, "failed")
			logger.Error("record write rejected", zap.String("url", rec.URL), zap.Error(err))
			continue
		}

		summary.Succeeded++
		summary.SinkErrors += res.SinkErrors
		metrics.ObserveRecord(rec.Category, "ok")
		logger.Info("product ingested",
			zap.Uint64("product_id", res.ProductID),
			zap.String("category", rec.Category),
			zap.Int("images_stored", res.ImagesStored),
			zap.Int("vectors_upserted", res.VectorsUpserted),
			zap.Int("sink_errors", res.SinkErrors))

		p.publish(ctx, logger, summary.RunID, rec, res)
	}

	summary.Finished = p.clock.Now()
	metrics.ObserveRun("ok")
	logger.Info("ingest run finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("sink_errors", summary.SinkErrors),
		zap.Duration("elapsed", summary.Finished.Sub(summary.Started)))
	return summary, nil
}

func (p *Pipeline) publish(ctx context.Context, logger *zap.Logger, runID string, rec catalog.ProductRecord, res WriteResult) {
	if p.publisher == nil {
		return
	}
	event := Event{
		RunID:     runID,
		ProductID: res.ProductID,
		Category:  rec.Category,
		URL:       rec.URL,
		Images:    res.ImagesStored,
	}
	if _, err := p.publisher.Publish(ctx, p.topic, event); err != nil {
		logger.Warn("event publish failed", zap.Uint64("product_id", res.ProductID), zap.Error(err))
	}
}
