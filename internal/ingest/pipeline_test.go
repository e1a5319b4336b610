package ingest_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jibbs-ai/catalog-ingest/internal/catalog"
	"github.com/jibbs-ai/catalog-ingest/internal/ingest"
	pubmemory "github.com/jibbs-ai/catalog-ingest/internal/publisher/memory"
	"github.com/jibbs-ai/catalog-ingest/internal/storage/memory"
)

type sliceSource struct {
	records []catalog.ProductRecord
}

func (s sliceSource) Stream(ctx context.Context, _ []string) <-chan catalog.ProductRecord {
	out := make(chan catalog.ProductRecord)
	go func() {
		defer close(out)
		for _, rec := range s.records {
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func TestPipelineRunCountsAndPublishes(t *testing.T) {
	t.Parallel()

	srv := imageServer(t)
	store := memory.NewCatalogStore()
	vectors := memory.NewVectorStore([]string{textCollection, imageCollection}, zap.NewNop())
	now := time.Unix(1700000000, 0).UTC()

	writer := newWriter(memory.NewObjectStore("", ""), vectors, store, stubEmbedder{}, nil, now)

	velvet := catalog.ProductRecord{
		Title:    "Velvet Bodysuit",
		Price:    "£19.99",
		URL:      "https://shop.example.com/products/velvet-bodysuit",
		Details:  []string{"Stretch velvet"},
		Category: "bodysuits",
	}
	failed := catalog.ProductRecord{
		URL:      "https://shop.example.com/products/gone",
		Category: "shoes",
		Err:      catalog.ErrFailedFetch,
	}

	source := sliceSource{records: []catalog.ProductRecord{denimRecord(srv.URL), failed, velvet}}
	pub := pubmemory.New()

	p := ingest.NewPipeline(source, writer, pub, "catalog.ingested", fixedClock{t: now}, zap.NewNop())
	summary, err := p.Run(context.Background(), []string{"jackets", "shoes", "bodysuits"})
	require.NoError(t, err)

	require.NotEmpty(t, summary.RunID)
	require.Equal(t, 2, summary.Succeeded)
	require.Equal(t, 1, summary.Failed)
	require.Zero(t, summary.SinkErrors)

	// Failed fetches never reach the sinks.
	products, _ := store.Counts()
	require.Equal(t, 2, products)
	_, ok := store.Product(catalog.ProductID("Velvet Bodysuit"))
	require.True(t, ok)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "catalog.ingested", msgs[0].Topic)
	event, ok := msgs[0].Payload.(ingest.Event)
	require.True(t, ok)
	require.Equal(t, summary.RunID, event.RunID)
	require.Equal(t, denimProductID, event.ProductID)
	require.Equal(t, "jackets", event.Category)
}

func TestPipelineRunWithoutPublisher(t *testing.T) {
	t.Parallel()

	srv := imageServer(t)
	store := memory.NewCatalogStore()
	vectors := memory.NewVectorStore([]string{textCollection, imageCollection}, zap.NewNop())
	now := time.Unix(1700000000, 0).UTC()

	writer := newWriter(memory.NewObjectStore("", ""), vectors, store, stubEmbedder{}, nil, now)
	source := sliceSource{records: []catalog.ProductRecord{denimRecord(srv.URL)}}

	p := ingest.NewPipeline(source, writer, nil, "", fixedClock{t: now}, zap.NewNop())
	summary, err := p.Run(context.Background(), []string{"jackets"})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Succeeded)
}

func TestPipelineRunCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := memory.NewCatalogStore()
	vectors := memory.NewVectorStore(nil, zap.NewNop())
	now := time.Unix(1700000000, 0).UTC()
	writer := newWriter(memory.NewObjectStore("", ""), vectors, store, stubEmbedder{}, nil, now)

	// An already-canceled context ends the run as soon as a record arrives.
	source := sliceSource{records: []catalog.ProductRecord{{Title: "X", Category: "shoes"}}}
	p := ingest.NewPipeline(source, writer, nil, "", fixedClock{t: now}, zap.NewNop())
	_, err := p.Run(ctx, []string{"shoes"})
	if err == nil {
		// The stream may close before delivering anything once canceled.
		products, _ := store.Counts()
		require.Zero(t, products)
	}
}
