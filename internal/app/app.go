// Package app wires configuration into the concrete service dependencies.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jibbs-ai/catalog-ingest/internal/api"
	"github.com/jibbs-ai/catalog-ingest/internal/clock/system"
	"github.com/jibbs-ai/catalog-ingest/internal/config"
	"github.com/jibbs-ai/catalog-ingest/internal/embedding"
	"github.com/jibbs-ai/catalog-ingest/internal/ingest"
	"github.com/jibbs-ai/catalog-ingest/internal/logging"
	"github.com/jibbs-ai/catalog-ingest/internal/metrics"
	kafkapub "github.com/jibbs-ai/catalog-ingest/internal/publisher/kafka"
	memorypub "github.com/jibbs-ai/catalog-ingest/internal/publisher/memory"
	"github.com/jibbs-ai/catalog-ingest/internal/scrape"
	"github.com/jibbs-ai/catalog-ingest/internal/storage/memory"
	"github.com/jibbs-ai/catalog-ingest/internal/storage/object"
	pgstore "github.com/jibbs-ai/catalog-ingest/internal/storage/postgres"
	"github.com/jibbs-ai/catalog-ingest/internal/storage/vector"
)

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	pipeline  *ingest.Pipeline
	apiServer *api.Server

	objects      ingest.ObjectStore
	vectors      ingest.VectorStore
	catalogStore ingest.CatalogStore
	publisher    ingest.Publisher

	// Concrete handles kept for bootstrap and shutdown.
	s3Store     *object.Store
	qdrantStore *vector.Store
	kafkaPub    *kafkapub.Publisher
}

// Build creates the application's dependencies from config.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	a := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("base_url", cfg.Scrape.BaseURL),
	)

	if err := a.setupObjectStore(logger); err != nil {
		return nil, err
	}
	if err := a.setupVectorStore(logger); err != nil {
		return nil, err
	}
	if err := a.setupCatalogStore(ctx, logger); err != nil {
		return nil, err
	}
	if err := a.setupPublisher(logger); err != nil {
		return nil, err
	}

	embedder, captioner, err := setupEmbedding(cfg.Embedding, logger)
	if err != nil {
		return nil, err
	}

	fetcher := scrape.NewFetcher(scrape.FetcherConfig{
		Concurrency: cfg.Scrape.Concurrency,
		Delay:       cfg.Scrape.RequestDelay,
		Timeout:     cfg.Scrape.RequestTimeout,
		UserAgent:   cfg.Scrape.UserAgent,
	}, logger.Named("fetcher"))

	crawler := scrape.NewCrawler(scrape.CrawlerConfig{
		BaseURL:           cfg.Scrape.BaseURL,
		Division:          cfg.Scrape.Division,
		ProductPathPrefix: cfg.Scrape.ProductPathPrefix,
		PagesPerCategory:  cfg.Scrape.PagesPerCategory,
		LimitPerPage:      cfg.Scrape.LimitPerPage,
	}, fetcher, logger.Named("crawler"))

	clock := system.New()
	writer := ingest.NewWriter(
		ingest.WriterConfig{
			TextCollection:  cfg.Qdrant.TextCollection,
			ImageCollection: cfg.Qdrant.ImageCollection,
		},
		a.objects,
		a.vectors,
		a.catalogStore,
		embedder,
		captioner,
		nil,
		clock,
		logger.Named("writer"),
	)

	a.pipeline = ingest.NewPipeline(crawler, writer, a.publisher, cfg.Publisher.Topic, clock, logger.Named("pipeline"))
	a.apiServer = api.NewServer(a.healthChecks(), a.pipeline, cfg.Scrape.Categories, logger.Named("api"))

	return a, nil
}

// Pipeline exposes the ingest pipeline for command entry points.
func (a *App) Pipeline() *ingest.Pipeline {
	return a.pipeline
}

// Logger exposes the root logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Categories returns the configured default crawl categories.
func (a *App) Categories() []string {
	return a.cfg.Scrape.Categories
}

func (a *App) setupObjectStore(logger *zap.Logger) error {
	switch a.cfg.Object.Provider {
	case "s3":
		logger.Info("using s3 object store",
			zap.String("bucket", a.cfg.Object.Bucket),
			zap.String("region", a.cfg.Object.Region),
		)
		store, err := object.New(object.Config{
			Endpoint:  a.cfg.Object.Endpoint,
			Region:    a.cfg.Object.Region,
			Bucket:    a.cfg.Object.Bucket,
			AccessKey: a.cfg.Object.AccessKey,
			SecretKey: a.cfg.Object.SecretKey,
			UseSSL:    a.cfg.Object.UseSSL,
		}, logger.Named("object"))
		if err != nil {
			return fmt.Errorf("object store init failed: %w", err)
		}
		a.s3Store = store
		a.objects = store
	default:
		logger.Info("using in-memory object store")
		a.objects = memory.NewObjectStore(a.cfg.Object.Bucket, a.cfg.Object.Region)
	}
	return nil
}

func (a *App) setupVectorStore(logger *zap.Logger) error {
	collections := []string{a.cfg.Qdrant.TextCollection, a.cfg.Qdrant.ImageCollection}
	switch a.cfg.Qdrant.Provider {
	case "qdrant":
		logger.Info("using qdrant vector store", zap.String("host", a.cfg.Qdrant.Host))
		store, err := vector.New(vector.Config{
			Host:        a.cfg.Qdrant.Host,
			Port:        a.cfg.Qdrant.Port,
			APIKey:      a.cfg.Qdrant.APIKey,
			UseTLS:      a.cfg.Qdrant.UseTLS,
			Collections: collections,
			Dimension:   uint64(a.cfg.Embedding.Dimension),
		}, logger.Named("vector"))
		if err != nil {
			return fmt.Errorf("vector store init failed: %w", err)
		}
		a.qdrantStore = store
		a.vectors = store
	default:
		logger.Info("using in-memory vector store")
		a.vectors = memory.NewVectorStore(collections, logger.Named("vector"))
	}
	return nil
}

func (a *App) setupCatalogStore(ctx context.Context, logger *zap.Logger) error {
	switch a.cfg.Postgres.Provider {
	case "postgres":
		logger.Info("using postgres catalog store")
		store, err := pgstore.NewCatalogStore(ctx, pgstore.CatalogStoreConfig{
			DSN:      a.cfg.Postgres.DSN,
			MaxConns: a.cfg.Postgres.MaxConns,
		})
		if err != nil {
			return fmt.Errorf("catalog store init failed: %w", err)
		}
		a.catalogStore = store
	default:
		logger.Info("using in-memory catalog store")
		a.catalogStore = memory.NewCatalogStore()
	}
	return nil
}

func (a *App) setupPublisher(logger *zap.Logger) error {
	switch a.cfg.Publisher.Provider {
	case "kafka":
		logger.Info("using kafka publisher",
			zap.Strings("brokers", a.cfg.Publisher.Brokers),
			zap.String("topic", a.cfg.Publisher.Topic),
		)
		pub, err := kafkapub.New(kafkapub.Config{
			Brokers: a.cfg.Publisher.Brokers,
			Topic:   a.cfg.Publisher.Topic,
		})
		if err != nil {
			return fmt.Errorf("kafka publisher init failed: %w", err)
		}
		a.kafkaPub = pub
		a.publisher = pub
	case "memory":
		logger.Info("using in-memory publisher")
		a.publisher = memorypub.New()
	default:
		logger.Info("event publishing disabled")
	}
	return nil
}

func setupEmbedding(cfg config.EmbeddingConfig, logger *zap.Logger) (embedding.Embedder, embedding.Captioner, error) {
	switch cfg.Provider {
	case "service":
		logger.Info("using embedding service", zap.String("url", cfg.ServiceURL))
		client := embedding.NewServiceClient(embedding.ServiceConfig{
			BaseURL:   cfg.ServiceURL,
			Dimension: cfg.Dimension,
		}, logger.Named("embedding"))
		if cfg.Captions {
			return client, client, nil
		}
		return client, nil, nil
	case "openai":
		logger.Info("using openai embedder", zap.String("model", cfg.Model))
		embedder, err := embedding.NewOpenAIEmbedder(cfg.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return embedder, nil, nil
	default:
		logger.Info("using noop embedder")
		return embedding.NewNoopEmbedder(cfg.Dimension), nil, nil
	}
}

func (a *App) healthChecks() map[string]api.Pinger {
	checks := map[string]api.Pinger{
		"relational": a.catalogStore,
	}
	if a.s3Store != nil {
		checks["object"] = a.s3Store
	} else if p, ok := a.objects.(api.Pinger); ok {
		checks["object"] = p
	}
	if a.qdrantStore != nil {
		checks["vector"] = a.qdrantStore
	} else if p, ok := a.vectors.(api.Pinger); ok {
		checks["vector"] = p
	}
	return checks
}

// InitStores provisions the backing stores: schema migrations, the image
// bucket, and the vector collections. Memory-backed providers need nothing.
func (a *App) InitStores(ctx context.Context) error {
	if a.cfg.Postgres.Provider == "postgres" {
		if err := pgstore.RunMigrations(a.cfg.Postgres.DSN); err != nil {
			return err
		}
		a.logger.Info("postgres migrations applied")
	}
	if a.s3Store != nil {
		if err := a.s3Store.EnsureBucket(ctx); err != nil {
			return err
		}
	}
	if a.qdrantStore != nil {
		if err := a.qdrantStore.EnsureCollections(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Run starts the ops HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	a.Close()
	return nil
}

// Close gracefully shuts down the backing connections.
func (a *App) Close() {
	if a.kafkaPub != nil {
		if err := a.kafkaPub.Close(); err != nil {
			a.logger.Warn("kafka publisher close failed", zap.Error(err))
		}
	}
	if a.qdrantStore != nil {
		if err := a.qdrantStore.Close(); err != nil {
			a.logger.Warn("vector store close failed", zap.Error(err))
		}
	}
	if a.catalogStore != nil {
		a.catalogStore.Close()
	}
	_ = a.logger.Sync()
	a.logger.Info("shutdown complete")
}
