package scrape

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jibbs-ai/catalog-ingest/internal/catalog"
)

// CrawlerConfig describes the crawl target surface.
type CrawlerConfig struct {
	// BaseURL of the storefront, e.g. "https://www.fashionnova.com".
	BaseURL string
	// Division query parameter appended to listing pages.
	Division string
	// ProductPathPrefix identifies product detail anchors on listing pages.
	ProductPathPrefix string
	// PagesPerCategory is the number of listing pages walked per category.
	PagesPerCategory int
	// LimitPerPage caps the product URLs taken from one listing page.
	LimitPerPage int
}

func (c *CrawlerConfig) applyDefaults() {
	if c.ProductPathPrefix == "" {
		c.ProductPathPrefix = "/products/"
	}
	if c.PagesPerCategory <= 0 {
		c.PagesPerCategory = 3
	}
	if c.LimitPerPage <= 0 {
		c.LimitPerPage = 60
	}
}

// Crawler streams parsed product records for whole categories. Discovery is
// sequential; fetch+parse of the discovered product pages fans out across
// goroutines whose true concurrency is bounded solely by the fetcher's
// admission gate.
type Crawler struct {
	cfg     CrawlerConfig
	fetcher *Fetcher
	logger  *zap.Logger
}

// NewCrawler builds a Crawler around an existing fetcher.
func NewCrawler(cfg CrawlerConfig, fetcher *Fetcher, logger *zap.Logger) *Crawler {
	cfg.applyDefaults()
	return &Crawler{cfg: cfg, fetcher: fetcher, logger: logger}
}

// Stream crawls the given categories and delivers one ProductRecord per
// discovered URL on the returned channel. Records arrive in completion order,
// not submission order; each is self-contained and carries its category tag,
// including fetch-failure records. The channel closes once every category has
// drained. Each invocation re-fetches; the stream is not restartable.
func (c *Crawler) Stream(ctx context.Context, categories []string) <-chan catalog.ProductRecord {
	out := make(chan catalog.ProductRecord)
	go func() {
		defer close(out)
		for _, category := range categories {
			c.streamCategory(ctx, category, out)
		}
	}()
	return out
}

func (c *Crawler) streamCategory(ctx context.Context, category string, out chan<- catalog.ProductRecord) {
	urls := c.discoverCategory(ctx, category)
	if len(urls) == 0 {
		c.logger.Info("no products found for category", zap.String("category", category))
		return
	}
	c.logger.Info("scraping products",
		zap.String("category", category),
		zap.Int("count", len(urls)),
	)

	var wg sync.WaitGroup
	for _, u := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := c.scrapeProduct(ctx, u)
			rec.Category = category
			select {
			case out <- rec:
			case <-ctx.Done():
			}
		}()
	}
	wg.Wait()
}

// discoverCategory walks the category's listing pages in order, accumulating
// one deduplicated URL set. This stage is I/O-light and kept sequential so
// the logs read page by page.
func (c *Crawler) discoverCategory(ctx context.Context, category string) []string {
	var urls []string
	for page := 1; page <= c.cfg.PagesPerCategory; page++ {
		listingURL := c.listingURL(category, page)
		c.logger.Debug("discovering product urls",
			zap.String("category", category),
			zap.String("url", listingURL),
		)
		found := DiscoverProductURLs(ctx, c.fetcher, listingURL, c.cfg.ProductPathPrefix, c.cfg.LimitPerPage, c.logger)
		urls = append(urls, found...)
	}
	return catalog.Dedupe(urls)
}

// scrapeProduct fetches and parses one product page. A failed fetch yields a
// terminal error record; parsing never fails on missing sections.
func (c *Crawler) scrapeProduct(ctx context.Context, productURL string) catalog.ProductRecord {
	html, ok := c.fetcher.Fetch(ctx, productURL)
	if !ok {
		return catalog.ProductRecord{URL: productURL, Err: catalog.ErrFailedFetch}
	}
	rec, err := ParseProduct(html, productURL)
	if err != nil {
		c.logger.Error("parse product page", zap.String("url", productURL), zap.Error(err))
		return catalog.ProductRecord{URL: productURL, Err: catalog.ErrFailedFetch}
	}
	return rec
}

func (c *Crawler) listingURL(category string, page int) string {
	return fmt.Sprintf("%s/collections/%s?division=%s&page=%d",
		c.cfg.BaseURL, category, c.cfg.Division, page)
}
