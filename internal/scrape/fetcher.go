// Package scrape implements the catalog crawl pipeline: a rate-limited
// fetcher, a pure page parser, product URL discovery, and the streaming
// crawler that fans fetch+parse work out across listing pages.
package scrape

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/jibbs-ai/catalog-ingest/internal/metrics"
)

// FetcherConfig controls admission, pacing, and timeout behavior.
type FetcherConfig struct {
	// Concurrency is the global ceiling on in-flight requests.
	Concurrency int
	// Delay is applied after a slot is acquired and before the request is
	// issued, so the soft global rate is roughly Concurrency/Delay.
	Delay time.Duration
	// Timeout bounds a single request end to end.
	Timeout   time.Duration
	UserAgent string
}

func (c *FetcherConfig) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 10
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
}

// Fetcher issues bounded-concurrency HTTP GETs through a cloned Colly
// collector. Every failure mode short of a canceled context is soft: the
// caller gets ok=false and a log line, never an error to handle. Retry policy
// belongs to the caller, and the crawler deliberately has none.
type Fetcher struct {
	cfg           FetcherConfig
	gate          *semaphore.Weighted
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// NewFetcher builds a Fetcher with its admission gate sized to cfg.Concurrency.
func NewFetcher(cfg FetcherConfig, logger *zap.Logger) *Fetcher {
	cfg.applyDefaults()

	base := colly.NewCollector(colly.UserAgent(cfg.UserAgent))
	base.AllowURLRevisit = true
	base.IgnoreRobotsTxt = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   32,
		MaxConnsPerHost:       cfg.Concurrency * 2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		gate:          semaphore.NewWeighted(int64(cfg.Concurrency)),
		baseCollector: base,
		logger:        logger,
	}
}

// Fetch retrieves the page body for rawURL. It blocks on the admission gate,
// sleeps the configured delay inside the slot, then issues a single GET.
// Non-200 statuses and transport errors both return ok=false.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, bool) {
	if err := f.gate.Acquire(ctx, 1); err != nil {
		f.logger.Warn("admission canceled", zap.String("url", rawURL), zap.Error(err))
		return "", false
	}
	defer f.gate.Release(1)

	metrics.FetchStarted()
	defer metrics.FetchFinished()

	if !f.pause(ctx) {
		return "", false
	}

	body, status, err := f.visit(ctx, rawURL)
	switch {
	case err != nil:
		metrics.ObserveFetch("error")
		f.logger.Error("fetch failed", zap.String("url", rawURL), zap.Error(err))
		return "", false
	case status != http.StatusOK:
		metrics.ObserveFetch("non_200")
		f.logger.Warn("non-200 status", zap.String("url", rawURL), zap.Int("status", status))
		return "", false
	default:
		metrics.ObserveFetch("ok")
		return body, true
	}
}

// pause sleeps the fixed inter-request delay, returning false if the context
// finished first.
func (f *Fetcher) pause(ctx context.Context) bool {
	if f.cfg.Delay <= 0 {
		return true
	}
	timer := time.NewTimer(f.cfg.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

type fetchResult struct {
	body   string
	status int
	err    error
}

func (f *Fetcher) visit(ctx context.Context, rawURL string) (string, int, error) {
	collector := f.baseCollector.Clone()

	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{body: string(r.Body), status: r.StatusCode})
	})
	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		if status >= 100 {
			// Colly reports non-2xx responses through OnError; surface
			// them as a status, not a transport failure.
			send(fetchResult{status: status})
			return
		}
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return "", 0, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		return res.body, res.status, res.err
	default:
		return "", 0, errors.New("fetch produced no result")
	}
}
