package scrape

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jibbs-ai/catalog-ingest/internal/catalog"
)

// DiscoverProductURLs fetches one collection listing page and returns the
// absolute, canonicalized product detail URLs it links to, deduplicated in
// first-seen order and truncated to limit. A failed fetch is soft: the result
// is simply empty.
func DiscoverProductURLs(
	ctx context.Context,
	fetcher *Fetcher,
	collectionURL string,
	productPathPrefix string,
	limit int,
	logger *zap.Logger,
) []string {
	html, ok := fetcher.Fetch(ctx, collectionURL)
	if !ok {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Error("parse collection page", zap.String("url", collectionURL), zap.Error(err))
		return nil
	}

	base, err := url.Parse(collectionURL)
	if err != nil {
		logger.Error("parse collection url", zap.String("url", collectionURL), zap.Error(err))
		return nil
	}

	var urls []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasPrefix(href, productPathPrefix) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		resolved.RawQuery = ""
		resolved.Fragment = ""
		urls = append(urls, resolved.String())
	})

	urls = catalog.Dedupe(urls)
	if limit > 0 && len(urls) > limit {
		urls = urls[:limit]
	}
	return urls
}
