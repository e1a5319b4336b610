package scrape

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jibbs-ai/catalog-ingest/internal/catalog"
)

// Defaults used when a page is missing the corresponding element.
const (
	defaultTitle = "No title found"
	defaultPrice = "No price found"
)

var (
	paymentsCountRe = regexp.MustCompile(`(?i)\bor\s+(\d+)\s+payments?\b`)
	paymentAmountRe = regexp.MustCompile(`£\s?\d+(?:\.\d{2})?`)
)

// ParseProduct turns a product page into a ProductRecord. It is pure and
// synchronous: no network access, and a missing section yields its default
// rather than an error. Callers must not invoke it for failed fetches; those
// URLs get a failure record instead.
func ParseProduct(html, sourceURL string) (catalog.ProductRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return catalog.ProductRecord{}, err
	}

	rec := catalog.ProductRecord{
		Title:     defaultTitle,
		Price:     defaultPrice,
		URL:       canonicalURL(sourceURL),
		ScrapedAt: time.Now().UTC(),
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		rec.Title = title
	}
	if price := strings.TrimSpace(doc.Find("div.text-red-600").First().Text()); price != "" {
		rec.Price = price
	}

	rec.Images = parseImages(doc)
	rec.Details = parseDetails(doc)
	rec.Financing = parseFinancing(doc)
	rec.PromoTagline = squashSpace(doc.Find(`[data-testid="product-tagline"]`).First().Text())
	rec.Sizes = parseSizes(doc)

	return rec, nil
}

// parseImages collects product image sources, preferring src over the first
// srcset candidate, unescapes &amp; and strips query parameters, then
// deduplicates preserving first-seen order.
func parseImages(doc *goquery.Document) []string {
	var urls []string
	doc.Find(`div[data-testid^="product-image-"] picture img`).Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			src = firstSrcsetCandidate(img)
		}
		if src == "" {
			return
		}
		src = strings.ReplaceAll(src, "&amp;", "&")
		if i := strings.Index(src, "?"); i >= 0 {
			src = src[:i]
		}
		urls = append(urls, src)
	})
	return catalog.Dedupe(urls)
}

func firstSrcsetCandidate(img *goquery.Selection) string {
	srcset, ok := img.Attr("srcset")
	if !ok {
		return ""
	}
	first, _, _ := strings.Cut(srcset, ",")
	candidate, _, _ := strings.Cut(strings.TrimSpace(first), " ")
	return candidate
}

// parseDetails prefers list items under the details container and falls back
// to the container's newline-split text.
func parseDetails(doc *goquery.Document) []string {
	container := doc.Find(`[data-testid="product-details-text"]`).First()
	if container.Length() == 0 {
		return nil
	}

	var details []string
	container.Find("li").Each(func(_ int, li *goquery.Selection) {
		if line := strings.TrimSpace(li.Text()); line != "" {
			details = append(details, line)
		}
	})
	if len(details) > 0 {
		return details
	}

	for line := range strings.SplitSeq(container.Text(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			details = append(details, line)
		}
	}
	return details
}

// parseFinancing extracts the raw financing text plus the installment count
// and currency amount when present. A missing regex match yields a nil field,
// never an error.
func parseFinancing(doc *goquery.Document) *catalog.Financing {
	btn := doc.Find(`button[data-testid="financing-options"]`).First()
	if btn.Length() == 0 {
		return nil
	}

	fin := &catalog.Financing{RawText: squashSpace(btn.Text())}
	if m := paymentsCountRe.FindStringSubmatch(fin.RawText); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			fin.PaymentsCount = &n
		}
	}
	if m := paymentAmountRe.FindString(fin.RawText); m != "" {
		amount := strings.Replace(m, "£ ", "£", 1)
		fin.PaymentAmount = &amount
	}
	return fin
}

// parseSizes returns the last whitespace token of each size button's text,
// deduplicated in first-seen order.
func parseSizes(doc *goquery.Document) []string {
	container := doc.Find(`[data-testid="product-size-options"]`).First()
	if container.Length() == 0 {
		return nil
	}

	var sizes []string
	container.Find(`button[data-testid^="item-"]`).Each(func(_ int, btn *goquery.Selection) {
		fields := strings.Fields(btn.Text())
		if len(fields) > 0 {
			sizes = append(sizes, fields[len(fields)-1])
		}
	})
	return catalog.Dedupe(sizes)
}

// canonicalURL strips the query string and fragment; invalid URLs pass
// through unchanged.
func canonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// squashSpace collapses all interior whitespace runs to single spaces.
func squashSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
