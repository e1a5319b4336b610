// Package catalog defines the product domain types shared across the
// scrape and ingest subsystems.
package catalog

import "time"

// Embedding kinds persisted to the vector index and the embeddings table.
const (
	EmbeddingText  = "text"
	EmbeddingImage = "image"
)

// Financing captures the optional installment-payment block on a product page.
// PaymentsCount and PaymentAmount are nil when the raw text matched no pattern.
type Financing struct {
	RawText       string  `json:"raw_text"`
	PaymentsCount *int    `json:"payments_count"`
	PaymentAmount *string `json:"payment_amount"`
}

// ProductRecord is one scraped listing. It is produced once by the crawler
// and never mutated afterwards; the ingest pipeline owns it transiently until
// every sink has been written.
//
// Invariants: Images and Sizes contain no duplicates (first-occurrence order
// preserved) and URL carries no query string or fragment.
type ProductRecord struct {
	Title        string     `json:"product_title"`
	Price        string     `json:"product_price"`
	URL          string     `json:"product_url"`
	Images       []string   `json:"product_images"`
	Details      []string   `json:"product_details"`
	Financing    *Financing `json:"financing,omitempty"`
	PromoTagline string     `json:"promo_tagline,omitempty"`
	Sizes        []string   `json:"size_options"`
	Category     string     `json:"product_category"`
	ScrapedAt    time.Time  `json:"scraped_at"`

	// Err marks a terminal fetch failure for this URL. A failed record
	// carries only URL, Category and Err; downstream consumers must not
	// attempt captioning, embedding, or upserts for it.
	Err string `json:"error,omitempty"`
}

// Failed reports whether the record is a fetch-failure marker.
func (r ProductRecord) Failed() bool {
	return r.Err != ""
}

// ErrFailedFetch is the error text attached to records whose page could not
// be retrieved.
const ErrFailedFetch = "Failed to retrieve page"
