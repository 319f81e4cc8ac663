// Package domain provides the data model shared across the intent-map engine.
package domain

import "time"

// Page status constants.
const (
	PageStatusFetched = "fetched"
	PageStatusFailed  = "failed"
	PageStatusSkipped = "skipped"
)

// Page content type constants.
const (
	ContentTypeFAQ     = "faq"
	ContentTypeProduct = "product"
	ContentTypeForm    = "form"
	ContentTypeGeneric = "generic"
)

// Page represents one crawled URL after terminal processing. A Page is
// created once per URL and is immutable except for status transitions.
type Page struct {
	// Identity
	URL   string `db:"url"   json:"url"`
	Depth int    `db:"depth" json:"depth"`

	// Discovered is the frontier discovery sequence number, used for
	// deterministic sibling ordering during hierarchy placement.
	Discovered int `db:"discovered" json:"discovered"`

	// Outcome
	Status     string `db:"status"      json:"status"`
	HTTPStatus int    `db:"http_status" json:"http_status,omitempty"`

	// Extracted metadata
	Title           string `db:"title"            json:"title"`
	MetaDescription string `db:"meta_description" json:"meta_description"`
	CanonicalURL    string `db:"canonical_url"    json:"canonical_url,omitempty"`
	ContentType     string `db:"content_type"     json:"content_type"`

	// Content
	TextBlocks    []string `json:"text_blocks"`
	OutboundLinks []string `json:"outbound_links"`

	FetchedAt time.Time `db:"fetched_at" json:"fetched_at"`
}

// HasContent reports whether the page produced any extracted text.
func (p *Page) HasContent() bool {
	return len(p.TextBlocks) > 0
}
