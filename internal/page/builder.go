// Package page assembles normalized Page records from fetch results and
// extracted metadata, independent of which renderer produced them.
package page

import (
	"time"

	"github.com/jonesrussell/intentmap/internal/domain"
	"github.com/jonesrussell/intentmap/internal/extractor"
	"github.com/jonesrussell/intentmap/internal/fetcher"
)

// Build assembles a fetched Page. It is a pure transform: inputs are never
// mutated, and classification is a deterministic rule table over the
// extractor's structural hints.
func Build(canonicalURL string, depth int, res *fetcher.Result, meta *extractor.Metadata, now time.Time) domain.Page {
	p := domain.Page{
		URL:         canonicalURL,
		Depth:       depth,
		Status:      domain.PageStatusFetched,
		ContentType: domain.ContentTypeGeneric,
		FetchedAt:   now,
	}

	if res != nil {
		p.HTTPStatus = res.StatusCode
	}

	if meta != nil {
		p.Title = meta.Title
		p.MetaDescription = meta.MetaDescription
		p.CanonicalURL = meta.CanonicalURL
		p.TextBlocks = append([]string(nil), meta.TextBlocks...)
		p.OutboundLinks = append([]string(nil), meta.OutboundLinks...)
		p.ContentType = classify(meta.ContentTypeHints)
	}

	return p
}

// BuildFailed creates a terminal Page record for a URL whose fetch failed
// permanently or exhausted its retries.
func BuildFailed(canonicalURL string, depth, httpStatus int, now time.Time) domain.Page {
	return domain.Page{
		URL:         canonicalURL,
		Depth:       depth,
		Status:      domain.PageStatusFailed,
		HTTPStatus:  httpStatus,
		ContentType: domain.ContentTypeGeneric,
		FetchedAt:   now,
	}
}

// BuildSkipped creates a terminal Page record for a URL skipped by an open
// host circuit breaker or at run shutdown.
func BuildSkipped(canonicalURL string, depth int, now time.Time) domain.Page {
	return domain.Page{
		URL:         canonicalURL,
		Depth:       depth,
		Status:      domain.PageStatusSkipped,
		ContentType: domain.ContentTypeGeneric,
		FetchedAt:   now,
	}
}

// classify maps structural hints to a content type. The table is ordered:
// FAQ schema wins over commerce markers, which win over bare form inputs.
func classify(hints []string) string {
	hintSet := make(map[string]struct{}, len(hints))
	for _, hint := range hints {
		hintSet[hint] = struct{}{}
	}

	if _, ok := hintSet[extractor.HintFAQSchema]; ok {
		return domain.ContentTypeFAQ
	}

	_, hasPrice := hintSet[extractor.HintPrice]
	_, hasCart := hintSet[extractor.HintAddToCart]
	if hasPrice || hasCart {
		return domain.ContentTypeProduct
	}

	if _, ok := hintSet[extractor.HintFormInput]; ok {
		return domain.ContentTypeForm
	}

	return domain.ContentTypeGeneric
}
