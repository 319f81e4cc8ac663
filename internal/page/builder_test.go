package page_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/intentmap/internal/domain"
	"github.com/jonesrussell/intentmap/internal/extractor"
	"github.com/jonesrussell/intentmap/internal/fetcher"
	"github.com/jonesrussell/intentmap/internal/page"
)

func TestBuild(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res := &fetcher.Result{StatusCode: http.StatusOK}
	meta := &extractor.Metadata{
		Title:           "Pricing",
		MetaDescription: "Plans and prices",
		CanonicalURL:    "https://example.com/pricing",
		TextBlocks:      []string{"Choose a plan"},
		OutboundLinks:   []string{"/signup"},
		ContentTypeHints: []string{
			extractor.HintPrice,
		},
	}

	p := page.Build("https://example.com/pricing", 1, res, meta, now)

	assert.Equal(t, "https://example.com/pricing", p.URL)
	assert.Equal(t, 1, p.Depth)
	assert.Equal(t, domain.PageStatusFetched, p.Status)
	assert.Equal(t, http.StatusOK, p.HTTPStatus)
	assert.Equal(t, "Pricing", p.Title)
	assert.Equal(t, domain.ContentTypeProduct, p.ContentType)
	assert.Equal(t, []string{"Choose a plan"}, p.TextBlocks)
	assert.Equal(t, []string{"/signup"}, p.OutboundLinks)
	assert.Equal(t, now, p.FetchedAt)

	// The builder copies slices so later mutation of meta is invisible.
	meta.TextBlocks[0] = "changed"
	assert.Equal(t, "Choose a plan", p.TextBlocks[0])
}

func TestBuildFailedAndSkipped(t *testing.T) {
	t.Parallel()

	now := time.Now()

	failed := page.BuildFailed("https://example.com/gone", 2, http.StatusNotFound, now)
	assert.Equal(t, domain.PageStatusFailed, failed.Status)
	assert.Equal(t, http.StatusNotFound, failed.HTTPStatus)
	assert.Equal(t, 2, failed.Depth)

	skipped := page.BuildSkipped("https://example.com/later", 3, now)
	assert.Equal(t, domain.PageStatusSkipped, skipped.Status)
	assert.Zero(t, skipped.HTTPStatus)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		hints []string
		want  string
	}{
		{"no hints", nil, domain.ContentTypeGeneric},
		{"faq schema", []string{extractor.HintFAQSchema}, domain.ContentTypeFAQ},
		{"price marker", []string{extractor.HintPrice}, domain.ContentTypeProduct},
		{"add to cart", []string{extractor.HintAddToCart}, domain.ContentTypeProduct},
		{"form inputs", []string{extractor.HintFormInput}, domain.ContentTypeForm},
		{
			"faq wins over commerce",
			[]string{extractor.HintPrice, extractor.HintFAQSchema},
			domain.ContentTypeFAQ,
		},
		{
			"commerce wins over form",
			[]string{extractor.HintFormInput, extractor.HintAddToCart},
			domain.ContentTypeProduct,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := page.Build("https://example.com/x", 0, nil, &extractor.Metadata{ContentTypeHints: tt.hints}, time.Now())
			assert.Equal(t, tt.want, p.ContentType)
		})
	}
}
