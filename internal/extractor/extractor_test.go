package extractor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/intentmap/internal/extractor"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>  Billing FAQ  </title>
  <meta name="description" content="Answers to common billing questions">
  <link rel="canonical" href="https://example.com/support/billing">
</head>
<body>
  <h1>Billing</h1>
  <p>How do I update my card?</p>
  <ul><li>Go to settings</li><li>Open billing</li></ul>
  <a href="/support/billing/refunds">Refunds</a>
  <a href="https://example.com/pricing">Pricing</a>
  <a href="#top">Top</a>
  <a href="mailto:help@example.com">Email us</a>
  <a href="javascript:void(0)">Noop</a>
</body>
</html>`

func TestExtract(t *testing.T) {
	t.Parallel()

	meta, err := extractor.New().Extract([]byte(samplePage))
	require.NoError(t, err)

	assert.Equal(t, "Billing FAQ", meta.Title)
	assert.Equal(t, "Answers to common billing questions", meta.MetaDescription)
	assert.Equal(t, "https://example.com/support/billing", meta.CanonicalURL)

	// Document order, whitespace collapsed.
	assert.Equal(t, []string{
		"Billing",
		"How do I update my card?",
		"Go to settings",
		"Open billing",
	}, meta.TextBlocks)

	// Fragment, mailto and javascript links are dropped.
	assert.Equal(t, []string{
		"/support/billing/refunds",
		"https://example.com/pricing",
	}, meta.OutboundLinks)
}

func TestExtractFallbacks(t *testing.T) {
	t.Parallel()

	page := `<html><head>
	  <meta property="og:title" content="OG Title">
	  <meta property="og:description" content="OG description">
	</head><body></body></html>`

	meta, err := extractor.New().Extract([]byte(page))
	require.NoError(t, err)

	assert.Equal(t, "OG Title", meta.Title)
	assert.Equal(t, "OG description", meta.MetaDescription)
	assert.Empty(t, meta.CanonicalURL)
	assert.Empty(t, meta.TextBlocks)
}

func TestContentTypeHints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want []string
	}{
		{
			"faq microdata",
			`<div itemscope itemtype="https://schema.org/FAQPage"></div>`,
			[]string{extractor.HintFAQSchema},
		},
		{
			"faq json-ld",
			`<script type="application/ld+json">{"@type": "FAQPage"}</script>`,
			[]string{extractor.HintFAQSchema},
		},
		{
			"product page",
			`<span class="price">$10</span><button>Add to Cart</button>`,
			[]string{extractor.HintPrice, extractor.HintAddToCart},
		},
		{
			"form page",
			`<form><input type="text" name="email"></form>`,
			[]string{extractor.HintFormInput},
		},
		{
			"generic page",
			`<p>Nothing special here.</p>`,
			[]string{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			meta, err := extractor.New().Extract([]byte("<html><body>" + tt.html + "</body></html>"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, meta.ContentTypeHints)
		})
	}
}
