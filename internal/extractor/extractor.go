// Package extractor parses fetched HTML into the normalized metadata the
// engine consumes, using goquery. It owns no fetch or classification
// logic; structural content-type hints are collected here and interpreted
// by the page builder's rule table.
package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Content-type hint constants emitted for the page builder.
const (
	HintFAQSchema = "faq_schema"
	HintPrice     = "price_markers"
	HintAddToCart = "add_to_cart"
	HintFormInput = "form_inputs"
)

// textBlockSelector lists the elements whose text becomes ordered blocks.
const textBlockSelector = "p, h1, h2, h3, h4, h5, h6, li"

// addToCartMarkers are lowercase substrings of button/link text that mark
// commerce pages.
var addToCartMarkers = []string{"add to cart", "add to basket", "buy now"}

// Metadata is the extraction result for one page.
type Metadata struct {
	Title            string
	MetaDescription  string
	CanonicalURL     string
	TextBlocks       []string
	OutboundLinks    []string
	ContentTypeHints []string
}

// Extractor parses raw HTML into Metadata.
type Extractor struct{}

// New creates a new extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses HTML and collects metadata, ordered text blocks, outbound
// links, and structural content-type hints. It never mutates the input.
func (e *Extractor) Extract(rawHTML []byte) (*Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	meta := &Metadata{
		Title:           extractTitle(doc),
		MetaDescription: extractMetaDescription(doc),
		CanonicalURL:    extractCanonical(doc),
		TextBlocks:      extractTextBlocks(doc),
		OutboundLinks:   extractOutboundLinks(doc),
	}
	meta.ContentTypeHints = collectHints(doc)

	return meta, nil
}

// extractTitle extracts the page title, preferring <title> then og:title.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}

	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists {
		return strings.TrimSpace(ogTitle)
	}

	return ""
}

// extractMetaDescription extracts the description from meta tags.
func extractMetaDescription(doc *goquery.Document) string {
	if desc, exists := doc.Find("meta[name='description']").Attr("content"); exists {
		return strings.TrimSpace(desc)
	}

	if ogDesc, exists := doc.Find("meta[property='og:description']").Attr("content"); exists {
		return strings.TrimSpace(ogDesc)
	}

	return ""
}

// extractCanonical extracts the canonical link relation, if present.
func extractCanonical(doc *goquery.Document) string {
	if href, exists := doc.Find("link[rel='canonical']").Attr("href"); exists {
		return strings.TrimSpace(href)
	}

	return ""
}

// extractTextBlocks collects visible text in document order.
func extractTextBlocks(doc *goquery.Document) []string {
	blocks := make([]string, 0)

	doc.Find(textBlockSelector).Each(func(_ int, sel *goquery.Selection) {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text != "" {
			blocks = append(blocks, text)
		}
	})

	return blocks
}

// extractOutboundLinks collects href values from anchors. Links are
// returned raw; canonicalization happens at the frontier.
func extractOutboundLinks(doc *goquery.Document) []string {
	links := make([]string, 0)

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, exists := sel.Attr("href")
		if !exists {
			return
		}

		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}

		links = append(links, href)
	})

	return links
}

// collectHints gathers structural signals for content-type classification.
func collectHints(doc *goquery.Document) []string {
	hints := make([]string, 0)

	if hasFAQSchema(doc) {
		hints = append(hints, HintFAQSchema)
	}

	if doc.Find("[itemprop='price'], .price, [class*='price']").Length() > 0 {
		hints = append(hints, HintPrice)
	}

	if hasAddToCart(doc) {
		hints = append(hints, HintAddToCart)
	}

	if doc.Find("form input, form textarea, form select").Length() > 0 {
		hints = append(hints, HintFormInput)
	}

	return hints
}

// hasFAQSchema detects FAQPage markup in either microdata or JSON-LD form.
func hasFAQSchema(doc *goquery.Document) bool {
	if doc.Find("[itemtype*='FAQPage']").Length() > 0 {
		return true
	}

	found := false

	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(sel.Text(), "FAQPage") {
			found = true
			return false
		}
		return true
	})

	return found
}

// hasAddToCart scans button and anchor text for commerce markers.
func hasAddToCart(doc *goquery.Document) bool {
	found := false

	doc.Find("button, a, input[type='submit']").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.ToLower(sel.Text())
		if value, exists := sel.Attr("value"); exists {
			text += " " + strings.ToLower(value)
		}

		for _, marker := range addToCartMarkers {
			if strings.Contains(text, marker) {
				found = true
				return false
			}
		}

		return true
	})

	return found
}
