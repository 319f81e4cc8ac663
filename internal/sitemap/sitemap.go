// Package sitemap discovers and parses sitemap.xml documents, including
// recursive sitemap indexes, producing positioned seed URLs for the
// frontier. Sitemap failure is never fatal; a crawl can seed from
// discovered links alone.
package sitemap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/jonesrussell/intentmap/internal/fetcher"
	"github.com/jonesrussell/intentmap/internal/logger"
)

// candidatePaths are the well-known sitemap locations tried in order.
var candidatePaths = []string{"/sitemap.xml", "/sitemap_index.xml"}

// maxIndexDepth bounds recursive descent into sitemap indexes.
const maxIndexDepth = 3

// ErrNoSitemap is returned when no candidate sitemap URL yields a parseable
// document. Callers should treat this as non-fatal.
var ErrNoSitemap = errors.New("no sitemap found")

// Entry is one sitemap URL with its position in listing order.
type Entry struct {
	URL      string
	Position int
}

// Client fetches and parses sitemaps through the shared fetcher.
type Client struct {
	fetcher fetcher.Fetcher
	log     logger.Interface
}

// NewClient creates a sitemap client.
func NewClient(f fetcher.Fetcher, log logger.Interface) *Client {
	if log == nil {
		log = logger.NewNoOp()
	}

	return &Client{fetcher: f, log: log.WithComponent("sitemap")}
}

// Discover tries the well-known sitemap locations under baseURL and returns
// all listed URLs in listing order. Returns ErrNoSitemap when none of the
// candidates produce a parseable document.
func (c *Client) Discover(ctx context.Context, baseURL string) ([]Entry, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	for _, candidate := range candidatePaths {
		ref := &url.URL{Path: candidate}
		sitemapURL := base.ResolveReference(ref).String()

		urls, fetchErr := c.collect(ctx, sitemapURL, 0)
		if fetchErr != nil {
			c.log.Debug("sitemap candidate failed", "url", sitemapURL, "error", fetchErr.Error())
			continue
		}

		if len(urls) == 0 {
			continue
		}

		entries := make([]Entry, len(urls))
		for i, u := range urls {
			entries[i] = Entry{URL: u, Position: i}
		}

		c.log.Info("sitemap discovered", "url", sitemapURL, "entries", len(entries))

		return entries, nil
	}

	return nil, ErrNoSitemap
}

// collect fetches one sitemap document and returns its URLs, descending
// into sitemap indexes up to maxIndexDepth levels.
func (c *Client) collect(ctx context.Context, sitemapURL string, depth int) ([]string, error) {
	if depth > maxIndexDepth {
		return nil, fmt.Errorf("sitemap index nesting exceeds %d levels", maxIndexDepth)
	}

	res, err := c.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sitemap: http status %d", res.StatusCode)
	}

	doc, parseErr := parseDocument(res.Body)
	if parseErr != nil {
		return nil, parseErr
	}

	if index := xmlquery.FindOne(doc, "//*[local-name()='sitemapindex']"); index != nil {
		return c.collectIndex(ctx, doc, depth)
	}

	return extractLocs(doc, "//*[local-name()='url']/*[local-name()='loc']"), nil
}

// collectIndex resolves every child sitemap of an index document. A failing
// child sitemap is logged and skipped rather than failing the whole index.
func (c *Client) collectIndex(ctx context.Context, doc *xmlquery.Node, depth int) ([]string, error) {
	childURLs := extractLocs(doc, "//*[local-name()='sitemap']/*[local-name()='loc']")
	urls := make([]string, 0)

	for _, childURL := range childURLs {
		childEntries, err := c.collect(ctx, childURL, depth+1)
		if err != nil {
			c.log.Warn("skipping sub-sitemap", "url", childURL, "error", err.Error())
			continue
		}

		urls = append(urls, childEntries...)
	}

	return urls, nil
}

// parseDocument parses sitemap XML, tolerating a BOM or junk bytes before
// the first element.
func parseDocument(body []byte) (*xmlquery.Node, error) {
	trimmed := bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))

	if start := bytes.IndexByte(trimmed, '<'); start > 0 {
		trimmed = trimmed[start:]
	}

	doc, err := xmlquery.Parse(bytes.NewReader(trimmed))
	if err != nil {
		return nil, fmt.Errorf("parse sitemap xml: %w", err)
	}

	return doc, nil
}

// extractLocs returns trimmed non-empty <loc> values for the given XPath.
func extractLocs(doc *xmlquery.Node, xpath string) []string {
	nodes := xmlquery.Find(doc, xpath)
	urls := make([]string, 0, len(nodes))

	for _, node := range nodes {
		loc := strings.TrimSpace(node.InnerText())
		if loc != "" {
			urls = append(urls, loc)
		}
	}

	return urls
}
