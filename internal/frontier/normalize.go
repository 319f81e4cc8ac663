// Package frontier provides URL canonicalization and the priority-ordered,
// deduplicated work queue that drives a crawl run. URLs are normalized
// before insertion so that the same URL expressed differently maps to one
// frontier entry.
package frontier

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
)

// trackingParams lists query parameters that are stripped during
// normalization. These are advertising and analytics trackers that do not
// affect page content.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"gclsrc":       {},
	"dclid":        {},
	"msclkid":      {},
}

// defaultPorts maps schemes to their default port strings.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// ErrMalformedURL is returned when a URL cannot be canonicalized. Callers
// drop the URL and continue; a malformed link is never fatal for a run.
var ErrMalformedURL = errors.New("malformed url")

// Normalize resolves raw against base (when base is non-nil and raw is a
// relative reference) and applies deterministic transformations so that
// equivalent URLs produce identical strings: lowercased scheme and host,
// default ports removed, fragment removed, dot-segments resolved, a single
// trailing slash stripped from non-root paths, query keys sorted with
// values kept in original order, and tracking parameters stripped.
// Normalize is pure and idempotent.
func Normalize(raw string, base *url.URL) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: empty input", ErrMalformedURL)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrMalformedURL, err)
	}

	if base != nil {
		parsed = base.ResolveReference(parsed)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w: missing scheme or host", ErrMalformedURL)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = normalizeHost(parsed)
	parsed.Fragment = ""
	parsed.RawQuery = buildCleanQuery(parsed.Query())
	parsed.Path = normalizePath(parsed.Path)

	return parsed.String(), nil
}

// NormalizeURL canonicalizes an absolute URL without base resolution.
func NormalizeURL(raw string) (string, error) {
	return Normalize(raw, nil)
}

// URLHash normalizes the given URL and returns its SHA-256 hex digest,
// used as the identity key in the seen set.
func URLHash(raw string) (string, error) {
	normalized, err := NormalizeURL(raw)
	if err != nil {
		return "", fmt.Errorf("url hash: %w", err)
	}

	sum := sha256.Sum256([]byte(normalized))

	return hex.EncodeToString(sum[:]), nil
}

// ExtractHost returns the hostname (without port) from a URL, lowercased.
func ExtractHost(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrMalformedURL, err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w: missing scheme or host", ErrMalformedURL)
	}

	return strings.ToLower(parsed.Hostname()), nil
}

// normalizeHost lowercases the hostname and removes the scheme's default port.
func normalizeHost(u *url.URL) string {
	hostname := strings.ToLower(u.Hostname())
	port := u.Port()

	if port == "" {
		return hostname
	}

	if defaultPort, ok := defaultPorts[strings.ToLower(u.Scheme)]; ok && port == defaultPort {
		return hostname
	}

	return hostname + ":" + port
}

// buildCleanQuery strips tracking parameters and sorts the remaining keys
// alphabetically. Multiple values for one key keep their original order.
// Returns an empty string when no parameters remain after filtering.
func buildCleanQuery(values url.Values) string {
	keys := make([]string, 0, len(values))

	for key := range values {
		if _, isTracking := trackingParams[key]; !isTracking {
			keys = append(keys, key)
		}
	}

	if len(keys) == 0 {
		return ""
	}

	sort.Strings(keys)

	var b strings.Builder

	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}

		for j, val := range values[key] {
			if j > 0 {
				b.WriteByte('&')
			}

			b.WriteString(url.QueryEscape(key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(val))
		}
	}

	return b.String()
}

// normalizePath resolves dot-segments and removes trailing slashes while
// preserving the root "/".
func normalizePath(p string) string {
	if p == "" || p == "/" {
		return "/"
	}

	cleaned := path.Clean(p)
	if cleaned == "/" {
		return "/"
	}

	return strings.TrimRight(cleaned, "/")
}
