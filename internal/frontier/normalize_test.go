package frontier_test

import (
	"net/url"
	"testing"

	"github.com/jonesrussell/intentmap/internal/frontier"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		// Scheme and host normalization
		{"lowercase scheme", "HTTP://Example.com/Path", "http://example.com/Path", false},
		{"lowercase host", "https://EXAMPLE.COM/path", "https://example.com/path", false},
		{"scheme preserved", "http://example.com/path", "http://example.com/path", false},

		// Port handling
		{"remove default https port", "https://example.com:443/path", "https://example.com/path", false},
		{"remove default http port", "http://example.com:80/path", "http://example.com/path", false},
		{"keep non-default port", "https://example.com:8080/path", "https://example.com:8080/path", false},

		// Path normalization
		{"remove trailing slash", "https://example.com/path/", "https://example.com/path", false},
		{"keep root slash", "https://example.com/", "https://example.com/", false},
		{"collapse double root slash", "https://example.com//", "https://example.com/", false},
		{"collapse dot root", "https://example.com/.", "https://example.com/", false},
		{"resolve dot segments", "https://example.com/a/b/../c", "https://example.com/a/c", false},
		{"resolve current dir segments", "https://example.com/a/./b", "https://example.com/a/b", false},

		// Fragment removal
		{"remove fragment", "https://example.com/path#section", "https://example.com/path", false},

		// Query parameter handling
		{"sort query params", "https://example.com/path?z=1&a=2", "https://example.com/path?a=2&z=1", false},
		{"repeated key keeps value order", "https://example.com/p?a=2&a=1", "https://example.com/p?a=2&a=1", false},
		{"strip utm params", "https://example.com/path?utm_source=twitter&id=1", "https://example.com/path?id=1", false},
		{"strip fbclid", "https://example.com/path?fbclid=abc123&id=1", "https://example.com/path?id=1", false},
		{"empty query after stripping", "https://example.com/path?utm_source=x", "https://example.com/path", false},

		// Error cases
		{"empty string", "", "", true},
		{"invalid url", "://not-a-url", "", true},
		{"missing scheme", "example.com/path", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := frontier.NormalizeURL(tt.input)

			if tt.wantErr {
				if err == nil {
					t.Errorf("NormalizeURL(%q) expected error, got nil", tt.input)
				}
				return
			}

			if err != nil {
				t.Errorf("NormalizeURL(%q) unexpected error: %v", tt.input, err)
				return
			}

			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"HTTPS://Example.com:443/Docs/?b=2&a=1&utm_source=x#frag",
		"http://example.com/a/b/../c/",
		"https://example.com/",
		"https://example.com//",
		"https://example.com/.",
	}

	for _, input := range inputs {
		once, err := frontier.NormalizeURL(input)
		if err != nil {
			t.Fatalf("NormalizeURL(%q) unexpected error: %v", input, err)
		}

		twice, err := frontier.NormalizeURL(once)
		if err != nil {
			t.Fatalf("NormalizeURL(%q) unexpected error: %v", once, err)
		}

		if once != twice {
			t.Errorf("normalization not idempotent: %q -> %q -> %q", input, once, twice)
		}
	}
}

func TestNormalizeRelative(t *testing.T) {
	base, err := url.Parse("https://example.com/docs/guide")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"relative path", "pricing", "https://example.com/docs/pricing"},
		{"absolute path", "/about", "https://example.com/about"},
		{"parent traversal", "../support/billing", "https://example.com/support/billing"},
		{"protocol relative", "//example.com/faq", "https://example.com/faq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := frontier.Normalize(tt.input, base)
			if err != nil {
				t.Fatalf("Normalize(%q) unexpected error: %v", tt.input, err)
			}

			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestURLHash(t *testing.T) {
	h1, err := frontier.URLHash("https://example.com/path?b=2&a=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h2, err := frontier.URLHash("https://EXAMPLE.com/path/?a=1&b=2#x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if h1 != h2 {
		t.Errorf("equivalent URLs hash differently: %s vs %s", h1, h2)
	}

	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h1))
	}
}
