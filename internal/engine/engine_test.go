package engine_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/intentmap/internal/collision"
	"github.com/jonesrussell/intentmap/internal/config"
	"github.com/jonesrussell/intentmap/internal/domain"
	"github.com/jonesrussell/intentmap/internal/engine"
	"github.com/jonesrussell/intentmap/internal/frontier"
	"github.com/jonesrussell/intentmap/internal/intents"
	"github.com/jonesrussell/intentmap/internal/logger"
	"github.com/jonesrussell/intentmap/internal/scheduler"
)

// testSite serves a tiny three-page site with a sitemap.
func testSite(t *testing.T) *httptest.Server {
	t.Helper()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap.xml":
			fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/support</loc></url>
  <url><loc>%s/support/billing</loc></url>
</urlset>`, server.URL, server.URL)
		case "/":
			fmt.Fprint(w, `<html><body><a href="/support">Support</a></body></html>`)
		case "/support":
			fmt.Fprint(w, `<html><head><title>Support</title></head><body><p>Get help</p></body></html>`)
		case "/support/billing":
			fmt.Fprint(w, `<html><head><title>Billing</title></head><body><p>Manage billing</p></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	return server
}

func testConfig() *config.Config {
	return &config.Config{
		Frontier: frontier.Config{MaxDepth: 3, MaxPages: 20},
		Scheduler: scheduler.Config{
			Concurrency:            2,
			PerHostMinInterval:     time.Millisecond,
			MaxRetries:             1,
			BackoffBase:            time.Millisecond,
			BackoffMax:             5 * time.Millisecond,
			RateLimitCooldown:      time.Millisecond,
			MaxConsecutiveFailures: 3,
			EmptyPollInterval:      5 * time.Millisecond,
		},
		Collision:  collision.Options{},
		StorageDir: "",
	}
}

// titleGenerator derives one intent candidate per page from its title.
func titleGenerator() intents.Generator {
	return intents.GeneratorFunc(func(ctx context.Context, page domain.Page) ([]domain.IntentCandidate, error) {
		if page.Title == "" {
			return nil, nil
		}

		label := "handle " + strings.ToLower(page.Title)

		// One-hot on the title's first letter keeps distinct pages
		// orthogonal, so nothing merges by accident.
		embedding := make([]float64, 26)
		if c := strings.ToLower(page.Title)[0]; c >= 'a' && c <= 'z' {
			embedding[c-'a'] = 1
		}

		return []domain.IntentCandidate{{
			Label:     label,
			Questions: []string{"How do I " + label + "?"},
			Embedding: embedding,
		}}, nil
	})
}

func TestEngineRun(t *testing.T) {
	t.Parallel()

	server := testSite(t)

	eng, err := engine.New(testConfig(), nil, titleGenerator(), logger.NewNoOp())
	require.NoError(t, err)

	result, err := eng.Run(context.Background(), server.URL+"/")
	require.NoError(t, err)

	// Sitemap pages plus the base URL.
	assert.Equal(t, 3, result.Summary.Fetched)
	assert.Equal(t, domain.StopReasonExhausted, result.Summary.StopReason)

	// The root page has no title, so only the two support pages yield
	// intents; the billing intent nests under the support intent.
	require.Equal(t, 2, result.Tree.Len())

	supportIDs := result.Tree.IntentsForPage(mustNormalize(t, server.URL+"/support"))
	require.Len(t, supportIDs, 1)
	billingIDs := result.Tree.IntentsForPage(mustNormalize(t, server.URL+"/support/billing"))
	require.Len(t, billingIDs, 1)

	billing := result.Tree.Get(billingIDs[0])
	assert.Equal(t, supportIDs[0], billing.ParentID)
	assert.Equal(t, 1, billing.Depth)
}

func mustNormalize(t *testing.T, raw string) string {
	t.Helper()

	normalized, err := frontier.NormalizeURL(raw)
	require.NoError(t, err)

	return normalized
}

func TestEngineRunWithoutGenerator(t *testing.T) {
	t.Parallel()

	server := testSite(t)

	eng, err := engine.New(testConfig(), nil, nil, logger.NewNoOp())
	require.NoError(t, err)

	result, err := eng.Run(context.Background(), server.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Summary.Fetched)
	assert.Zero(t, result.Tree.Len())
	assert.Empty(t, result.Decisions)
}

func TestEngineRunWithoutSitemap(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			fmt.Fprint(w, `<html><head><title>Home</title></head><body><p>hi</p></body></html>`)
			return
		}

		http.NotFound(w, r)
	}))
	defer server.Close()

	eng, err := engine.New(testConfig(), nil, titleGenerator(), logger.NewNoOp())
	require.NoError(t, err)

	result, err := eng.Run(context.Background(), server.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Summary.Fetched)
	assert.Equal(t, 1, result.Tree.Len())
}

func TestEngineRunRejectsBadBaseURL(t *testing.T) {
	t.Parallel()

	eng, err := engine.New(testConfig(), nil, nil, logger.NewNoOp())
	require.NoError(t, err)

	_, err = eng.Run(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestEngineRequiresConfig(t *testing.T) {
	t.Parallel()

	_, err := engine.New(nil, nil, nil, nil)
	assert.Error(t, err)
}
