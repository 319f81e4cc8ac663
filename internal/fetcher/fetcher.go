// Package fetcher defines the page-fetch collaborator interface and a
// default net/http implementation. The engine treats any Fetcher as opaque;
// rendering and transport concerns live behind this boundary.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// maxResponseBodyBytes limits the size of fetched page responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// DefaultTimeout is the per-request timeout when none is configured.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent identifies the crawler to target sites.
const DefaultUserAgent = "intentmap/1.0"

// Transport-level failures surfaced to the scheduler's retry classifier.
var (
	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("fetch timeout")

	// ErrConnectionFailed indicates the connection could not be
	// established or was reset.
	ErrConnectionFailed = errors.New("connection failed")
)

// Result is the outcome of a successful HTTP exchange. A non-2xx status is
// still a Result; classification into transient or permanent failures is
// the scheduler's concern.
type Result struct {
	StatusCode int
	Body       []byte
	FinalURL   string
}

// Fetcher retrieves one page. Implementations must honor ctx cancellation
// and return promptly when it fires.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Result, error)
}

// HTTPFetcher is the default Fetcher over net/http.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// Config configures the HTTP fetcher.
type Config struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// UserAgent is sent on every request.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

// NewHTTPFetcher creates a fetcher with the given configuration.
func NewHTTPFetcher(cfg Config) *HTTPFetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	return &HTTPFetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
	}
}

// Fetch performs the HTTP GET request for the given URL.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if reqErr != nil {
		return nil, fmt.Errorf("create request: %w", reqErr)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, doErr := f.client.Do(req)
	if doErr != nil {
		return nil, classifyTransportError(doErr)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseBodyBytes)

	body, readErr := io.ReadAll(limited)
	if readErr != nil {
		return nil, fmt.Errorf("read response body: %w", readErr)
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Body:       body,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// classifyTransportError maps transport failures onto the package sentinels
// so the scheduler can classify them with errors.Is.
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s", ErrTimeout, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %s", ErrConnectionFailed, err)
}

// IsTransient reports whether a fetch error or HTTP status should be
// retried: timeouts, connection failures, 5xx responses, and 429.
func IsTransient(err error, statusCode int) bool {
	if err != nil {
		return errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnectionFailed)
	}

	return statusCode == http.StatusTooManyRequests || statusCode >= http.StatusInternalServerError
}
