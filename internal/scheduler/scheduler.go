// Package scheduler drives concurrent fetch workers against the frontier,
// applying per-host politeness, retry with exponential backoff, failure
// classification, and per-host circuit breaking. Terminal page records are
// collected for the post-crawl hierarchy stage; per-URL failures never
// abort the run.
package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/intentmap/internal/domain"
	"github.com/jonesrussell/intentmap/internal/extractor"
	"github.com/jonesrussell/intentmap/internal/fetcher"
	"github.com/jonesrussell/intentmap/internal/frontier"
	"github.com/jonesrussell/intentmap/internal/logger"
	"github.com/jonesrussell/intentmap/internal/page"
)

// Default configuration values.
const (
	DefaultConcurrency            = 4
	DefaultPerHostMinInterval     = 500 * time.Millisecond
	DefaultMaxRetries             = 3
	DefaultBackoffBase            = 1 * time.Second
	DefaultBackoffMax             = 30 * time.Second
	DefaultRateLimitCooldown      = 15 * time.Second
	DefaultMaxConsecutiveFailures = 5
	DefaultEmptyPollInterval      = 50 * time.Millisecond
)

// Config configures a crawl scheduler.
type Config struct {
	// Concurrency is the fetch worker pool size.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	// PerHostMinInterval is the minimum delay between requests to one host.
	PerHostMinInterval time.Duration `mapstructure:"per_host_min_interval" yaml:"per_host_min_interval"`
	// MaxRetries bounds retry attempts for transient failures.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	// BackoffBase is the first retry delay; each attempt doubles it.
	BackoffBase time.Duration `mapstructure:"backoff_base" yaml:"backoff_base"`
	// BackoffMax caps the exponential backoff delay.
	BackoffMax time.Duration `mapstructure:"backoff_max" yaml:"backoff_max"`
	// RateLimitCooldown is the extra per-host pause applied after a 429.
	RateLimitCooldown time.Duration `mapstructure:"rate_limit_cooldown" yaml:"rate_limit_cooldown"`
	// MaxConsecutiveFailures opens a host's circuit breaker when reached.
	MaxConsecutiveFailures int `mapstructure:"max_consecutive_failures" yaml:"max_consecutive_failures"`
	// MaxWallClock bounds the whole run; zero means no limit.
	MaxWallClock time.Duration `mapstructure:"max_wall_clock" yaml:"max_wall_clock"`
	// EmptyPollInterval is how long an idle worker waits before rechecking
	// the frontier while other fetches are in flight.
	EmptyPollInterval time.Duration `mapstructure:"empty_poll_interval" yaml:"empty_poll_interval"`
}

// Validate checks the configuration and fills zero values with defaults.
func (c *Config) Validate() error {
	if c.Concurrency < 0 || c.MaxRetries < 0 {
		return errors.New("scheduler limits must be non-negative")
	}

	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}

	if c.PerHostMinInterval == 0 {
		c.PerHostMinInterval = DefaultPerHostMinInterval
	}

	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}

	if c.BackoffBase == 0 {
		c.BackoffBase = DefaultBackoffBase
	}

	if c.BackoffMax == 0 {
		c.BackoffMax = DefaultBackoffMax
	}

	if c.RateLimitCooldown == 0 {
		c.RateLimitCooldown = DefaultRateLimitCooldown
	}

	if c.MaxConsecutiveFailures == 0 {
		c.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}

	if c.EmptyPollInterval == 0 {
		c.EmptyPollInterval = DefaultEmptyPollInterval
	}

	return nil
}

// Scheduler runs crawl rounds. One Scheduler may serve multiple runs; all
// per-run state lives in the run struct handed to the workers.
type Scheduler struct {
	cfg       Config
	fetcher   fetcher.Fetcher
	extractor *extractor.Extractor
	log       logger.Interface
}

// New creates a scheduler with the given collaborators.
func New(cfg Config, f fetcher.Fetcher, ex *extractor.Extractor, log logger.Interface) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if f == nil {
		return nil, errors.New("fetcher cannot be nil")
	}

	if ex == nil {
		return nil, errors.New("extractor cannot be nil")
	}

	if log == nil {
		log = logger.NewNoOp()
	}

	return &Scheduler{
		cfg:       cfg,
		fetcher:   f,
		extractor: ex,
		log:       log.WithComponent("scheduler"),
	}, nil
}

// Result is the outcome of one crawl run.
type Result struct {
	Pages   []domain.Page
	Summary *domain.CrawlSummary
}

// run holds the mutable state shared by one run's workers.
type run struct {
	frontier *frontier.Frontier
	limiters *limiterSet
	breaker  *circuitBreaker

	mu           sync.Mutex
	pages        []domain.Page
	hostFailures map[string]int
}

// Run executes a crawl against the seeded frontier until it drains, a
// limit fires, or ctx is cancelled. On cancellation no pages are returned;
// partially-built state for the run is discarded.
func (s *Scheduler) Run(ctx context.Context, front *frontier.Frontier, baseURL string) (*Result, error) {
	runCtx := ctx
	cancel := context.CancelFunc(func() {})

	if s.cfg.MaxWallClock > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.MaxWallClock)
	}
	defer cancel()

	started := time.Now()
	r := &run{
		frontier:     front,
		limiters:     newLimiterSet(s.cfg.PerHostMinInterval),
		breaker:      newCircuitBreaker(s.cfg.MaxConsecutiveFailures),
		hostFailures: make(map[string]int),
	}

	var wg sync.WaitGroup

	for i := 0; i < s.cfg.Concurrency; i++ {
		wg.Add(1)

		go func(workerID int) {
			defer wg.Done()
			s.worker(runCtx, r, workerID)
		}(i)
	}

	wg.Wait()

	summary := &domain.CrawlSummary{
		RunID:        uuid.NewString(),
		BaseURL:      baseURL,
		StartedAt:    started,
		Elapsed:      time.Since(started),
		HostFailures: r.hostFailures,
	}

	if ctx.Err() != nil {
		// Run-level cancellation: discard partially-built state rather
		// than exposing a half-built result as complete.
		summary.StopReason = domain.StopReasonCancelled
		front.DiscardRemaining()
		summary.Discarded = front.Discarded()

		return &Result{Summary: summary}, ctx.Err()
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		summary.StopReason = domain.StopReasonDeadline
		front.DiscardRemaining()
	} else if front.Discarded() > 0 {
		summary.StopReason = domain.StopReasonMaxPages
	} else {
		summary.StopReason = domain.StopReasonExhausted
	}

	for i := range r.pages {
		switch r.pages[i].Status {
		case domain.PageStatusFetched:
			summary.Fetched++
		case domain.PageStatusFailed:
			summary.Failed++
		case domain.PageStatusSkipped:
			summary.Skipped++
		}
	}
	summary.Discarded = front.Discarded()

	s.log.Info("crawl finished",
		"fetched", summary.Fetched,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"discarded", summary.Discarded,
		"stop_reason", summary.StopReason,
	)

	return &Result{Pages: r.pages, Summary: summary}, nil
}

// worker is a single fetch worker loop.
func (s *Scheduler) worker(ctx context.Context, r *run, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		entry, err := r.frontier.DequeueNext()
		if errors.Is(err, frontier.ErrFrontierEmpty) {
			if r.frontier.IsComplete() {
				return
			}

			if s.sleepOrCancel(ctx) {
				return
			}

			continue
		}

		if err != nil {
			s.log.Error("dequeue failed", "worker_id", workerID, "error", err.Error())
			continue
		}

		s.process(ctx, r, entry)
		r.frontier.MarkDone(entry.URL)
	}
}

// sleepOrCancel waits the empty-poll interval; returns true on cancellation.
func (s *Scheduler) sleepOrCancel(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-time.After(s.cfg.EmptyPollInterval):
		return false
	}
}

// process handles a single dequeued entry through politeness, fetch,
// classification, and page assembly.
func (s *Scheduler) process(ctx context.Context, r *run, entry *frontier.Entry) {
	if r.breaker.IsOpen(entry.Host) {
		skipped := page.BuildSkipped(entry.URL, entry.Depth, time.Now())
		skipped.Discovered = entry.Seq
		r.addPage(skipped)
		r.countHostFailure(entry.Host)

		return
	}

	if waitErr := r.limiters.Get(entry.Host).Wait(ctx); waitErr != nil {
		return
	}

	res, fetchErr := s.fetchWithRetry(ctx, r, entry)

	if ctx.Err() != nil {
		return
	}

	if fetchErr != nil || res == nil || res.StatusCode >= http.StatusBadRequest {
		s.recordFailure(r, entry, res)
		return
	}

	s.recordSuccess(ctx, r, entry, res)
}

// fetchWithRetry fetches the entry, retrying transient failures with
// exponential backoff (base doubled per attempt, capped). 429 responses
// also apply a cooldown to the host's limiter. Permanent failures return
// immediately.
func (s *Scheduler) fetchWithRetry(ctx context.Context, r *run, entry *frontier.Entry) (*fetcher.Result, error) {
	var (
		res     *fetcher.Result
		lastErr error
	)

	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if s.backoffOrCancel(ctx, attempt-1) {
				return res, lastErr
			}
		}

		res, lastErr = s.fetcher.Fetch(ctx, entry.URL)

		if lastErr == nil && res.StatusCode < http.StatusBadRequest {
			return res, nil
		}

		statusCode := 0
		if res != nil {
			statusCode = res.StatusCode
		}

		if !fetcher.IsTransient(lastErr, statusCode) {
			return res, lastErr
		}

		if statusCode == http.StatusTooManyRequests {
			r.limiters.Get(entry.Host).Cooldown(s.cfg.RateLimitCooldown)
		}

		s.log.Debug("transient fetch failure",
			"url", entry.URL,
			"attempt", attempt,
			"status", statusCode,
		)
	}

	return res, lastErr
}

// backoffOrCancel sleeps for the exponential backoff delay of the given
// completed attempt; returns true on cancellation.
func (s *Scheduler) backoffOrCancel(ctx context.Context, attempt int) bool {
	delay := s.cfg.BackoffBase << attempt
	if delay > s.cfg.BackoffMax || delay <= 0 {
		delay = s.cfg.BackoffMax
	}

	select {
	case <-ctx.Done():
		return true
	case <-time.After(delay):
		return false
	}
}

// recordSuccess extracts content, assembles the page record, and enqueues
// outbound links.
func (s *Scheduler) recordSuccess(ctx context.Context, r *run, entry *frontier.Entry, res *fetcher.Result) {
	meta, extractErr := s.extractor.Extract(res.Body)
	if extractErr != nil {
		// Malformed response body is a permanent failure for this URL.
		s.log.Warn("extract failed", "url", entry.URL, "error", extractErr.Error())
		s.recordFailure(r, entry, res)

		return
	}

	r.breaker.RecordSuccess(entry.Host)

	built := page.Build(entry.URL, entry.Depth, res, meta, time.Now())
	built.Discovered = entry.Seq
	r.addPage(built)

	s.enqueueLinks(ctx, r, entry, meta.OutboundLinks)
}

// recordFailure marks the page failed, counts the host failure, and drains
// the host's queued entries when its circuit breaker trips.
func (s *Scheduler) recordFailure(r *run, entry *frontier.Entry, res *fetcher.Result) {
	statusCode := 0
	if res != nil {
		statusCode = res.StatusCode
	}

	failed := page.BuildFailed(entry.URL, entry.Depth, statusCode, time.Now())
	failed.Discovered = entry.Seq
	r.addPage(failed)
	r.countHostFailure(entry.Host)

	if tripped := r.breaker.RecordFailure(entry.Host); tripped {
		s.log.Warn("host circuit opened", "host", entry.Host)

		for _, removed := range r.frontier.RemoveHost(entry.Host) {
			skipped := page.BuildSkipped(removed.URL, removed.Depth, time.Now())
			skipped.Discovered = removed.Seq
			r.addPage(skipped)
			r.countHostFailure(removed.Host)
		}
	}
}

// enqueueLinks offers each outbound link to the frontier at depth+1,
// resolving relative references against the source page.
func (s *Scheduler) enqueueLinks(ctx context.Context, r *run, entry *frontier.Entry, links []string) {
	if ctx.Err() != nil {
		return
	}

	pageURL, parseErr := url.Parse(entry.URL)
	if parseErr != nil {
		return
	}

	for _, link := range links {
		resolved, normErr := frontier.Normalize(link, pageURL)
		if normErr != nil {
			s.log.Debug("dropping malformed link", "url", link, "error", normErr.Error())
			continue
		}

		if _, enqErr := r.frontier.Enqueue(resolved, entry.Depth+1, entry.URL); enqErr != nil {
			s.log.Debug("enqueue rejected", "url", resolved, "error", enqErr.Error())
		}
	}
}

// addPage appends a terminal page record.
func (r *run) addPage(p domain.Page) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pages = append(r.pages, p)
}

// countHostFailure tallies a failed or skipped outcome for the host.
func (r *run) countHostFailure(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hostFailures[host]++
}
