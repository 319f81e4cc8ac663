package frontier

import (
	"container/heap"
	"errors"
	"net/url"
	"sync"

	"github.com/jonesrussell/intentmap/internal/logger"
)

// Default scoring and limit values.
const (
	DefaultSitemapBonus       = 10.0
	DefaultDepthPenaltyWeight = 1.0
	DefaultMaxDepth           = 5
	DefaultMaxPages           = 500

	// noSitemapPosition marks entries discovered from links rather than
	// the sitemap.
	noSitemapPosition = -1
)

// ErrFrontierEmpty is returned by DequeueNext when no entry is pending.
// Callers should check with errors.Is; an empty frontier is not terminal
// while other fetches are still in flight.
var ErrFrontierEmpty = errors.New("frontier empty")

// Entry is one unit of crawl work: a canonical URL with the attributes its
// priority is computed from. Entries are created on discovery and consumed
// on dequeue.
type Entry struct {
	URL            string
	Host           string
	Depth          int
	Priority       float64
	SitemapPos     int
	DiscoveredFrom string

	// Seq is the discovery sequence number: the final FIFO ordering
	// tie-break, and the sibling order used by hierarchy placement.
	Seq int

	// index is the heap index, maintained by entryHeap.
	index int
}

// FromSitemap reports whether the entry was seeded from the sitemap.
func (e *Entry) FromSitemap() bool {
	return e.SitemapPos != noSitemapPosition
}

// Seed is one initial candidate URL with its sitemap position. A non-zero
// Priority overrides the computed score for that entry.
type Seed struct {
	URL      string
	Priority float64
	Position int
}

// Config bounds a crawl run and parameterizes priority scoring.
type Config struct {
	// MaxDepth is the deepest link depth accepted into the frontier.
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth"`
	// MaxPages caps the total number of URLs accepted per run.
	MaxPages int `mapstructure:"max_pages" yaml:"max_pages"`
	// AllowedHosts is the domain scope; empty means any host.
	AllowedHosts []string `mapstructure:"allowed_hosts" yaml:"allowed_hosts"`
	// SitemapBonus is added to the priority of sitemap-listed URLs.
	SitemapBonus float64 `mapstructure:"sitemap_bonus" yaml:"sitemap_bonus"`
	// DepthPenaltyWeight scales the per-level priority penalty.
	DepthPenaltyWeight float64 `mapstructure:"depth_penalty_weight" yaml:"depth_penalty_weight"`
}

// Validate checks the configuration and fills zero values with defaults.
func (c *Config) Validate() error {
	if c.MaxDepth < 0 || c.MaxPages < 0 {
		return errors.New("frontier limits must be non-negative")
	}

	if c.MaxDepth == 0 {
		c.MaxDepth = DefaultMaxDepth
	}

	if c.MaxPages == 0 {
		c.MaxPages = DefaultMaxPages
	}

	if c.SitemapBonus == 0 {
		c.SitemapBonus = DefaultSitemapBonus
	}

	if c.DepthPenaltyWeight == 0 {
		c.DepthPenaltyWeight = DefaultDepthPenaltyWeight
	}

	return nil
}

// Frontier is the priority-ordered, deduplicated queue of URLs to crawl.
// At most one live entry exists per canonical URL per run, and a URL is
// never dispatched twice. All methods are safe for concurrent use.
type Frontier struct {
	cfg Config
	log logger.Interface

	mu        sync.Mutex
	pending   entryHeap
	byURL     map[string]*Entry
	seen      map[string]struct{}
	inFlight  int
	accepted  int
	discarded int
	nextSeq   int
	baseURL   *url.URL
}

// New creates a frontier for one crawl run. baseURL provides the context
// for resolving relative discovered links; pass the canonicalized seed URL.
func New(cfg Config, baseURL *url.URL, log logger.Interface) (*Frontier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNoOp()
	}

	return &Frontier{
		cfg:     cfg,
		log:     log.WithComponent("frontier"),
		byURL:   make(map[string]*Entry),
		seen:    make(map[string]struct{}),
		baseURL: baseURL,
	}, nil
}

// SeedEntries bulk-loads initial candidates. Duplicate canonical URLs
// collapse to the highest-priority entry. Returns the number accepted.
func (f *Frontier) SeedEntries(seeds []Seed) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	loaded := 0

	for _, seed := range seeds {
		canonical, err := Normalize(seed.URL, f.baseURL)
		if err != nil {
			f.log.Warn("dropping malformed seed URL", "url", seed.URL, "error", err.Error())
			continue
		}

		host, _ := ExtractHost(canonical)
		if !f.hostAllowed(host) {
			continue
		}

		prio := seed.Priority
		if prio == 0 {
			prio = f.score(0, seed.Position)
		}

		if existing, ok := f.byURL[canonical]; ok {
			if prio > existing.Priority {
				existing.Priority = prio
				if seed.Position < existing.SitemapPos || existing.SitemapPos == noSitemapPosition {
					existing.SitemapPos = seed.Position
				}
				heap.Fix(&f.pending, existing.index)
			}
			continue
		}

		if _, dup := f.seen[canonical]; dup {
			continue
		}

		if f.accepted >= f.cfg.MaxPages {
			f.discarded++
			continue
		}

		f.push(canonical, host, prio, 0, seed.Position, "")
		loaded++
	}

	return loaded
}

// Enqueue offers a discovered URL to the frontier. It returns false without
// error when the URL was already seen this run, exceeds the depth limit,
// falls outside the domain scope, or the page cap has been reached.
func (f *Frontier) Enqueue(rawURL string, depth int, discoveredFrom string) (bool, error) {
	canonical, err := Normalize(rawURL, f.baseURL)
	if err != nil {
		return false, err
	}

	host, hostErr := ExtractHost(canonical)
	if hostErr != nil {
		return false, hostErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, dup := f.seen[canonical]; dup {
		return false, nil
	}

	if depth > f.cfg.MaxDepth {
		return false, nil
	}

	if !f.hostAllowed(host) {
		return false, nil
	}

	if f.accepted >= f.cfg.MaxPages {
		f.discarded++
		return false, nil
	}

	f.push(canonical, host, f.score(depth, noSitemapPosition), depth, noSitemapPosition, discoveredFrom)

	return true, nil
}

// DequeueNext returns the highest-priority pending entry and marks it in
// flight. Ties break by shallower depth, then sitemap position, then
// discovery order, so the dequeue sequence is fully deterministic.
func (f *Frontier) DequeueNext() (*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pending.Len() == 0 {
		return nil, ErrFrontierEmpty
	}

	entry, ok := heap.Pop(&f.pending).(*Entry)
	if !ok {
		return nil, ErrFrontierEmpty
	}

	delete(f.byURL, entry.URL)
	f.inFlight++

	return entry, nil
}

// MarkDone records completion of an in-flight entry.
func (f *Frontier) MarkDone(canonicalURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight > 0 {
		f.inFlight--
	}
}

// RemoveHost drops all pending entries for the given host and returns them,
// used when a host's circuit breaker opens. The removed entries stay in the
// seen set so they cannot be re-enqueued.
func (f *Frontier) RemoveHost(host string) []*Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	removed := make([]*Entry, 0)
	kept := make([]*Entry, 0, f.pending.Len())

	for _, entry := range f.pending {
		if entry.Host == host {
			removed = append(removed, entry)
			delete(f.byURL, entry.URL)
		} else {
			kept = append(kept, entry)
		}
	}

	for i, entry := range kept {
		entry.index = i
	}

	f.pending = kept
	heap.Init(&f.pending)

	return removed
}

// DiscardRemaining drops all pending entries, recording them as discarded.
// Called when a run stops at a limit before draining the frontier.
func (f *Frontier) DiscardRemaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := f.pending.Len()
	for _, entry := range f.pending {
		delete(f.byURL, entry.URL)
	}

	f.pending = nil
	f.discarded += n

	return n
}

// IsComplete reports whether the crawl is finished: nothing pending and
// nothing in flight.
func (f *Frontier) IsComplete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.pending.Len() == 0 && f.inFlight == 0
}

// PendingCount returns the number of queued entries.
func (f *Frontier) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.pending.Len()
}

// Accepted returns the total number of URLs accepted this run.
func (f *Frontier) Accepted() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.accepted
}

// Discarded returns the number of URLs rejected or dropped at a limit.
func (f *Frontier) Discarded() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.discarded
}

// score computes an entry's priority as a pure function of its attributes:
// a fixed bonus for sitemap-listed URLs minus a depth penalty.
func (f *Frontier) score(depth, sitemapPos int) float64 {
	bonus := 0.0
	if sitemapPos != noSitemapPosition {
		bonus = f.cfg.SitemapBonus
	}

	return bonus - f.cfg.DepthPenaltyWeight*float64(depth)
}

// hostAllowed checks the domain scope. Must be called with f.mu held or
// before the frontier is shared.
func (f *Frontier) hostAllowed(host string) bool {
	if len(f.cfg.AllowedHosts) == 0 {
		return true
	}

	for _, allowed := range f.cfg.AllowedHosts {
		if host == allowed {
			return true
		}
	}

	return false
}

// push inserts a new entry. Caller must hold f.mu and have checked limits
// and the seen set.
func (f *Frontier) push(canonical, host string, priority float64, depth, sitemapPos int, discoveredFrom string) {
	entry := &Entry{
		URL:            canonical,
		Host:           host,
		Depth:          depth,
		Priority:       priority,
		SitemapPos:     sitemapPos,
		DiscoveredFrom: discoveredFrom,
		Seq:            f.nextSeq,
	}

	f.nextSeq++
	f.seen[canonical] = struct{}{}
	f.byURL[canonical] = entry
	f.accepted++
	heap.Push(&f.pending, entry)
}
