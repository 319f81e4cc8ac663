// Package engine orchestrates one intent-map run: sitemap seeding, the
// crawl itself, intent generation through the external collaborator, and
// the post-crawl hierarchy and collision stages.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/jonesrussell/intentmap/internal/collision"
	"github.com/jonesrussell/intentmap/internal/config"
	"github.com/jonesrussell/intentmap/internal/domain"
	"github.com/jonesrussell/intentmap/internal/extractor"
	"github.com/jonesrussell/intentmap/internal/fetcher"
	"github.com/jonesrussell/intentmap/internal/frontier"
	"github.com/jonesrussell/intentmap/internal/hierarchy"
	"github.com/jonesrussell/intentmap/internal/intents"
	"github.com/jonesrussell/intentmap/internal/logger"
	"github.com/jonesrussell/intentmap/internal/scheduler"
	"github.com/jonesrussell/intentmap/internal/sitemap"
)

// Engine runs intent-map crawls. All state is per-run; one Engine may
// serve multiple independent runs.
type Engine struct {
	cfg       *config.Config
	fetcher   fetcher.Fetcher
	extractor *extractor.Extractor
	sitemaps  *sitemap.Client
	generator intents.Generator
	log       logger.Interface
}

// RunResult bundles everything a finished run produces.
type RunResult struct {
	Summary   *domain.CrawlSummary
	Pages     []domain.Page
	Tree      *domain.IntentTree
	Decisions []domain.MergeDecision
}

// New creates an engine. The generator may be nil, in which case the run
// produces pages but an empty tree.
func New(cfg *config.Config, f fetcher.Fetcher, gen intents.Generator, log logger.Interface) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if f == nil {
		f = fetcher.NewHTTPFetcher(cfg.Fetcher)
	}

	if log == nil {
		log = logger.NewNoOp()
	}

	return &Engine{
		cfg:       cfg,
		fetcher:   f,
		extractor: extractor.New(),
		sitemaps:  sitemap.NewClient(f, log),
		generator: gen,
		log:       log.WithComponent("engine"),
	}, nil
}

// Run executes a full intent-map pass against baseURL. On cancellation the
// partially-built result is discarded and the context error returned.
func (e *Engine) Run(ctx context.Context, baseURL string) (*RunResult, error) {
	canonical, err := frontier.NormalizeURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("normalize base url: %w", err)
	}

	base, parseErr := url.Parse(canonical)
	if parseErr != nil {
		return nil, fmt.Errorf("parse base url: %w", parseErr)
	}

	frontierCfg := e.cfg.Frontier
	if len(frontierCfg.AllowedHosts) == 0 {
		host, hostErr := frontier.ExtractHost(canonical)
		if hostErr != nil {
			return nil, hostErr
		}

		frontierCfg.AllowedHosts = []string{host}
	}

	front, frontErr := frontier.New(frontierCfg, base, e.log)
	if frontErr != nil {
		return nil, frontErr
	}

	e.seed(ctx, front, canonical)

	sched, schedErr := scheduler.New(e.cfg.Scheduler, e.fetcher, e.extractor, e.log)
	if schedErr != nil {
		return nil, schedErr
	}

	crawl, crawlErr := sched.Run(ctx, front, canonical)
	if crawlErr != nil {
		return nil, crawlErr
	}

	candidates, candErr := e.generateCandidates(ctx, crawl.Pages)
	if candErr != nil {
		return nil, candErr
	}

	tree, treeErr := hierarchy.Build(crawl.Pages, candidates)
	if treeErr != nil {
		return nil, treeErr
	}

	merged, mergeErr := collision.DetectAndMerge(tree, e.cfg.Collision)
	if mergeErr != nil {
		return nil, mergeErr
	}

	crawl.Summary.FlaggedPairs = merged.FlaggedPairs

	return &RunResult{
		Summary:   crawl.Summary,
		Pages:     crawl.Pages,
		Tree:      merged.Tree,
		Decisions: merged.Decisions,
	}, nil
}

// seed loads sitemap entries into the frontier, falling back to the base
// URL alone when no sitemap exists. Sitemap failure is never fatal.
func (e *Engine) seed(ctx context.Context, front *frontier.Frontier, canonical string) {
	entries, err := e.sitemaps.Discover(ctx, canonical)
	if err != nil {
		if !errors.Is(err, sitemap.ErrNoSitemap) {
			e.log.Warn("sitemap discovery failed", "error", err.Error())
		}

		if _, enqErr := front.Enqueue(canonical, 0, ""); enqErr != nil {
			e.log.Warn("seeding base url failed", "url", canonical, "error", enqErr.Error())
		}

		return
	}

	seeds := make([]frontier.Seed, len(entries))
	for i, entry := range entries {
		seeds[i] = frontier.Seed{URL: entry.URL, Position: entry.Position}
	}

	loaded := front.SeedEntries(seeds)
	e.log.Info("frontier seeded", "sitemap_entries", len(entries), "loaded", loaded)

	// The base URL itself may not appear in the sitemap.
	_, _ = front.Enqueue(canonical, 0, "")
}

// generateCandidates invokes the external intent generator for every
// fetched page. A failing generator call skips that page's intents rather
// than aborting the run.
func (e *Engine) generateCandidates(ctx context.Context, pages []domain.Page) (map[string][]domain.IntentCandidate, error) {
	candidates := make(map[string][]domain.IntentCandidate)

	if e.generator == nil {
		return candidates, nil
	}

	for _, pg := range pages {
		if pg.Status != domain.PageStatusFetched {
			continue
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		pageCandidates, err := e.generator.Generate(ctx, pg)
		if err != nil {
			e.log.Warn("intent generation failed", "url", pg.URL, "error", err.Error())
			continue
		}

		if len(pageCandidates) > 0 {
			candidates[pg.URL] = pageCandidates
		}
	}

	return candidates, nil
}
