// Package crawl implements the crawl command: it runs a full intent-map
// pass against a base URL and reports the results.
package crawl

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/intentmap/internal/config"
	"github.com/jonesrussell/intentmap/internal/domain"
	"github.com/jonesrussell/intentmap/internal/engine"
	"github.com/jonesrussell/intentmap/internal/export"
	"github.com/jonesrussell/intentmap/internal/logger"
	"github.com/jonesrussell/intentmap/internal/storage"
)

const (
	outputFileMode = 0o644
	timeRounding   = time.Millisecond
)

// options holds the crawl command flags.
type options struct {
	maxPages    int
	maxDepth    int
	concurrency int
	fullScan    bool
	jsonOut     string
	csvOut      string
	noSave      bool
}

// Command returns the crawl command.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "crawl <base-url>",
		Short: "Crawl a site and build its intent hierarchy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], *cfgFile, *debug, opts)
		},
	}

	cmd.Flags().IntVar(&opts.maxPages, "max-pages", 0, "override max pages per run")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "override max crawl depth")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "override worker count")
	cmd.Flags().BoolVar(&opts.fullScan, "full-scan", false, "compare all intent pairs, bypassing the locality heuristic")
	cmd.Flags().StringVar(&opts.jsonOut, "out", "", "write the intent tree as JSON to this file")
	cmd.Flags().StringVar(&opts.csvOut, "csv", "", "write the intent tree as CSV to this file")
	cmd.Flags().BoolVar(&opts.noSave, "no-save", false, "skip persisting the run to storage")

	return cmd
}

func run(cmd *cobra.Command, baseURL, cfgFile string, debug bool, opts *options) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	applyOverrides(cfg, debug, opts)

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	eng, err := engine.New(cfg, nil, nil, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := eng.Run(ctx, baseURL)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	renderSummary(result.Summary)
	renderFlaggedPairs(result.Summary.FlaggedPairs)

	if err := writeExports(result, opts); err != nil {
		return err
	}

	if !opts.noSave {
		if err := saveRun(context.Background(), cfg.StorageDir, result); err != nil {
			return err
		}

		log.Info("run saved", "run_id", result.Summary.RunID)
	}

	return nil
}

// applyOverrides copies non-zero command flags over the loaded config.
func applyOverrides(cfg *config.Config, debug bool, opts *options) {
	if debug {
		cfg.Logging.Level = "debug"
	}

	if opts.maxPages > 0 {
		cfg.Frontier.MaxPages = opts.maxPages
	}

	if opts.maxDepth > 0 {
		cfg.Frontier.MaxDepth = opts.maxDepth
	}

	if opts.concurrency > 0 {
		cfg.Scheduler.Concurrency = opts.concurrency
	}

	if opts.fullScan {
		cfg.Collision.FullScan = true
	}
}

func renderSummary(summary *domain.CrawlSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Crawl %s", summary.RunID)

	t.AppendRow(table.Row{"Base URL", summary.BaseURL})
	t.AppendRow(table.Row{"Fetched", summary.Fetched})
	t.AppendRow(table.Row{"Failed", summary.Failed})
	t.AppendRow(table.Row{"Skipped", summary.Skipped})
	t.AppendRow(table.Row{"Discarded", summary.Discarded})
	t.AppendRow(table.Row{"Stop reason", summary.StopReason})
	t.AppendRow(table.Row{"Elapsed", summary.Elapsed.Round(timeRounding)})

	for host, failures := range summary.HostFailures {
		t.AppendRow(table.Row{"Failures on " + host, failures})
	}

	t.Render()
}

func renderFlaggedPairs(pairs [][2]string) {
	if len(pairs) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Flagged for review")
	t.AppendHeader(table.Row{"Intent A", "Intent B"})

	for _, pair := range pairs {
		t.AppendRow(table.Row{pair[0], pair[1]})
	}

	t.Render()
}

func writeExports(result *engine.RunResult, opts *options) error {
	if opts.jsonOut != "" {
		data, err := export.JSON(result.Tree, result.Summary)
		if err != nil {
			return fmt.Errorf("export json: %w", err)
		}

		if err := os.WriteFile(opts.jsonOut, data, outputFileMode); err != nil {
			return fmt.Errorf("write json export: %w", err)
		}
	}

	if opts.csvOut != "" {
		data, err := export.CSV(result.Tree)
		if err != nil {
			return fmt.Errorf("export csv: %w", err)
		}

		if err := os.WriteFile(opts.csvOut, data, outputFileMode); err != nil {
			return fmt.Errorf("write csv export: %w", err)
		}
	}

	return nil
}

func saveRun(ctx context.Context, dir string, result *engine.RunResult) error {
	store, err := storage.Open(dir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	if err := store.SaveRun(ctx, result.Summary, result.Tree); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	return nil
}
