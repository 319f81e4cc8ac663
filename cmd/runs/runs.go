// Package runs implements the runs command, which lists crawl runs
// persisted in local storage.
package runs

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/intentmap/internal/config"
	"github.com/jonesrussell/intentmap/internal/storage"
)

// Command returns the runs command.
func Command(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List stored crawl runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, *cfgFile)
		},
	}
}

func run(cmd *cobra.Command, cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.StorageDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	summaries, err := store.ListRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Println("no stored runs")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run ID", "Base URL", "Started", "Fetched", "Failed", "Skipped", "Stop reason"})

	for _, s := range summaries {
		t.AppendRow(table.Row{
			s.RunID,
			s.BaseURL,
			s.StartedAt.Format(time.RFC3339),
			s.Fetched,
			s.Failed,
			s.Skipped,
			s.StopReason,
		})
	}

	t.Render()

	return nil
}
