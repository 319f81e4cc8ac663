// Package cmd implements the command-line interface for intentmap.
// It provides the root command and subcommands for running crawls and
// inspecting stored runs.
package cmd

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/intentmap/cmd/crawl"
	"github.com/jonesrussell/intentmap/cmd/runs"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "intentmap",
		Short: "Crawl a site and build its intent hierarchy",
		Long: `intentmap crawls a website breadth-first from its sitemap, extracts
page content, and builds a deduplicated hierarchy of user intents.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are visible to viper.
	_ = godotenv.Load()

	_ = rootCmd.ParseFlags(os.Args[1:])

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ~/.intentmap/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(crawl.Command(&cfgFile, &debug))
	rootCmd.AddCommand(runs.Command(&cfgFile))
}
