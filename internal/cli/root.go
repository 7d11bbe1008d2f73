// Package cli defines the tokbird command tree
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/trendlens/tokbird/internal/config"
)

// Version is stamped at build time
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "tokbird",
	Short: "Scrape hashtag listings from the TikTok aggregator",
	Long: `tokbird collects public video metadata for a hashtag from the
web aggregator: URLs, descriptions, authors, view and like counts, and
an estimated posting time. Results go to CSV, JSON or a Markdown
report.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	config.RegisterFlags(rootCmd)
	rootCmd.AddCommand(newScrapeCmd())
	rootCmd.AddCommand(newEnrichCmd())
}

// Execute runs the CLI with the given context
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
