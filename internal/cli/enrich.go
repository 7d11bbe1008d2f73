// internal/cli/enrich.go
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trendlens/tokbird/internal/config"
	"github.com/trendlens/tokbird/internal/enrich"
	"github.com/trendlens/tokbird/internal/output"
	"github.com/trendlens/tokbird/internal/scrape"
	"github.com/trendlens/tokbird/internal/ui"
)

func newEnrichCmd() *cobra.Command {
	var (
		inputPath     string
		outputPath    string
		batchSize     int
		maxConcurrent int
	)

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Fetch full descriptions for a previously scraped CSV",
		Long: `enrich re-reads a CSV produced by scrape, fetches the detail
page of every record still flagged as truncated, and writes the file
back with full descriptions and hashtags. Records already enriched are
left alone, so the command is safe to re-run after partial failures.`,
		Example: `  tokbird enrich --input cats.csv
  tokbird enrich --input cats.csv --output cats_full.csv --max-concurrent 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return fmt.Errorf("--input is required")
			}
			if outputPath == "" {
				outputPath = inputPath
			}

			records, err := output.ReadCSV(inputPath)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("%s has no records", inputPath)
			}

			application, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			extractor := scrape.NewExtractor(application.Config.BaseURL)
			enricher := enrich.New(application.Client, extractor, enrich.Options{
				BatchSize:     batchSize,
				MaxConcurrent: maxConcurrent,
			})

			result := enricher.Run(cmd.Context(), records)

			if err := output.WriteCSV(outputPath, records); err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "%s %d enriched, %d failed, %d untouched → %s\n",
				ui.Success("✓"), result.Enriched, result.Failed,
				len(records)-result.Attempted, outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "CSV produced by scrape (required)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Where to write the enriched CSV (default: overwrite input)")
	cmd.Flags().IntVar(&batchSize, "batch-size", config.DefaultBatchSize, "Detail fetches per batch")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", config.DefaultMaxConcurrent, "Concurrent detail fetches")

	return cmd
}
