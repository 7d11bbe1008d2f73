// internal/cli/scrape.go
package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/trendlens/tokbird/internal/config"
	"github.com/trendlens/tokbird/internal/enrich"
	"github.com/trendlens/tokbird/internal/media"
	"github.com/trendlens/tokbird/internal/orchestrator"
	"github.com/trendlens/tokbird/internal/output"
	"github.com/trendlens/tokbird/internal/pagination"
	"github.com/trendlens/tokbird/internal/scrape"
)

func newScrapeCmd() *cobra.Command {
	var (
		maxLoads      int
		startDate     string
		endDate       string
		twoStage      bool
		noEnrich      bool
		concurrent    bool
		batchSize     int
		maxConcurrent int
		workers       int
		thumbnailDir  string
		outputPath    string
		format        string
	)

	cmd := &cobra.Command{
		Use:   "scrape <hashtag>",
		Short: "Collect video records for a hashtag",
		Example: `  tokbird scrape funny
  tokbird scrape "#cats" --max-loads 10 --output cats.csv
  tokbird scrape travel --start 2026-08-01 --end 2026-08-29 --format json
  tokbird scrape music --mode browser --thumbnails thumbs/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashtag := cleanHashtag(args[0])
			if hashtag == "" {
				return fmt.Errorf("empty hashtag")
			}

			start, err := parseDateFlag(startDate, false)
			if err != nil {
				return err
			}
			end, err := parseDateFlag(endDate, true)
			if err != nil {
				return err
			}
			if start != nil && end != nil && end.Before(*start) {
				return fmt.Errorf("end date %s is before start date %s", endDate, startDate)
			}

			application, err := buildApp(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			cfg := application.Config
			ctx := cmd.Context()

			extractor := scrape.NewExtractor(cfg.BaseURL)

			var pager pagination.Pager
			var browserPager *pagination.BrowserPager
			if cfg.Mode == "browser" {
				browser, err := application.Browser()
				if err != nil {
					return fmt.Errorf("start browser: %w", err)
				}
				browserPager = pagination.NewBrowserPager(browser, cfg.BaseURL, hashtag)
				pager = browserPager
			} else {
				pager = pagination.NewAJAXPager(application.Client, cfg.BaseURL, hashtag)
			}

			// Two-stage runs defer enrichment to a later `tokbird
			// enrich` pass over the written CSV.
			enrichNow := !noEnrich && !twoStage

			var enricher *enrich.Enricher
			if enrichNow {
				if !concurrent {
					maxConcurrent = 1
				}
				enricher = enrich.New(application.Client, extractor, enrich.Options{
					BatchSize:     batchSize,
					MaxConcurrent: maxConcurrent,
				})
			}

			var thumbs *media.Downloader
			if thumbnailDir != "" {
				if workers > config.DefaultMaxWorkerLimit {
					workers = config.DefaultMaxWorkerLimit
				}
				thumbs = media.NewDownloader(media.DownloaderOptions{
					Dir:     thumbnailDir,
					Workers: workers,
					Limiter: application.Limiter,
				})
			}

			pipeline := orchestrator.New(pager, extractor, enricher, thumbs, orchestrator.Options{
				Hashtag:       hashtag,
				MaxLoads:      maxLoads,
				StartDate:     start,
				EndDate:       end,
				EnrichEnabled: enrichNow,
			})

			// Keep cookies from the rendered session before the tab
			// goes away with pipeline teardown.
			if browserPager != nil {
				defer func() {
					if cookies, err := browserPager.Cookies(ctx); err == nil {
						application.SaveSession(cookies)
					}
				}()
			}

			result, err := pipeline.Run(ctx)
			if err != nil {
				return err
			}

			if outputPath == "" {
				outputPath = fmt.Sprintf("%s_%s", hashtag, time.Now().Format("20060102_150405"))
			}
			if err := writeOutputs(outputPath, format, hashtag, result); err != nil {
				return err
			}

			printSummary(hashtag, result.Stats)
			if twoStage {
				fmt.Printf("\nRun `tokbird enrich --input %s.csv` to fill truncated descriptions.\n",
					strings.TrimSuffix(outputPath, ".csv"))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxLoads, "max-loads", config.DefaultMaxLoads, "Maximum number of load-more requests")
	cmd.Flags().StringVar(&startDate, "start", "", "Keep videos posted on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "Keep videos posted on or before this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&twoStage, "two-stage", false, "Write the listing CSV now, enrich later with the enrich command")
	cmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "Skip fetching detail pages for truncated descriptions")
	cmd.Flags().BoolVar(&concurrent, "concurrent", false, "Fetch detail pages concurrently during enrichment")
	cmd.Flags().IntVar(&batchSize, "batch-size", config.DefaultBatchSize, "Detail fetches per enrichment batch")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", config.DefaultMaxConcurrent, "Concurrent detail fetches during enrichment")
	cmd.Flags().IntVar(&workers, "workers", config.DefaultMaxWorkers, "Thumbnail download workers")
	cmd.Flags().StringVar(&thumbnailDir, "thumbnails", "", "Download thumbnails into this directory")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path, extension added per format")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format: csv, json, md, or a comma list")

	return cmd
}

func writeOutputs(path, format, hashtag string, result *orchestrator.Result) error {
	base := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(path, ".csv"), ".json"), ".md")
	for _, f := range strings.Split(format, ",") {
		var err error
		switch strings.TrimSpace(strings.ToLower(f)) {
		case "csv":
			err = output.WriteCSV(base+".csv", result.Records)
		case "json":
			err = output.WriteJSON(base+".json", result.Records)
		case "md", "markdown":
			err = output.WriteMarkdown(base+".md", hashtag, result.Records)
		case "":
		default:
			err = fmt.Errorf("unknown format %q", f)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
