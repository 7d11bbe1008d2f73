// internal/cli/context.go
package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/trendlens/tokbird/internal/app"
	"github.com/trendlens/tokbird/internal/config"
	"github.com/trendlens/tokbird/internal/ui"
	"github.com/trendlens/tokbird/pkg/models"
)

// buildApp loads config from flags and environment and wires the
// shared runtime. Callers own Close.
func buildApp(cmd *cobra.Command) (*app.Application, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(cfg)
}

// cleanHashtag strips the # prefix people naturally type
func cleanHashtag(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "#")
}

// parseDateFlag accepts YYYY-MM-DD. endOfDay pushes the time to the
// last instant of that day so end bounds stay inclusive.
func parseDateFlag(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("date %q: want YYYY-MM-DD", value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// printSummary shows run stats on stdout, colored when attached to a
// terminal.
func printSummary(hashtag string, stats models.Stats) {
	fmt.Fprintf(os.Stdout, "\n%s\n", ui.Bold(fmt.Sprintf("#%s", hashtag)))
	fmt.Fprintf(os.Stdout, "  %s %d records (%d pages, %d loads)\n",
		ui.Success("✓"), stats.Records, stats.PagesFetched, stats.Loads)
	if stats.Duplicates > 0 {
		fmt.Fprintf(os.Stdout, "  · %d duplicates collapsed\n", stats.Duplicates)
	}
	if stats.Enriched > 0 || stats.EnrichFailed > 0 {
		fmt.Fprintf(os.Stdout, "  · %d enriched, %d still truncated\n", stats.Enriched, stats.EnrichFailed)
	}
	if stats.ThumbsSaved > 0 || stats.ThumbsFailed > 0 {
		fmt.Fprintf(os.Stdout, "  · %d thumbnails saved, %d failed\n", stats.ThumbsSaved, stats.ThumbsFailed)
	}
	if stats.FilteredOut > 0 {
		fmt.Fprintf(os.Stdout, "  · %d outside the date window\n", stats.FilteredOut)
	}
	if stats.NoReleaseTime > 0 {
		fmt.Fprintf(os.Stdout, "  %s %d records had no release estimate and passed the filter\n",
			ui.Warn("!"), stats.NoReleaseTime)
	}
	if stats.StoppedEarly {
		fmt.Fprintf(os.Stdout, "  %s collection stopped early, results are partial\n", ui.Warn("!"))
	}
}
