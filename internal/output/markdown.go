// internal/output/markdown.go
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/rs/zerolog/log"

	"github.com/trendlens/tokbird/pkg/models"
)

// WriteMarkdown renders records as a human-readable report. Description
// markup captured from the listing is cleaned and converted so links
// and mentions survive; records without markup fall back to plain text.
func WriteMarkdown(path, hashtag string, records []*models.VideoRecord) error {
	converter := md.NewConverter("", true, nil)

	var b strings.Builder
	fmt.Fprintf(&b, "# #%s\n\n", hashtag)
	fmt.Fprintf(&b, "%d videos, scraped %s\n\n", len(records), time.Now().Format("2006-01-02 15:04"))

	for i, rec := range records {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, headline(rec))

		desc := rec.Description
		if rec.DescriptionHTML != "" {
			if converted, err := converter.ConvertString(CleanHTML(rec.DescriptionHTML)); err == nil && strings.TrimSpace(converted) != "" {
				desc = strings.TrimSpace(converted)
			}
		}
		if desc != "" {
			fmt.Fprintf(&b, "%s\n\n", desc)
		}

		if rec.Author != "" {
			if rec.AuthorURL != "" {
				fmt.Fprintf(&b, "- Author: [%s](%s)\n", rec.Author, rec.AuthorURL)
			} else {
				fmt.Fprintf(&b, "- Author: %s\n", rec.Author)
			}
		}
		if stats := statsLine(rec); stats != "" {
			fmt.Fprintf(&b, "- Stats: %s\n", stats)
		}
		if rec.EstimatedReleaseTime != nil {
			fmt.Fprintf(&b, "- Posted: ~%s (%s)\n", rec.EstimatedReleaseTime.Format("2006-01-02"), rec.TimestampRaw)
		} else if rec.TimestampRaw != "" {
			fmt.Fprintf(&b, "- Posted: %s\n", rec.TimestampRaw)
		}
		fmt.Fprintf(&b, "- [Watch](%s)\n\n", rec.URL)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	log.Info().Str("path", path).Int("records", len(records)).Msg("Wrote Markdown report")
	return nil
}

func headline(rec *models.VideoRecord) string {
	desc := strings.TrimSpace(rec.Description)
	if desc == "" {
		if rec.Author != "" {
			return "Video by " + rec.Author
		}
		return "Video " + rec.VideoID
	}
	// Titles stay on one line
	desc = strings.Join(strings.Fields(desc), " ")
	if len(desc) > 80 {
		desc = desc[:77] + "..."
	}
	return desc
}

func statsLine(rec *models.VideoRecord) string {
	var parts []string
	if rec.ViewsRaw != "" {
		parts = append(parts, rec.ViewsRaw+" views")
	}
	if rec.LikesRaw != "" {
		parts = append(parts, rec.LikesRaw+" likes")
	}
	if rec.CommentsRaw != "" {
		parts = append(parts, rec.CommentsRaw+" comments")
	}
	return strings.Join(parts, ", ")
}
