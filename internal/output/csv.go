// Package output renders scraped records to files. CSV is the primary
// format; JSON and Markdown reports are also available.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trendlens/tokbird/pkg/models"
)

// csvColumns is the stable column order. Raw display strings sit next
// to their parsed forms so downstream consumers can re-parse if needed.
var csvColumns = []string{
	"url",
	"video_id",
	"scrape_time",
	"timestamp",
	"estimated_release_time",
	"views_raw",
	"likes_raw",
	"comments_raw",
	"views",
	"likes",
	"comments",
	"author",
	"author_url",
	"description_and_hashtags",
	"hashtags_str",
	"needs_enrichment",
}

// WriteCSV writes records to path, overwriting any existing file
func WriteCSV(path string, records []*models.VideoRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{
			rec.URL,
			rec.VideoID,
			rec.ScrapeTime.Format(time.RFC3339),
			rec.TimestampRaw,
			formatTimePtr(rec.EstimatedReleaseTime),
			rec.ViewsRaw,
			rec.LikesRaw,
			rec.CommentsRaw,
			formatIntPtr(rec.Views),
			formatIntPtr(rec.Likes),
			formatIntPtr(rec.Comments),
			rec.Author,
			rec.AuthorURL,
			rec.Description,
			rec.HashtagsJoined(),
			strconv.FormatBool(rec.NeedsEnrichment),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	log.Info().Str("path", path).Int("records", len(records)).Msg("Wrote CSV")
	return nil
}

// ReadCSV loads records previously written by WriteCSV. Only the fields
// the enrichment pass needs are restored faithfully; parsed numbers and
// times come back from their columns, missing values stay nil.
func ReadCSV(path string) ([]*models.VideoRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	idx := make(map[string]int, len(rows[0]))
	for i, col := range rows[0] {
		idx[strings.TrimSpace(col)] = i
	}
	if _, ok := idx["url"]; !ok {
		return nil, fmt.Errorf("%s: missing url column", path)
	}

	field := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []*models.VideoRecord
	for _, row := range rows[1:] {
		rec := &models.VideoRecord{
			URL:          field(row, "url"),
			VideoID:      field(row, "video_id"),
			TimestampRaw: field(row, "timestamp"),
			ViewsRaw:     field(row, "views_raw"),
			LikesRaw:     field(row, "likes_raw"),
			CommentsRaw:  field(row, "comments_raw"),
			Author:       field(row, "author"),
			AuthorURL:    field(row, "author_url"),
			Description:  field(row, "description_and_hashtags"),
			FieldSources: make(map[string]string),
		}
		if rec.URL == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, field(row, "scrape_time")); err == nil {
			rec.ScrapeTime = t
		}
		rec.EstimatedReleaseTime = parseTimeField(field(row, "estimated_release_time"))
		rec.Views = parseIntField(field(row, "views"))
		rec.Likes = parseIntField(field(row, "likes"))
		rec.Comments = parseIntField(field(row, "comments"))
		if tags := field(row, "hashtags_str"); tags != "" {
			for _, t := range strings.Split(tags, ",") {
				if t = strings.TrimSpace(t); t != "" {
					rec.Hashtags = append(rec.Hashtags, t)
				}
			}
		}
		rec.NeedsEnrichment = field(row, "needs_enrichment") == "true"
		records = append(records, rec)
	}
	return records, nil
}

func formatIntPtr(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func parseIntField(s string) *int64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func parseTimeField(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
