// Package orchestrator runs the full scrape pipeline for one hashtag:
// first page, follow-up loads, dedupe, enrichment, thumbnails and the
// date filter, accumulating stats along the way.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trendlens/tokbird/internal/enrich"
	"github.com/trendlens/tokbird/internal/media"
	"github.com/trendlens/tokbird/internal/pagination"
	"github.com/trendlens/tokbird/internal/scrape"
	"github.com/trendlens/tokbird/pkg/models"
)

// Options selects what the pipeline does for one run
type Options struct {
	Hashtag  string
	MaxLoads int

	// StartDate and EndDate bound the estimated release time,
	// inclusive on both ends. Nil means unbounded on that side.
	StartDate *time.Time
	EndDate   *time.Time

	// EnrichEnabled fetches detail pages for truncated descriptions as
	// part of the run. When false, flagged records are written as-is
	// for a later enrichment pass.
	EnrichEnabled bool
}

// Result is what a run produced, possibly partial
type Result struct {
	Records []*models.VideoRecord
	Stats   models.Stats
}

// Orchestrator wires the pipeline stages together
type Orchestrator struct {
	pager     pagination.Pager
	extractor *scrape.Extractor
	enricher  *enrich.Enricher
	thumbs    *media.Downloader
	opts      Options
}

// New assembles a pipeline. enricher and thumbs may be nil when those
// stages are disabled.
func New(pager pagination.Pager, extractor *scrape.Extractor, enricher *enrich.Enricher, thumbs *media.Downloader, opts Options) *Orchestrator {
	if opts.MaxLoads < 0 {
		opts.MaxLoads = 0
	}
	return &Orchestrator{
		pager:     pager,
		extractor: extractor,
		enricher:  enricher,
		thumbs:    thumbs,
		opts:      opts,
	}
}

// Run executes the pipeline. A failed follow-up load ends collection
// but the records gathered up to that point still flow through the
// remaining stages; only a failed first page is a hard error.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	defer o.pager.Close()

	stats := models.Stats{}
	seen := make(map[string]bool)
	var records []*models.VideoRecord

	collect := func(batch []*models.VideoRecord) {
		for _, rec := range batch {
			if seen[rec.URL] {
				stats.Duplicates++
				continue
			}
			seen[rec.URL] = true
			records = append(records, rec)
		}
	}

	log.Info().
		Str("hashtag", o.opts.Hashtag).
		Int("max_loads", o.opts.MaxLoads).
		Msg("Starting scrape")

	doc, status, err := o.pager.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("first page of #%s: %w", o.opts.Hashtag, err)
	}
	stats.PagesFetched++
	collect(o.extractor.Records(doc, time.Now()))

	for status == pagination.StatusMore && o.pager.Loads() < o.opts.MaxLoads {
		if ctx.Err() != nil {
			stats.StoppedEarly = true
			break
		}

		doc, status, err = o.pager.Next(ctx)
		if err != nil {
			log.Warn().Err(err).
				Int("loads", o.pager.Loads()).
				Int("records", len(records)).
				Msg("Follow-up load failed, keeping partial results")
			stats.StoppedEarly = true
			break
		}
		if doc != nil {
			stats.PagesFetched++
			collect(o.extractor.Records(doc, time.Now()))
		}
	}
	stats.Loads = o.pager.Loads()
	stats.Records = len(records)

	log.Info().
		Int("records", len(records)).
		Int("loads", stats.Loads).
		Int("duplicates", stats.Duplicates).
		Str("status", status.String()).
		Msg("Collection done")

	if o.opts.EnrichEnabled && o.enricher != nil && len(records) > 0 {
		res := o.enricher.Run(ctx, records)
		stats.Enriched = res.Enriched
		stats.EnrichFailed = res.Failed
	}

	if o.thumbs != nil && len(records) > 0 {
		res, err := o.thumbs.Run(ctx, records)
		if err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("Thumbnail pass failed")
		}
		stats.ThumbsSaved = res.Saved
		stats.ThumbsFailed = res.Failed
	}

	records = o.filterByDate(records, &stats)
	stats.Records = len(records)

	return &Result{Records: records, Stats: stats}, nil
}

// filterByDate keeps records whose estimated release time falls within
// the configured window, inclusive. Records without an estimate always
// pass; the posting time is an estimate from a coarse display string,
// so absence is not evidence the video is out of range.
func (o *Orchestrator) filterByDate(records []*models.VideoRecord, stats *models.Stats) []*models.VideoRecord {
	if o.opts.StartDate == nil && o.opts.EndDate == nil {
		return records
	}

	var kept []*models.VideoRecord
	for _, rec := range records {
		if rec.EstimatedReleaseTime == nil {
			stats.NoReleaseTime++
			kept = append(kept, rec)
			continue
		}
		t := *rec.EstimatedReleaseTime
		if o.opts.StartDate != nil && t.Before(*o.opts.StartDate) {
			stats.FilteredOut++
			continue
		}
		if o.opts.EndDate != nil && t.After(*o.opts.EndDate) {
			stats.FilteredOut++
			continue
		}
		kept = append(kept, rec)
	}

	if stats.NoReleaseTime > 0 {
		log.Warn().
			Int("count", stats.NoReleaseTime).
			Msg("Records without a release estimate passed the date filter")
	}
	log.Info().
		Int("kept", len(kept)).
		Int("filtered_out", stats.FilteredOut).
		Msg("Date filter applied")

	return kept
}
