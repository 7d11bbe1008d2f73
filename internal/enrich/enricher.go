// Package enrich fills in fields the listing pages truncate. Records
// flagged as needing enrichment get their detail page fetched and the
// full description and hashtags re-extracted from it.
package enrich

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/trendlens/tokbird/internal/fetch"
	"github.com/trendlens/tokbird/internal/scrape"
	"github.com/trendlens/tokbird/pkg/models"
)

// Options controls batching and concurrency of detail fetches
type Options struct {
	// BatchSize groups detail fetches for progress logging
	BatchSize int
	// MaxConcurrent caps in-flight detail fetches. The shared request
	// limiter still spaces them out; this only bounds memory and
	// connection use.
	MaxConcurrent int
}

// Enricher fetches detail pages for truncated records
type Enricher struct {
	fetcher   fetch.Fetcher
	extractor *scrape.Extractor
	opts      Options
}

// New builds an enricher over the given fetcher
func New(fetcher fetch.Fetcher, extractor *scrape.Extractor, opts Options) *Enricher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	return &Enricher{fetcher: fetcher, extractor: extractor, opts: opts}
}

// Result summarizes an enrichment pass
type Result struct {
	Attempted int
	Enriched  int
	Failed    int
}

// Run enriches every flagged record in place. Records whose flag is
// already clear are untouched, so a second pass over the same slice is
// a no-op. A failed detail fetch leaves the record's listing data and
// flag as they were and moves on; one bad page never aborts the pass.
func (e *Enricher) Run(ctx context.Context, records []*models.VideoRecord) Result {
	var pending []*models.VideoRecord
	for _, rec := range records {
		if rec.NeedsEnrichment {
			pending = append(pending, rec)
		}
	}
	if len(pending) == 0 {
		return Result{}
	}

	log.Info().
		Int("pending", len(pending)).
		Int("total", len(records)).
		Msg("Enriching truncated records")

	var (
		mu     sync.Mutex
		result = Result{Attempted: len(pending)}
		sem    = make(chan struct{}, e.opts.MaxConcurrent)
		wg     sync.WaitGroup
	)

	for start := 0; start < len(pending); start += e.opts.BatchSize {
		end := start + e.opts.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		log.Debug().
			Int("batch_start", start).
			Int("batch_size", len(batch)).
			Msg("Enrichment batch")

		for _, rec := range batch {
			if ctx.Err() != nil {
				break
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(rec *models.VideoRecord) {
				defer wg.Done()
				defer func() { <-sem }()

				ok := e.enrichOne(ctx, rec)
				mu.Lock()
				if ok {
					result.Enriched++
				} else {
					result.Failed++
				}
				mu.Unlock()
			}(rec)
		}
		wg.Wait()

		if ctx.Err() != nil {
			break
		}
	}

	log.Info().
		Int("enriched", result.Enriched).
		Int("failed", result.Failed).
		Msg("Enrichment pass done")

	return result
}

// enrichOne fetches one detail page and swaps in the full description.
// Returns false on any failure, leaving the record unchanged.
func (e *Enricher) enrichOne(ctx context.Context, rec *models.VideoRecord) bool {
	page, err := e.fetcher.Fetch(ctx, fetch.Request{URL: rec.URL})
	if err != nil {
		log.Warn().Err(err).Str("url", rec.URL).Msg("Detail fetch failed, keeping listing data")
		return false
	}
	doc, err := page.Document()
	if err != nil {
		log.Warn().Err(err).Str("url", rec.URL).Msg("Detail page unparseable, keeping listing data")
		return false
	}

	full := e.extractor.Description(doc)
	if full == "" {
		log.Warn().Str("url", rec.URL).Msg("Detail page has no description, keeping listing data")
		return false
	}

	rec.Description = full
	rec.Hashtags = scrape.Hashtags(full)
	rec.NeedsEnrichment = false
	rec.SetSource("description", "detail-page")
	return true
}
