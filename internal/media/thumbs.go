// Package media downloads thumbnail images for scraped records
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/trendlens/tokbird/internal/ratelimit"
	"github.com/trendlens/tokbird/pkg/models"
)

// DownloaderOptions configures the thumbnail worker pool
type DownloaderOptions struct {
	Dir     string
	Workers int
	Timeout time.Duration
	Limiter ratelimit.Limiter
}

// Downloader saves record thumbnails to a directory, one file per video
// ID, skipping files that already exist.
type Downloader struct {
	opts   DownloaderOptions
	client *http.Client
}

// NewDownloader builds a downloader writing into opts.Dir
func NewDownloader(opts DownloaderOptions) *Downloader {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewShared(0)
	}
	return &Downloader{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

// Result counts the outcome of a download pass
type Result struct {
	Saved   int
	Skipped int
	Failed  int
}

// Run downloads thumbnails for every record that has one. Failures are
// logged and counted, never fatal.
func (d *Downloader) Run(ctx context.Context, records []*models.VideoRecord) (Result, error) {
	var todo []*models.VideoRecord
	for _, rec := range records {
		if rec.ThumbnailURL != "" && rec.VideoID != "" {
			todo = append(todo, rec)
		}
	}
	if len(todo) == 0 {
		return Result{}, nil
	}

	if err := os.MkdirAll(d.opts.Dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create thumbnail dir: %w", err)
	}

	bar := progressbar.Default(int64(len(todo)), "thumbnails")

	var (
		mu     sync.Mutex
		result Result
		wg     sync.WaitGroup
		sem    = make(chan struct{}, d.opts.Workers)
	)

	for _, rec := range todo {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(rec *models.VideoRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			defer bar.Add(1)

			saved, err := d.downloadOne(ctx, rec)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed++
				log.Warn().Err(err).Str("video_id", rec.VideoID).Msg("Thumbnail download failed")
			case saved:
				result.Saved++
			default:
				result.Skipped++
			}
		}(rec)
	}
	wg.Wait()
	_ = bar.Finish()

	log.Info().
		Int("saved", result.Saved).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Thumbnail pass done")

	return result, ctx.Err()
}

func (d *Downloader) downloadOne(ctx context.Context, rec *models.VideoRecord) (bool, error) {
	path := filepath.Join(d.opts.Dir, rec.VideoID+".jpg")
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	if err := d.opts.Limiter.Wait(ctx); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rec.ThumbnailURL, nil)
	if err != nil {
		return false, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("thumbnail %s: status %d", rec.ThumbnailURL, resp.StatusCode)
	}

	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return false, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return false, err
	}
	return true, os.Rename(tmp, path)
}
