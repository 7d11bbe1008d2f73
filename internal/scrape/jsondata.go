// internal/scrape/jsondata.go
package scrape

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"

	"github.com/trendlens/tokbird/internal/urlutil"
	"github.com/trendlens/tokbird/pkg/models"
)

// recordsFromScripts is the fallback path for pages whose markup no
// longer matches any card selector. Listing data usually still exists as
// JSON either in application/json script tags or assigned to a global by
// an inline script; both are inspected here.
func recordsFromScripts(doc *goquery.Document, baseURL string, scrapeTime time.Time) []*models.VideoRecord {
	var records []*models.VideoRecord

	doc.Find(`script[type="application/json"]`).Each(func(_ int, s *goquery.Selection) {
		var payload interface{}
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return
		}
		records = append(records, recordsFromValue(payload, baseURL, scrapeTime)...)
	})
	if len(records) > 0 {
		return dedupeRecords(records)
	}

	records = append(records, recordsFromInlineScripts(doc, baseURL, scrapeTime)...)
	return dedupeRecords(records)
}

// inlineScriptBudget bounds each inline script so a runaway loop in
// page-supplied code cannot stall the extractor.
var inlineScriptBudget = 2 * time.Second

// recordsFromInlineScripts executes inline scripts in a sandboxed VM and
// scans any globals they created for video-shaped data.
func recordsFromInlineScripts(doc *goquery.Document, baseURL string, scrapeTime time.Time) []*models.VideoRecord {
	vm := goja.New()
	stubBrowserGlobals(vm)

	baseline := make(map[string]bool)
	for _, k := range vm.GlobalObject().Keys() {
		baseline[k] = true
	}

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("src"); ok {
			return
		}
		src := s.Text()
		if strings.TrimSpace(src) == "" {
			return
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Debug().Interface("panic", r).Msg("Inline script aborted")
				}
			}()
			timer := time.AfterFunc(inlineScriptBudget, func() {
				vm.Interrupt("script budget exceeded")
			})
			defer func() {
				timer.Stop()
				vm.ClearInterrupt()
			}()
			// Scripts reference browser APIs the stub does not cover;
			// partial execution still leaves data assignments behind.
			if _, err := vm.RunString(src); err != nil {
				log.Debug().Err(err).Msg("Inline script failed")
			}
		}()
	})

	var records []*models.VideoRecord
	for _, k := range vm.GlobalObject().Keys() {
		if baseline[k] {
			continue
		}
		v := vm.Get(k)
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			continue
		}
		records = append(records, recordsFromValue(v.Export(), baseURL, scrapeTime)...)
	}
	return records
}

// stubBrowserGlobals gives inline scripts just enough of a DOM to run
// their data assignments without throwing immediately.
func stubBrowserGlobals(vm *goja.Runtime) {
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }

	console := vm.NewObject()
	_ = console.Set("log", noop)
	_ = console.Set("warn", noop)
	_ = console.Set("error", noop)
	_ = vm.Set("console", console)

	document := vm.NewObject()
	_ = document.Set("getElementById", noop)
	_ = document.Set("querySelector", noop)
	_ = document.Set("querySelectorAll", noop)
	_ = document.Set("addEventListener", noop)
	_ = document.Set("createElement", noop)
	_ = vm.Set("document", document)

	window := vm.NewObject()
	_ = window.Set("addEventListener", noop)
	_ = window.Set("location", vm.NewObject())
	_ = vm.Set("window", window)
	_ = vm.Set("self", window)
	_ = vm.Set("navigator", vm.NewObject())
}

// recordsFromValue walks an exported JS value looking for objects that
// carry a video URL, recursing into arrays and nested maps.
func recordsFromValue(v interface{}, baseURL string, scrapeTime time.Time) []*models.VideoRecord {
	switch val := v.(type) {
	case []interface{}:
		var out []*models.VideoRecord
		for _, item := range val {
			out = append(out, recordsFromValue(item, baseURL, scrapeTime)...)
		}
		return out
	case map[string]interface{}:
		if rec := recordFromObject(val, baseURL, scrapeTime); rec != nil {
			return []*models.VideoRecord{rec}
		}
		var out []*models.VideoRecord
		for _, item := range val {
			out = append(out, recordsFromValue(item, baseURL, scrapeTime)...)
		}
		return out
	}
	return nil
}

func recordFromObject(obj map[string]interface{}, baseURL string, scrapeTime time.Time) *models.VideoRecord {
	rawURL := stringField(obj, "url", "video_url", "link", "href")
	if rawURL == "" || !strings.Contains(rawURL, "/video/") {
		return nil
	}

	rec := &models.VideoRecord{
		ScrapeTime:   scrapeTime,
		FieldSources: make(map[string]string),
	}
	rec.URL = urlutil.ResolveURL(baseURL, rawURL)
	rec.VideoID = urlutil.VideoID(rec.URL)
	rec.SetSource("url", "embedded-json")

	if desc := stringField(obj, "description", "desc", "title", "caption"); desc != "" {
		rec.Description = strings.TrimSpace(desc)
		rec.SetSource("description", "embedded-json")
	}
	if author := stringField(obj, "author", "username", "user"); author != "" {
		rec.Author = strings.TrimSpace(author)
		rec.SetSource("author", "embedded-json")
	}
	if views := stringField(obj, "views", "play_count", "plays"); views != "" {
		rec.ViewsRaw = views
		rec.Views = ParseCount(views)
		rec.SetSource("views", "embedded-json")
	}
	if likes := stringField(obj, "likes", "digg_count"); likes != "" {
		rec.LikesRaw = likes
		rec.Likes = ParseCount(likes)
		rec.SetSource("likes", "embedded-json")
	}
	if comments := stringField(obj, "comments", "comment_count"); comments != "" {
		rec.CommentsRaw = comments
		rec.Comments = ParseCount(comments)
		rec.SetSource("comments", "embedded-json")
	}
	if ts := stringField(obj, "time", "timestamp", "created"); ts != "" {
		rec.TimestampRaw = ts
		rec.EstimatedReleaseTime = ParseRelativeTime(ts, scrapeTime)
		rec.SetSource("timestamp", "embedded-json")
	}

	rec.Hashtags = Hashtags(rec.Description)
	rec.NeedsEnrichment = IsTruncated(rec.Description)
	return rec
}

// stringField returns the first present key rendered as a string.
// Numeric values are formatted back to their display form.
func stringField(obj map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if val != "" {
				return val
			}
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		case int64:
			return strconv.FormatInt(val, 10)
		}
	}
	return ""
}

func dedupeRecords(records []*models.VideoRecord) []*models.VideoRecord {
	if len(records) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(records))
	var out []*models.VideoRecord
	for _, r := range records {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	return out
}
