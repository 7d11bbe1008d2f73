package scrape

import (
	"testing"
	"time"

	"github.com/trendlens/tokbird/pkg/models"
)

const jsonFallbackHTML = `
<html><body>
<script type="application/json">
{"items":[
  {"url":"/video/clip-7333333333333333333/","description":"from json #fallback","author":"bob","views":"88K"},
  {"url":"/about/","description":"not a video"}
]}
</script>
</body></html>`

const inlineScriptHTML = `
<html><body>
<script>
var feedData = [{"url": "/video/clip-7444444444444444444/", "title": "assigned by script #js"}];
</script>
</body></html>`

func TestRecordsFromJSONScript(t *testing.T) {
	e := NewExtractor("https://urlebird.com")
	records := e.Records(mustDoc(t, jsonFallbackHTML), time.Now())

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.VideoID != "7333333333333333333" {
		t.Errorf("VideoID = %q", rec.VideoID)
	}
	if rec.Author != "bob" {
		t.Errorf("Author = %q", rec.Author)
	}
	if rec.Views == nil || *rec.Views != 88000 {
		t.Errorf("Views = %v, want 88000", rec.Views)
	}
	if rec.FieldSources["url"] != "embedded-json" {
		t.Errorf("url source = %q", rec.FieldSources["url"])
	}
	if len(rec.Hashtags) != 1 || rec.Hashtags[0] != "fallback" {
		t.Errorf("Hashtags = %v", rec.Hashtags)
	}
}

func TestRunawayInlineScriptIsInterrupted(t *testing.T) {
	old := inlineScriptBudget
	inlineScriptBudget = 50 * time.Millisecond
	defer func() { inlineScriptBudget = old }()

	// The infinite loop must be cut off, and the well-behaved script
	// after it must still run.
	page := `<html><body>
<script>while (true) {}</script>
<script>var feedData = [{"url": "/video/clip-7555555555555555555/", "title": "survivor"}];</script>
</body></html>`

	e := NewExtractor("https://urlebird.com")
	doc := mustDoc(t, page)
	done := make(chan []*models.VideoRecord, 1)
	go func() { done <- e.Records(doc, time.Now()) }()

	select {
	case records := <-done:
		if len(records) != 1 || records[0].VideoID != "7555555555555555555" {
			t.Fatalf("records = %+v, want the one from the surviving script", records)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("extractor did not return, runaway script was not interrupted")
	}
}

func TestRecordsFromInlineScript(t *testing.T) {
	e := NewExtractor("https://urlebird.com")
	records := e.Records(mustDoc(t, inlineScriptHTML), time.Now())

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].VideoID != "7444444444444444444" {
		t.Errorf("VideoID = %q", records[0].VideoID)
	}
	if records[0].Description != "assigned by script #js" {
		t.Errorf("Description = %q", records[0].Description)
	}
}
