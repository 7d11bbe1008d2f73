package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/trendlens/tokbird/internal/pagination"
	"github.com/trendlens/tokbird/internal/scrape"
)

// fakePager replays a fixed sequence of pages
type fakePager struct {
	pages  []pageStep
	loads  int
	closed bool
}

type pageStep struct {
	html   string
	status pagination.Status
	err    error
}

func (p *fakePager) Start(context.Context) (*goquery.Document, pagination.Status, error) {
	return p.step(0)
}

func (p *fakePager) Next(context.Context) (*goquery.Document, pagination.Status, error) {
	p.loads++
	return p.step(p.loads)
}

func (p *fakePager) step(i int) (*goquery.Document, pagination.Status, error) {
	if i >= len(p.pages) {
		return nil, pagination.StatusExhausted, nil
	}
	s := p.pages[i]
	if s.err != nil {
		return nil, s.status, s.err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.html))
	if err != nil {
		return nil, pagination.StatusStoppedEarly, err
	}
	return doc, s.status, nil
}

func (p *fakePager) Loads() int { return p.loads }
func (p *fakePager) Close()     { p.closed = true }

// cardPage builds a listing page. Each entry is "videoID" or
// "videoID|timestamp text".
func cardPage(entries ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div id="thumbs">`)
	for _, e := range entries {
		id := e
		ts := ""
		if parts := strings.SplitN(e, "|", 2); len(parts) == 2 {
			id, ts = parts[0], parts[1]
		}
		fmt.Fprintf(&b, `<div class="thumb"><a class="overlay-s" href="/video/clip-%s/"></a>`, id)
		fmt.Fprintf(&b, `<div class="info3"><a href="#"><span>clip %s #test</span></a></div>`, id)
		if ts != "" {
			fmt.Fprintf(&b, `<span><i class="far fa-clock"></i> %s</span>`, ts)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func newPipeline(pager pagination.Pager, opts Options) *Orchestrator {
	opts.Hashtag = "test"
	return New(pager, scrape.NewExtractor("https://urlebird.com"), nil, nil, opts)
}

func TestRunCollectsAcrossLoads(t *testing.T) {
	pager := &fakePager{pages: []pageStep{
		{html: cardPage("7111111111111111111", "7222222222222222222"), status: pagination.StatusMore},
		{html: cardPage("7222222222222222222", "7333333333333333333"), status: pagination.StatusMore},
		{html: cardPage("7444444444444444444"), status: pagination.StatusExhausted},
	}}

	result, err := newPipeline(pager, Options{MaxLoads: 10}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Records) != 4 {
		t.Fatalf("got %d records, want 4", len(result.Records))
	}
	if result.Stats.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", result.Stats.Duplicates)
	}
	if result.Stats.PagesFetched != 3 {
		t.Errorf("PagesFetched = %d, want 3", result.Stats.PagesFetched)
	}
	if result.Stats.Loads != 2 {
		t.Errorf("Loads = %d, want 2", result.Stats.Loads)
	}
	if result.Stats.StoppedEarly {
		t.Error("StoppedEarly should be false on clean exhaustion")
	}
	if !pager.closed {
		t.Error("pager not closed")
	}
}

func TestRunRespectsMaxLoads(t *testing.T) {
	pager := &fakePager{pages: []pageStep{
		{html: cardPage("7111111111111111111"), status: pagination.StatusMore},
		{html: cardPage("7222222222222222222"), status: pagination.StatusMore},
		{html: cardPage("7333333333333333333"), status: pagination.StatusMore},
		{html: cardPage("7444444444444444444"), status: pagination.StatusMore},
	}}

	result, err := newPipeline(pager, Options{MaxLoads: 2}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Stats.Loads != 2 {
		t.Errorf("Loads = %d, want 2", result.Stats.Loads)
	}
	if len(result.Records) != 3 {
		t.Errorf("got %d records, want 3", len(result.Records))
	}
}

func TestRunKeepsPartialResultsOnFailure(t *testing.T) {
	pager := &fakePager{pages: []pageStep{
		{html: cardPage("7111111111111111111"), status: pagination.StatusMore},
		{html: cardPage("7222222222222222222"), status: pagination.StatusMore},
		{status: pagination.StatusStoppedEarly, err: errors.New("connection reset")},
	}}

	result, err := newPipeline(pager, Options{MaxLoads: 10}).Run(context.Background())
	if err != nil {
		t.Fatalf("partial failure must not be fatal: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("got %d records, want the 2 collected before the failure", len(result.Records))
	}
	if !result.Stats.StoppedEarly {
		t.Error("StoppedEarly should be set")
	}
}

func TestRunFailsOnFirstPage(t *testing.T) {
	pager := &fakePager{pages: []pageStep{
		{status: pagination.StatusStoppedEarly, err: errors.New("unreachable")},
	}}

	if _, err := newPipeline(pager, Options{}).Run(context.Background()); err == nil {
		t.Fatal("first page failure must be an error")
	}
}

func TestRunDateFilter(t *testing.T) {
	// Estimated release times are relative to scrape time, which is
	// time.Now() inside Run; bounds are chosen wide enough that test
	// runtime cannot move records across them.
	pager := &fakePager{pages: []pageStep{
		{html: cardPage(
			"7111111111111111111|2 days ago",
			"7222222222222222222|20 days ago",
			"7333333333333333333", // no timestamp at all
		), status: pagination.StatusExhausted},
	}}

	start := time.Now().Add(-7 * 24 * time.Hour)
	result, err := newPipeline(pager, Options{StartDate: &start}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(result.Records))
	}
	for _, rec := range result.Records {
		if rec.VideoID == "7222222222222222222" {
			t.Error("record outside the window survived the filter")
		}
	}
	if result.Stats.FilteredOut != 1 {
		t.Errorf("FilteredOut = %d, want 1", result.Stats.FilteredOut)
	}
	if result.Stats.NoReleaseTime != 1 {
		t.Errorf("NoReleaseTime = %d, want 1", result.Stats.NoReleaseTime)
	}
}

func TestRunDateFilterInclusiveBounds(t *testing.T) {
	ref := time.Now()
	pager := &fakePager{pages: []pageStep{
		{html: cardPage("7111111111111111111|just now"), status: pagination.StatusExhausted},
	}}

	// A window whose end is (approximately) the record's estimate
	end := ref.Add(time.Minute)
	start := ref.Add(-time.Minute)
	result, err := newPipeline(pager, Options{StartDate: &start, EndDate: &end}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("record at the window edge should be kept, got %d", len(result.Records))
	}
}
