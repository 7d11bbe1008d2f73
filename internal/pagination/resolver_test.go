package pagination

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/trendlens/tokbird/internal/fetch"
)

// data-hash carries an opaque server token, deliberately distinct
// from the hashtag name.
const firstPageHTML = `
<html><body>
<div id="thumbs">
  <div class="thumb"><a class="overlay-s" href="/video/a-7111111111111111111/"></a></div>
</div>
<div id="paging">
  <a id="hash_load_more" class="btn" href="#"
     data-hash="h_9f3a" data-id="42" data-page="2" data-cursor="c1" data-x="tok1">Load more</a>
</div>
</body></html>`

const fragmentWithControlHTML = `
<div class="thumb"><a class="overlay-s" href="/video/b-7222222222222222222/"></a></div>
<a id="hash_load_more" class="btn" href="#"
   data-hash="h_9f3a" data-id="42" data-page="3" data-cursor="c2" data-x="tok1">Load more</a>`

const fragmentLastHTML = `
<div class="thumb"><a class="overlay-s" href="/video/c-7333333333333333333/"></a></div>`

// scriptedFetcher replays canned responses and records requests
type scriptedFetcher struct {
	responses []response
	requests  []fetch.Request
}

type response struct {
	html string
	err  error
}

func (f *scriptedFetcher) Fetch(_ context.Context, req fetch.Request) (*fetch.Page, error) {
	f.requests = append(f.requests, req)
	if len(f.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	if r.err != nil {
		return nil, r.err
	}
	return &fetch.Page{
		URL:        req.URL,
		StatusCode: 200,
		HTML:       r.html,
		FetchedAt:  time.Now(),
	}, nil
}

func (f *scriptedFetcher) Name() string { return "scripted" }

func TestFindControl(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(firstPageHTML))
	if err != nil {
		t.Fatal(err)
	}

	st, ok := FindControl(doc, "dance")
	if !ok {
		t.Fatal("control not found")
	}
	if st.Hash != "h_9f3a" || st.ID != "42" || st.Cursor != "c1" || st.X != "tok1" {
		t.Errorf("state = %+v", st)
	}
	if st.Page != 2 {
		t.Errorf("Page = %d, want 2", st.Page)
	}
}

func TestFindControlFromScripts(t *testing.T) {
	page := `<html><body>
<script>
function load_more() {
  $.post("/hash_load_more", {hash: "dance", id: "7", page: "2", cursor: "deadbeef", x: "xyz"});
}
</script>
</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatal(err)
	}

	st, ok := FindControl(doc, "dance")
	if !ok {
		t.Fatal("script fallback found nothing")
	}
	if st.Cursor != "deadbeef" {
		t.Errorf("Cursor = %q, want deadbeef", st.Cursor)
	}
}

func TestFindControlAbsent(t *testing.T) {
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader("<html><body><div id=thumbs></div></body></html>"))
	if _, ok := FindControl(doc, "dance"); ok {
		t.Fatal("found a control on a page without one")
	}
}

func TestAJAXPagerWalksToExhaustion(t *testing.T) {
	f := &scriptedFetcher{responses: []response{
		{html: firstPageHTML},
		{html: fragmentWithControlHTML},
		{html: fragmentLastHTML},
	}}
	p := NewAJAXPager(f, "https://urlebird.com", "dance")

	_, status, err := p.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusMore {
		t.Fatalf("after start: status = %v, want more", status)
	}

	_, status, err = p.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusMore {
		t.Fatalf("after load 1: status = %v, want more", status)
	}

	_, status, err = p.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusExhausted {
		t.Fatalf("after load 2: status = %v, want exhausted", status)
	}
	if p.Loads() != 2 {
		t.Errorf("Loads() = %d, want 2", p.Loads())
	}

	// Follow-up request shape
	req := f.requests[1]
	if req.URL != "https://urlebird.com/hash_load_more" {
		t.Errorf("load-more URL = %q", req.URL)
	}
	if req.Method != "POST" || !req.AJAX || !req.NoCache {
		t.Errorf("load-more request = %+v", req)
	}
	if req.Form.Get("hash") != "h_9f3a" {
		t.Errorf("hash = %q, want the control token h_9f3a, not the tag name", req.Form.Get("hash"))
	}
	if req.Form.Get("cursor") != "c1" || req.Form.Get("page") != "2" {
		t.Errorf("form = %v", req.Form)
	}

	// Second follow-up takes cursor and page from the fragment's
	// control, verbatim.
	if got := f.requests[2].Form.Get("cursor"); got != "c2" {
		t.Errorf("second cursor = %q, want c2", got)
	}
	if got := f.requests[2].Form.Get("page"); got != "3" {
		t.Errorf("second page = %q, want 3", got)
	}

	// Exhausted pager stays exhausted
	_, status, _ = p.Next(context.Background())
	if status != StatusExhausted {
		t.Fatalf("drained pager: status = %v, want exhausted", status)
	}
}

func TestAJAXPagerFallsBackToTagName(t *testing.T) {
	// A control without data-hash or data-page: the tag name stands in
	// for the token and the next page defaults to 2.
	page := `<html><body>
<div id="thumbs"><div class="thumb"><a class="overlay-s" href="/video/a-7111111111111111111/"></a></div></div>
<a id="hash_load_more" class="btn" href="#" data-cursor="c1">Load more</a>
</body></html>`
	f := &scriptedFetcher{responses: []response{
		{html: page},
		{html: fragmentLastHTML},
	}}
	p := NewAJAXPager(f, "https://urlebird.com", "dance")

	if _, status, err := p.Start(context.Background()); err != nil || status != StatusMore {
		t.Fatalf("start: status=%v err=%v", status, err)
	}
	if _, _, err := p.Next(context.Background()); err != nil {
		t.Fatal(err)
	}

	form := f.requests[1].Form
	if form.Get("hash") != "dance" {
		t.Errorf("hash = %q, want the tag name fallback", form.Get("hash"))
	}
	if form.Get("page") != "2" {
		t.Errorf("page = %q, want default 2", form.Get("page"))
	}
}

func TestAJAXPagerStopsEarlyOnFailure(t *testing.T) {
	f := &scriptedFetcher{responses: []response{
		{html: firstPageHTML},
		{err: errors.New("connection reset")},
	}}
	p := NewAJAXPager(f, "https://urlebird.com", "dance")

	if _, status, err := p.Start(context.Background()); err != nil || status != StatusMore {
		t.Fatalf("start: status=%v err=%v", status, err)
	}

	_, status, err := p.Next(context.Background())
	if err == nil {
		t.Fatal("want error from failed load")
	}
	if status != StatusStoppedEarly {
		t.Fatalf("status = %v, want stopped-early", status)
	}
	if status == StatusExhausted {
		t.Fatal("failure must not look like exhaustion")
	}
}

func TestStatusString(t *testing.T) {
	if StatusMore.String() != "more" || StatusExhausted.String() != "exhausted" || StatusStoppedEarly.String() != "stopped-early" {
		t.Error("status names changed")
	}
}
