// Package pagination walks a hashtag listing past its first page. The
// aggregator loads further results through a load-more control whose
// data attributes feed an AJAX endpoint; this package resolves those
// parameters and drives either the AJAX endpoint directly or a live
// browser tab clicking the control.
package pagination

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/trendlens/tokbird/internal/fetch"
	"github.com/trendlens/tokbird/internal/session"
)

// Status reports why a pager stopped, or that it has not
type Status int

const (
	// StatusMore means further loads are available
	StatusMore Status = iota
	// StatusExhausted means the listing has no more content
	StatusExhausted
	// StatusStoppedEarly means a follow-up load failed after retries
	// while content likely remained.
	StatusStoppedEarly
)

func (s Status) String() string {
	switch s {
	case StatusMore:
		return "more"
	case StatusExhausted:
		return "exhausted"
	case StatusStoppedEarly:
		return "stopped-early"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// controlSelectors locate the load-more control, most specific first
var controlSelectors = []string{
	"#hash_load_more",
	"#paging a.btn",
	"a.btn[data-hash]",
	"button[data-hash]",
	".load-more a",
}

// State carries the AJAX parameters harvested from the load-more
// control. The endpoint echoes an updated control back with each
// fragment, advancing the cursor.
type State struct {
	Hashtag string
	Page    int
	Cursor  string
	Hash    string
	ID      string
	X       string
	Href    string
	Loads   int
}

// FindControl reads the load-more control out of a document. Returns
// false when no selector matches and the inline-script fallback also
// finds nothing, which means the listing is fully loaded.
func FindControl(doc *goquery.Document, hashtag string) (*State, bool) {
	for _, sel := range controlSelectors {
		ctrl := doc.Find(sel).First()
		if ctrl.Length() == 0 {
			continue
		}
		st := stateFromControl(ctrl, hashtag)
		if st.Hash != "" || st.Cursor != "" || st.Href != "" {
			log.Debug().Str("selector", sel).Int("page", st.Page).Msg("Found load-more control")
			return st, true
		}
	}
	if st, ok := stateFromScripts(doc, hashtag); ok {
		return st, true
	}
	return nil, false
}

func stateFromControl(ctrl *goquery.Selection, hashtag string) *State {
	// data-page names the next page to request; absent means page 2
	st := &State{Hashtag: hashtag, Page: 2}
	if v, ok := ctrl.Attr("data-hash"); ok {
		st.Hash = v
	}
	if v, ok := ctrl.Attr("data-id"); ok {
		st.ID = v
	}
	if v, ok := ctrl.Attr("data-cursor"); ok {
		st.Cursor = v
	}
	if v, ok := ctrl.Attr("data-x"); ok {
		st.X = v
	}
	if v, ok := ctrl.Attr("data-page"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			st.Page = n
		}
	}
	if v, ok := ctrl.Attr("href"); ok && v != "#" {
		st.Href = v
	}
	return st
}

var scriptParamRe = map[string]*regexp.Regexp{
	"hash":   regexp.MustCompile(`['"]?hash['"]?\s*[:=]\s*['"]([^'"]+)['"]`),
	"id":     regexp.MustCompile(`['"]?id['"]?\s*[:=]\s*['"]?(\d+)['"]?`),
	"cursor": regexp.MustCompile(`['"]?cursor['"]?\s*[:=]\s*['"]([^'"]+)['"]`),
	"x":      regexp.MustCompile(`['"]?x['"]?\s*[:=]\s*['"]([^'"]+)['"]`),
	"page":   regexp.MustCompile(`['"]?page['"]?\s*[:=]\s*['"]?(\d+)['"]?`),
}

// stateFromScripts scrapes pagination parameters out of inline scripts
// when the control markup is missing or renamed.
func stateFromScripts(doc *goquery.Document, hashtag string) (*State, bool) {
	st := &State{Hashtag: hashtag, Page: 2}
	pageSet := false
	found := false
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		src := s.Text()
		if !strings.Contains(src, "load_more") && !strings.Contains(src, "cursor") {
			return
		}
		if m := scriptParamRe["hash"].FindStringSubmatch(src); m != nil && st.Hash == "" {
			st.Hash = m[1]
			found = true
		}
		if m := scriptParamRe["id"].FindStringSubmatch(src); m != nil && st.ID == "" {
			st.ID = m[1]
		}
		if m := scriptParamRe["cursor"].FindStringSubmatch(src); m != nil && st.Cursor == "" {
			st.Cursor = m[1]
			found = true
		}
		if m := scriptParamRe["x"].FindStringSubmatch(src); m != nil && st.X == "" {
			st.X = m[1]
		}
		if m := scriptParamRe["page"].FindStringSubmatch(src); m != nil && !pageSet {
			if n, err := strconv.Atoi(m[1]); err == nil {
				st.Page = n
				pageSet = true
			}
		}
	})
	if found {
		log.Debug().Msg("Resolved load-more parameters from inline scripts")
	}
	return st, found
}

// Pager walks a hashtag listing page by page
type Pager interface {
	// Start fetches the first page of the listing
	Start(ctx context.Context) (*goquery.Document, Status, error)
	// Next loads the next batch. The returned document covers only the
	// new fragment for AJAX paging, or the whole grown page for a
	// browser tab, along with whether more content remains.
	Next(ctx context.Context) (*goquery.Document, Status, error)
	// Loads reports how many follow-up loads have completed
	Loads() int
	Close()
}

// AJAXPager pages by replaying the load-more endpoint directly
type AJAXPager struct {
	fetcher fetch.Fetcher
	baseURL string
	hashtag string
	state   *State
	pageURL string
	loads   int
}

// NewAJAXPager builds a pager that posts to the load-more endpoint
func NewAJAXPager(fetcher fetch.Fetcher, baseURL, hashtag string) *AJAXPager {
	return &AJAXPager{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
		hashtag: hashtag,
	}
}

// HashtagURL returns the listing URL for a tag
func HashtagURL(baseURL, hashtag string) string {
	return fmt.Sprintf("%s/hash/%s/", strings.TrimRight(baseURL, "/"), url.PathEscape(hashtag))
}

func (p *AJAXPager) Start(ctx context.Context) (*goquery.Document, Status, error) {
	p.pageURL = HashtagURL(p.baseURL, p.hashtag)

	page, err := p.fetcher.Fetch(ctx, fetch.Request{URL: p.pageURL})
	if err != nil {
		return nil, StatusStoppedEarly, err
	}
	doc, err := page.Document()
	if err != nil {
		return nil, StatusStoppedEarly, err
	}

	st, ok := FindControl(doc, p.hashtag)
	if !ok {
		log.Debug().Str("hashtag", p.hashtag).Msg("Listing has no load-more control")
		return doc, StatusExhausted, nil
	}
	p.state = st
	return doc, StatusMore, nil
}

func (p *AJAXPager) Next(ctx context.Context) (*goquery.Document, Status, error) {
	if p.state == nil {
		return nil, StatusExhausted, nil
	}

	// The control's data-hash is an opaque server token, not the tag
	// name; data-page already names the next page to request.
	form := url.Values{}
	hash := p.state.Hash
	if hash == "" {
		hash = p.state.Hashtag
	}
	form.Set("hash", hash)
	if p.state.ID != "" {
		form.Set("id", p.state.ID)
	}
	form.Set("page", strconv.Itoa(p.state.Page))
	if p.state.Cursor != "" {
		form.Set("cursor", p.state.Cursor)
	}
	if p.state.X != "" {
		form.Set("x", p.state.X)
	}

	page, err := p.fetcher.Fetch(ctx, fetch.Request{
		URL:     p.baseURL + "/hash_load_more",
		Method:  "POST",
		Form:    form,
		Referer: p.pageURL,
		AJAX:    true,
		NoCache: true,
	})
	if err != nil {
		// Retries are spent inside the fetcher; a surviving error means
		// content likely remains that we could not reach.
		return nil, StatusStoppedEarly, err
	}

	doc, err := page.Document()
	if err != nil {
		return nil, StatusStoppedEarly, err
	}

	p.loads++

	if st, ok := FindControl(doc, p.hashtag); ok {
		st.Loads = p.loads
		p.state = st
		return doc, StatusMore, nil
	}

	// No control in the fragment: this batch is the last one
	p.state = nil
	log.Debug().Int("loads", p.loads).Msg("Listing exhausted")
	return doc, StatusExhausted, nil
}

func (p *AJAXPager) Loads() int { return p.loads }

func (p *AJAXPager) Close() {}

// BrowserPager pages by clicking the load-more control in a live tab
type BrowserPager struct {
	browser   *fetch.Browser
	baseURL   string
	hashtag   string
	tab       *fetch.Tab
	cardCount int
	loads     int
	exhausted bool
	maxWait   time.Duration
}

// NewBrowserPager builds a pager backed by a rendered tab
func NewBrowserPager(browser *fetch.Browser, baseURL, hashtag string) *BrowserPager {
	return &BrowserPager{
		browser: browser,
		baseURL: strings.TrimRight(baseURL, "/"),
		hashtag: hashtag,
		maxWait: 10 * time.Second,
	}
}

const cardCountSelector = "#thumbs div.thumb"

func (p *BrowserPager) Start(ctx context.Context) (*goquery.Document, Status, error) {
	tab, err := p.browser.OpenTab(ctx, HashtagURL(p.baseURL, p.hashtag))
	if err != nil {
		return nil, StatusStoppedEarly, err
	}
	p.tab = tab

	count, err := tab.Count(ctx, cardCountSelector)
	if err != nil {
		return nil, StatusStoppedEarly, err
	}
	p.cardCount = count

	doc, err := p.document(ctx)
	if err != nil {
		return nil, StatusStoppedEarly, err
	}

	if _, ok := FindControl(doc, p.hashtag); !ok {
		p.exhausted = true
		return doc, StatusExhausted, nil
	}
	return doc, StatusMore, nil
}

func (p *BrowserPager) Next(ctx context.Context) (*goquery.Document, Status, error) {
	if p.exhausted || p.tab == nil {
		return nil, StatusExhausted, nil
	}

	clicked := false
	var newCount int
	for _, sel := range controlSelectors {
		n, err := p.tab.ClickAndWait(ctx, sel, cardCountSelector, p.cardCount, p.maxWait)
		if err != nil {
			continue
		}
		clicked = true
		newCount = n
		break
	}
	if !clicked {
		return nil, StatusStoppedEarly, fmt.Errorf("load-more click failed on %s", p.hashtag)
	}

	if newCount <= p.cardCount {
		p.exhausted = true
		doc, err := p.document(ctx)
		if err != nil {
			return nil, StatusExhausted, nil
		}
		return doc, StatusExhausted, nil
	}

	p.cardCount = newCount
	p.loads++

	doc, err := p.document(ctx)
	if err != nil {
		return nil, StatusStoppedEarly, err
	}

	if _, ok := FindControl(doc, p.hashtag); !ok {
		p.exhausted = true
		return doc, StatusExhausted, nil
	}
	return doc, StatusMore, nil
}

func (p *BrowserPager) document(ctx context.Context) (*goquery.Document, error) {
	html, err := p.tab.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (p *BrowserPager) Loads() int { return p.loads }

// Cookies exports the live tab's cookies, for session persistence
func (p *BrowserPager) Cookies(ctx context.Context) ([]session.Cookie, error) {
	if p.tab == nil {
		return nil, nil
	}
	return p.tab.Cookies(ctx)
}

func (p *BrowserPager) Close() {
	if p.tab != nil {
		p.tab.Close()
		p.tab = nil
	}
}
