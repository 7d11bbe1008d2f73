package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher is the capability every scraping stage is written against.
// Client implements it over plain HTTP; Browser implements it over a
// rendered headless-Chrome page.
type Fetcher interface {
	// Fetch retrieves the given request and returns the response page
	Fetch(ctx context.Context, req Request) (*Page, error)

	// Name returns the name of the fetcher implementation
	Name() string
}

// Request describes one page or fragment fetch
type Request struct {
	URL     string
	Method  string     // "" means GET
	Form    url.Values // POST form body, for the load-more endpoint
	Referer string
	// AJAX marks the request as one the site's own script would make;
	// it adds the X-Requested-With header the endpoint checks for.
	AJAX bool
	// NoCache bypasses the page cache for this request
	NoCache bool
}

// Page is a fetched document plus response metadata
type Page struct {
	URL          string
	StatusCode   int
	HTML         string
	FetchedAt    time.Time
	ResponseTime int64 // milliseconds

	doc *goquery.Document
}

// Document parses the page HTML on first use and caches the result
func (p *Page) Document() (*goquery.Document, error) {
	if p.doc != nil {
		return p.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.HTML))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	p.doc = doc
	return doc, nil
}
