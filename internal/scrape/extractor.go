// internal/scrape/extractor.go
package scrape

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/trendlens/tokbird/internal/urlutil"
	"github.com/trendlens/tokbird/pkg/models"
)

// Extractor pulls video records out of listing documents
type Extractor struct {
	baseURL    string
	strategies Strategies
	jsonFall   bool
}

// NewExtractor builds an extractor with the default selector chains.
// baseURL anchors relative hrefs found in cards.
func NewExtractor(baseURL string) *Extractor {
	return &Extractor{
		baseURL:    baseURL,
		strategies: DefaultStrategies(),
		jsonFall:   true,
	}
}

// Records extracts every video card from the document. Cards without a
// resolvable video URL are discarded, ads are skipped, and duplicate
// URLs within the document are collapsed to their first occurrence.
func (e *Extractor) Records(doc *goquery.Document, scrapeTime time.Time) []*models.VideoRecord {
	cards := e.findCards(doc)
	if cards == nil || cards.Length() == 0 {
		log.Debug().Msg("No cards matched, trying embedded JSON")
		if e.jsonFall {
			return recordsFromScripts(doc, e.baseURL, scrapeTime)
		}
		return nil
	}

	seen := make(map[string]bool)
	var records []*models.VideoRecord

	cards.Each(func(i int, card *goquery.Selection) {
		if card.HasClass(e.strategies.AdClass) {
			return
		}

		rec := e.extractCard(card, scrapeTime)
		if rec == nil {
			log.Debug().Int("card", i).Msg("Card has no video link, discarded")
			return
		}
		if seen[rec.URL] {
			return
		}
		seen[rec.URL] = true
		records = append(records, rec)
	})

	log.Debug().
		Int("cards", cards.Length()).
		Int("records", len(records)).
		Msg("Extracted listing page")

	return records
}

// findCards walks the card selector chain and returns the first
// selection that matches anything.
func (e *Extractor) findCards(doc *goquery.Document) *goquery.Selection {
	for _, sel := range e.strategies.Cards {
		if cards := doc.Find(sel); cards.Length() > 0 {
			return cards
		}
	}
	return nil
}

func (e *Extractor) extractCard(card *goquery.Selection, scrapeTime time.Time) *models.VideoRecord {
	rawURL, urlRule := e.strategies.URL.Extract(card)
	if rawURL == "" {
		return nil
	}

	rec := &models.VideoRecord{
		ScrapeTime:   scrapeTime,
		FieldSources: make(map[string]string),
	}

	rec.URL = urlutil.ResolveURL(e.baseURL, rawURL)
	rec.VideoID = urlutil.VideoID(rec.URL)
	rec.SetSource("url", urlRule)

	if desc, rule := e.strategies.Description.Extract(card); desc != "" {
		rec.Description = strings.TrimSpace(desc)
		rec.SetSource("description", rule)
		if html, err := goquery.OuterHtml(card.Find(".info3").First()); err == nil {
			rec.DescriptionHTML = html
		}
	}

	if author, rule := e.strategies.Author.Extract(card); author != "" {
		rec.Author = strings.TrimSpace(author)
		rec.SetSource("author", rule)
	}
	if href, rule := e.strategies.AuthorURL.Extract(card); href != "" {
		rec.AuthorURL = urlutil.ResolveURL(e.baseURL, href)
		rec.SetSource("author_url", rule)
	}

	if ts, rule := e.strategies.Timestamp.Extract(card); ts != "" {
		rec.TimestampRaw = strings.TrimSpace(ts)
		rec.SetSource("timestamp", rule)
		rec.EstimatedReleaseTime = ParseRelativeTime(rec.TimestampRaw, scrapeTime)
	}

	if views, rule := e.strategies.Views.Extract(card); views != "" {
		rec.ViewsRaw = strings.TrimSpace(views)
		rec.SetSource("views", rule)
		rec.Views = ParseCount(rec.ViewsRaw)
	}
	if likes, rule := e.strategies.Likes.Extract(card); likes != "" {
		rec.LikesRaw = strings.TrimSpace(likes)
		rec.SetSource("likes", rule)
		rec.Likes = ParseCount(rec.LikesRaw)
	}
	if comments, rule := e.strategies.Comments.Extract(card); comments != "" {
		rec.CommentsRaw = strings.TrimSpace(comments)
		rec.SetSource("comments", rule)
		rec.Comments = ParseCount(rec.CommentsRaw)
	}

	if thumb, rule := e.strategies.Thumbnail.Extract(card); thumb != "" {
		rec.ThumbnailURL = urlutil.ResolveURL(e.baseURL, thumb)
		rec.SetSource("thumbnail", rule)
	}

	rec.Hashtags = Hashtags(rec.Description)
	rec.NeedsEnrichment = IsTruncated(rec.Description)

	return rec
}

// Description pulls the full description from a video detail page.
// Detail pages carry the untruncated text that the listing cuts off.
func (e *Extractor) Description(doc *goquery.Document) string {
	if text := strings.TrimSpace(doc.Find(".info2 h1").First().Text()); text != "" {
		return text
	}
	if content, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		if text := strings.TrimSpace(content); text != "" {
			return text
		}
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}
