// internal/scrape/selectors.go
package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Rule is one named way of pulling a field out of a video card. Rules in
// a strategy are ordered from most to least specific; the first one that
// yields a non-empty value wins and its name is recorded on the record.
type Rule struct {
	Name  string
	Apply func(*goquery.Selection) string
}

// Strategy is an ordered fallback chain of rules for a single field
type Strategy struct {
	Field string
	Rules []Rule
}

// Extract runs the chain and returns the first non-empty value together
// with the name of the rule that produced it.
func (s Strategy) Extract(card *goquery.Selection) (string, string) {
	for _, rule := range s.Rules {
		if v := strings.TrimSpace(rule.Apply(card)); v != "" {
			return v, rule.Name
		}
	}
	return "", ""
}

// Strategies bundles the per-field chains used on listing pages
type Strategies struct {
	Cards       []string
	AdClass     string
	URL         Strategy
	Description Strategy
	Author      Strategy
	AuthorURL   Strategy
	Timestamp   Strategy
	Views       Strategy
	Likes       Strategy
	Comments    Strategy
	Thumbnail   Strategy
}

func attrRule(name, selector, attr string) Rule {
	return Rule{Name: name, Apply: func(card *goquery.Selection) string {
		v, _ := card.Find(selector).First().Attr(attr)
		return v
	}}
}

func textRule(name, selector string) Rule {
	return Rule{Name: name, Apply: func(card *goquery.Selection) string {
		return card.Find(selector).First().Text()
	}}
}

// iconStatRule finds the stat span that carries the given icon class and
// returns the text of its parent, with the icon markup stripped.
func iconStatRule(name, iconClass string) Rule {
	return Rule{Name: name, Apply: func(card *goquery.Selection) string {
		icon := card.Find("i." + iconClass).First()
		if icon.Length() == 0 {
			return ""
		}
		return icon.Parent().Text()
	}}
}

// DefaultStrategies returns the selector chains matching the
// aggregator's current card markup, with looser fallbacks behind each
// primary rule for when the markup shifts.
func DefaultStrategies() Strategies {
	return Strategies{
		Cards: []string{
			"#thumbs div.thumb",
			"div.thumb",
			"div[class*=thumb]",
		},
		AdClass: "display-flex-semi",
		URL: Strategy{
			Field: "url",
			Rules: []Rule{
				{Name: "overlay-link", Apply: func(card *goquery.Selection) string {
					var href string
					card.Find("a.overlay-s").EachWithBreak(func(_ int, a *goquery.Selection) bool {
						h, _ := a.Attr("href")
						if strings.Contains(h, "/video/") {
							href = h
							return false
						}
						return true
					})
					return href
				}},
				{Name: "info-link", Apply: func(card *goquery.Selection) string {
					var href string
					card.Find(".info3 a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
						h, _ := a.Attr("href")
						if strings.Contains(h, "/video/") {
							href = h
							return false
						}
						return true
					})
					return href
				}},
				{Name: "any-video-link", Apply: func(card *goquery.Selection) string {
					var href string
					card.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
						h, _ := a.Attr("href")
						if strings.Contains(h, "/video/") {
							href = h
							return false
						}
						return true
					})
					return href
				}},
			},
		},
		Description: Strategy{
			Field: "description",
			Rules: []Rule{
				{Name: "info3-span", Apply: func(card *goquery.Selection) string {
					var text string
					card.Find(".info3 a span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
						if span.Closest(".author-name").Length() > 0 {
							return true
						}
						text = span.Text()
						return false
					})
					return text
				}},
				textRule("info2-heading", ".info2 h1"),
				textRule("any-heading", "h1"),
			},
		},
		Author: Strategy{
			Field: "author",
			Rules: []Rule{
				textRule("author-name", ".author-name a"),
				textRule("author-block", ".author-name"),
			},
		},
		AuthorURL: Strategy{
			Field: "author_url",
			Rules: []Rule{
				attrRule("author-name-href", ".author-name a", "href"),
				{Name: "user-link", Apply: func(card *goquery.Selection) string {
					var href string
					card.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
						h, _ := a.Attr("href")
						if strings.Contains(h, "/user/") {
							href = h
							return false
						}
						return true
					})
					return href
				}},
			},
		},
		Timestamp: Strategy{
			Field: "timestamp",
			Rules: []Rule{
				iconStatRule("clock-icon", "fa-clock"),
				iconStatRule("clock-icon-alt", "fa-clock-o"),
			},
		},
		Views: Strategy{
			Field: "views",
			Rules: []Rule{iconStatRule("play-icon", "fa-play")},
		},
		Likes: Strategy{
			Field: "likes",
			Rules: []Rule{iconStatRule("heart-icon", "fa-heart")},
		},
		Comments: Strategy{
			Field: "comments",
			Rules: []Rule{iconStatRule("comment-icon", "fa-comment")},
		},
		Thumbnail: Strategy{
			Field: "thumbnail",
			Rules: []Rule{
				attrRule("img-src", "img", "src"),
				attrRule("img-data-src", "img", "data-src"),
				attrRule("img-lazy-src", "img", "data-lazy-src"),
			},
		},
	}
}
