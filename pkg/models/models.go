package models

import (
	"strings"
	"time"
)

// VideoRecord is one scraped video from a hashtag listing or detail page.
//
// Raw and derived fields always travel together: the raw text is what the
// site showed, the derived value is what we parsed out of it. A derived
// field left nil means "unparseable", which is distinct from zero.
type VideoRecord struct {
	URL     string `json:"url"`
	VideoID string `json:"video_id,omitempty"`

	ScrapeTime time.Time `json:"scrape_time"`

	TimestampRaw         string     `json:"timestamp_raw,omitempty"`
	EstimatedReleaseTime *time.Time `json:"estimated_release_time,omitempty"`

	ViewsRaw    string `json:"views_raw,omitempty"`
	LikesRaw    string `json:"likes_raw,omitempty"`
	CommentsRaw string `json:"comments_raw,omitempty"`
	Views       *int64 `json:"views,omitempty"`
	Likes       *int64 `json:"likes,omitempty"`
	Comments    *int64 `json:"comments,omitempty"`

	Author      string `json:"author,omitempty"`
	AuthorURL   string `json:"author_url,omitempty"`
	Description string `json:"description_and_hashtags,omitempty"`
	// DescriptionHTML keeps the raw markup of the description cell so
	// report writers can preserve hashtag links.
	DescriptionHTML string   `json:"-"`
	Hashtags        []string `json:"hashtags,omitempty"`
	ThumbnailURL    string   `json:"thumbnail_url,omitempty"`

	// NeedsEnrichment is true while the description is truncated and a
	// detail-page visit has not yet resolved it.
	NeedsEnrichment bool `json:"needs_enrichment"`

	// FieldSources records which selector rule produced each field, for
	// diagnostics when the site markup shifts.
	FieldSources map[string]string `json:"-"`
}

// HashtagsJoined returns the hashtags as a comma-joined string for
// tabular export.
func (r *VideoRecord) HashtagsJoined() string {
	return strings.Join(r.Hashtags, ",")
}

// SetSource records the selector rule that produced a field.
func (r *VideoRecord) SetSource(field, rule string) {
	if r.FieldSources == nil {
		r.FieldSources = make(map[string]string)
	}
	r.FieldSources[field] = rule
}

// Stats summarizes one scrape run.
type Stats struct {
	PagesFetched int `json:"pages_fetched"`
	Loads        int `json:"loads"`
	Records      int `json:"records"`
	Duplicates   int `json:"duplicates"`

	// StoppedEarly is set when pagination ended because a follow-up
	// request failed after retries, as opposed to a genuine
	// end-of-results. Both end the loop but they are never merged.
	StoppedEarly bool `json:"stopped_early"`

	Enriched     int `json:"enriched"`
	EnrichFailed int `json:"enrich_failed"`

	// NoReleaseTime counts records whose timestamp could not be parsed;
	// they bypass date filtering and should be reviewed manually.
	NoReleaseTime int `json:"no_release_time"`

	FilteredOut int `json:"filtered_out"`

	ThumbsSaved  int `json:"thumbs_saved,omitempty"`
	ThumbsFailed int `json:"thumbs_failed,omitempty"`
}
