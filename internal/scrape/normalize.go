// Package scrape turns listing pages from the aggregator into structured
// video records. Raw display strings stay on the record next to their
// parsed forms so nothing is lost when a format changes upstream.
package scrape

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	countRe   = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*([KMB])?$`)
	labelRe   = regexp.MustCompile(`(?i)\b(views?|likes?|comments?|shares?|plays?)\b`)
	relTimeRe = regexp.MustCompile(`(?i)^(\d+|an?)\s+(second|minute|hour|day|week|month|year)s?\s+ago$`)
	hashtagRe = regexp.MustCompile(`#(\w+)`)
)

// ParseCount converts a display count such as "1.5M", "12K" or
// "3,421 views" into an absolute number. Returns nil when the string
// carries no parseable count, never zero for garbage input.
func ParseCount(raw string) *int64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	s = labelRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	m := countRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}

	switch strings.ToUpper(m[2]) {
	case "K":
		value *= 1e3
	case "M":
		value *= 1e6
	case "B":
		value *= 1e9
	}

	n := int64(math.Round(value))
	return &n
}

// ParseRelativeTime converts a display age such as "3 hours ago" or
// "a month ago" into an estimated absolute time anchored at ref.
// Months count as 30 days and years as 365; the result is an estimate
// by construction. Returns nil for unrecognized strings.
func ParseRelativeTime(raw string, ref time.Time) *time.Time {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return nil
	}
	if s == "just now" || s == "now" {
		t := ref
		return &t
	}

	m := relTimeRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}

	n := int64(1)
	if m[1] != "a" && m[1] != "an" {
		parsed, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil
		}
		n = parsed
	}

	var unit time.Duration
	switch m[2] {
	case "second":
		unit = time.Second
	case "minute":
		unit = time.Minute
	case "hour":
		unit = time.Hour
	case "day":
		unit = 24 * time.Hour
	case "week":
		unit = 7 * 24 * time.Hour
	case "month":
		unit = 30 * 24 * time.Hour
	case "year":
		unit = 365 * 24 * time.Hour
	default:
		return nil
	}

	t := ref.Add(-time.Duration(n) * unit)
	return &t
}

// Hashtags extracts #tags from a description in order of first
// appearance, without the # prefix and without duplicates.
func Hashtags(description string) []string {
	matches := hashtagRe.FindAllStringSubmatch(description, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var tags []string
	for _, m := range matches {
		tag := m[1]
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// IsTruncated reports whether a listing description was cut off and the
// full text lives on the detail page.
func IsTruncated(description string) bool {
	s := strings.TrimSpace(description)
	return strings.HasSuffix(s, "...") || strings.HasSuffix(s, "…")
}
