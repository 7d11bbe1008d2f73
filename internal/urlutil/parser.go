package urlutil

import (
	"fmt"
	"net/url"
	"regexp"
)

var videoIDPattern = regexp.MustCompile(`(\d+)/?$`)

// ValidateURL performs comprehensive URL validation
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// ResolveURL resolves a possibly-relative href against a base URL and returns a string
func ResolveURL(base, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(u).String()
}

// VideoID extracts the numeric video identifier that the aggregator puts
// at the end of every video URL. Returns "" when absent.
func VideoID(videoURL string) string {
	m := videoIDPattern.FindStringSubmatch(videoURL)
	if m == nil {
		return ""
	}
	return m[1]
}
