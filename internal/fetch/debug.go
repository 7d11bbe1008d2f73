package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
)

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// saveDebugArtifact persists a raw response body for offline inspection
// when parsing fails. Diagnostic only; errors here are logged and
// swallowed, never propagated.
func saveDebugArtifact(dir, urlStr, body string) {
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("Failed to create debug directory")
		return
	}

	name := unsafePathChars.ReplaceAllString(urlStr, "_")
	if len(name) > 120 {
		name = name[:120]
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%d.html", name, time.Now().Unix()))

	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to save debug artifact")
		return
	}
	log.Debug().Str("path", path).Msg("Saved raw body for debugging")
}
