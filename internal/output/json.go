// internal/output/json.go
package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/trendlens/tokbird/pkg/models"
)

// WriteJSON writes records as an indented JSON array
func WriteJSON(path string, records []*models.VideoRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return err
	}

	log.Info().Str("path", path).Int("records", len(records)).Msg("Wrote JSON")
	return nil
}
