package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Target site
	BaseURL string

	// HTTP/Scraping
	HTTPTimeout time.Duration
	Delay       time.Duration
	MaxRetries  int
	UserAgent   string
	Proxies     []string

	// Fetch mode: "http" or "browser"
	Mode            string
	BrowserHeadless bool
	ChromePath      string

	// Caching
	CacheTTL          time.Duration
	CacheMaxSizeBytes int64

	// Diagnostics
	DebugDir string
}

// Load builds a Config by combining defaults, environment variables, and CLI
// flags. Caller should pass the root *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{
		LogLevel:          DefaultLogLevel,
		JSONLog:           DefaultJSONLog,
		BaseURL:           DefaultBaseURL,
		HTTPTimeout:       DefaultHTTPTimeout,
		Delay:             DefaultDelay,
		MaxRetries:        DefaultMaxRetries,
		UserAgent:         "",
		Mode:              DefaultMode,
		BrowserHeadless:   DefaultBrowserHeadless,
		CacheTTL:          DefaultCacheTTL,
		CacheMaxSizeBytes: DefaultCacheMaxSizeBytes,
		DebugDir:          DefaultDebugDir,
	}

	// Override from environment variables
	if v := os.Getenv("TOKBIRD_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("TOKBIRD_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("TOKBIRD_PROXIES"); v != "" {
		cfg.Proxies = splitNonEmpty(v)
	}
	if v := os.Getenv("TOKBIRD_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := os.Getenv("TOKBIRD_DEBUG_DIR"); v != "" {
		cfg.DebugDir = v
	}

	// Read CLI flags if provided
	if cmd != nil {
		if f := cmd.Flags().Lookup("proxy"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.Proxies = []string{s}
			}
		}
		if f := cmd.Flags().Lookup("user-agent"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.UserAgent = s
			}
		}
		if f := cmd.Flags().Lookup("timeout"); f != nil {
			if s := f.Value.String(); s != "" {
				if d, err := time.ParseDuration(s); err == nil {
					cfg.HTTPTimeout = d
				}
			}
		}
		if f := cmd.Flags().Lookup("delay"); f != nil {
			if s := f.Value.String(); s != "" {
				if secs, err := parseSeconds(s); err == nil {
					cfg.Delay = secs
				}
			}
		}
		if f := cmd.Flags().Lookup("retries"); f != nil {
			if s := f.Value.String(); s != "" {
				fmt.Sscanf(s, "%d", &cfg.MaxRetries)
			}
		}
		if f := cmd.Flags().Lookup("mode"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.Mode = strings.ToLower(s)
			}
		}
		if f := cmd.Flags().Lookup("json"); f != nil {
			if f.Value.String() == "true" {
				cfg.JSONLog = true
			}
		}
		if f := cmd.Flags().Lookup("verbose"); f != nil {
			if f.Value.String() == "true" {
				cfg.LogLevel = "debug"
			}
		}
		if f := cmd.Flags().Lookup("quiet"); f != nil {
			if f.Value.String() == "true" {
				cfg.LogLevel = "error"
			}
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// parseSeconds accepts either a plain float ("2.5") or a Go duration ("2.5s").
func parseSeconds(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	var secs float64
	if _, err := fmt.Sscanf(s, "%f", &secs); err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
