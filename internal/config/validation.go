package config

import "fmt"

func validate(c *Config) error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay must be >= 0")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("retries must be >= 1")
	}
	if c.Mode != "http" && c.Mode != "browser" {
		return fmt.Errorf("mode must be http or browser, got %q", c.Mode)
	}
	if c.CacheMaxSizeBytes <= 0 {
		return fmt.Errorf("cache max size must be > 0")
	}
	return nil
}
