package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json", false, "Log in JSON format")
	cmd.PersistentFlags().String("proxy", "", "Route requests through a proxy (e.g., http://localhost:8080)")
	cmd.PersistentFlags().String("timeout", "15s", "Hard timeout per request")
	cmd.PersistentFlags().String("delay", "2", "Minimum delay between requests, in seconds")
	cmd.PersistentFlags().Int("retries", DefaultMaxRetries, "Retry attempts per request")
	cmd.PersistentFlags().String("user-agent", "", "Pin a user agent instead of rotating")
	cmd.PersistentFlags().String("mode", DefaultMode, "Fetch mode: http or browser")
}
