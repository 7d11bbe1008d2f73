package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel = "info"
	DefaultJSONLog  = false

	DefaultBaseURL = "https://urlebird.com"

	DefaultHTTPTimeout = 15 * time.Second
	DefaultDelay       = 2 * time.Second
	DefaultMaxRetries  = 3

	DefaultMaxLoads       = 5
	DefaultBatchSize      = 5
	DefaultMaxConcurrent  = 3
	DefaultMaxWorkers     = 4
	DefaultMaxWorkerLimit = 16

	DefaultMode            = "http"
	DefaultBrowserHeadless = true
	DefaultSettleWait      = 500 * time.Millisecond

	DefaultCacheTTL          = 5 * time.Minute
	DefaultCacheMaxSizeBytes = 50 * 1024 * 1024 // 50MB

	DefaultDebugDir = "debug_pages"
)
