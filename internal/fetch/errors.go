// internal/fetch/errors.go
package fetch

import (
	"errors"
	"fmt"
)

// Common fetch errors
var (
	ErrNetwork = errors.New("network error")
	ErrTimeout = errors.New("request timeout")
	ErrParse   = errors.New("failed to parse response")
	ErrBrowser = errors.New("browser not available")
	ErrInvalid = errors.New("invalid URL")
	ErrTabGone = errors.New("browser tab closed")
)

// HTTPError represents a non-2xx response that survived all retries
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (%s)", e.StatusCode, e.Status, e.URL)
}

// GetStatusCode implements retry.StatusCoder so the retry policy can
// decide between retryable (5xx/429) and fatal (other 4xx) statuses.
func (e *HTTPError) GetStatusCode() int {
	return e.StatusCode
}

// NetworkError wraps an underlying transport failure. Always retryable.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }
