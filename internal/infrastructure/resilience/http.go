package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// HTTPStatusError is a non-2xx response from an external HTTP API.
type HTTPStatusError struct {
	Service    string
	Operation  string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Service, e.Operation, e.StatusCode, e.Body)
}

// ClassifyHTTP is the shared classifier for JSON-over-HTTP clients.
// Transport failures and 5xx/429 responses are transient; other
// statuses are permanent and do not count toward the breaker, since
// a malformed request cannot be fixed by waiting.
func ClassifyHTTP(err error) ErrorClassification {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassification{Retry: false, Record: false}
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == 429 || statusErr.StatusCode >= 500 {
			return ErrorClassification{Retry: true, Record: true}
		}
		return ErrorClassification{Retry: false, Record: false}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassification{Retry: true, Record: true}
	}
	return ErrorClassification{Retry: true, Record: true}
}
