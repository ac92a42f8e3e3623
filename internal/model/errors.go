package model

import (
	"fmt"
	"strings"
	"time"
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// SchemaError reports that a lead table lacks required columns.
// Headers holds the header row exactly as it appeared in the input.
type SchemaError struct {
	Headers []string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns %s (found: %s)",
		quoteJoin(e.Missing), quoteJoin(e.Headers))
}

func quoteJoin(vals []string) string {
	if len(vals) == 0 {
		return "none"
	}
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}
