package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/leadmail/internal/model"
)

// Ensure RetryClassifier implements model.Classifier.
var _ model.Classifier = (*RetryClassifier)(nil)

// RetryClassifier is a decorator that retries transient failures with
// exponential backoff and jitter before giving up on a lead.
type RetryClassifier struct {
	inner      model.Classifier
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetryClassifier wraps a Classifier with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func NewRetryClassifier(inner model.Classifier, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryClassifier {
	return &RetryClassifier{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Classify attempts to classify lead, retrying on transient errors.
func (c *RetryClassifier) Classify(ctx context.Context, lead model.Lead, profile model.Profile) (model.Classification, error) {
	result, err := c.inner.Classify(ctx, lead, profile)
	if err == nil {
		return result, nil
	}

	if ctx.Err() != nil {
		return model.Classification{}, fmt.Errorf("retry cancelled: %w (last error: %v)", ctx.Err(), err)
	}
	if !isRetryable(err) {
		return model.Classification{}, err
	}

	lastErr := err
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		delay := c.backoffDelay(attempt, lastErr)

		c.logger.Warn("retrying after transient error",
			"email", lead.Email,
			"attempt", attempt,
			"max_retries", c.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return model.Classification{}, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		result, err = c.inner.Classify(ctx, lead, profile)
		if err == nil {
			return result, nil
		}

		if ctx.Err() != nil {
			return model.Classification{}, fmt.Errorf("retry cancelled: %w (last error: %v)", ctx.Err(), err)
		}
		if !isRetryable(err) {
			return model.Classification{}, err
		}
		lastErr = err
	}

	return model.Classification{}, fmt.Errorf("giving up after %d retries: %w", c.maxRetries, lastErr)
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (c *RetryClassifier) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable returns true if the error represents a transient failure worth retrying.
// Per-request timeouts are transient; the caller checks its own context first.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		// 429 Too Many Requests and 5xx are transient; other 4xx are not.
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}

	// Non-HTTP errors (network, DNS, malformed model output) are retryable.
	return true
}
