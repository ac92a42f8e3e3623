package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/leadmail/internal/model"
)

// ProviderRateLimiter enforces a minimum delay between requests to the same
// AI provider. Limiters are created lazily per provider name.
type ProviderRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter // key: provider name
	minDelay time.Duration
}

// NewProviderRateLimiter creates a rate limiter that enforces minDelay between
// consecutive requests to the same provider. A zero minDelay disables waiting.
func NewProviderRateLimiter(minDelay time.Duration) *ProviderRateLimiter {
	return &ProviderRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		minDelay: minDelay,
	}
}

func (r *ProviderRateLimiter) limiter(provider string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[provider]
	if !ok {
		limit := rate.Inf
		if r.minDelay > 0 {
			limit = rate.Every(r.minDelay)
		}
		// Burst of 1: the first call proceeds immediately, later calls are spaced.
		l = rate.NewLimiter(limit, 1)
		r.limiters[provider] = l
	}
	return l
}

// Wait blocks until enough time has passed since the last request to provider.
// Returns an error if the context is cancelled while waiting.
func (r *ProviderRateLimiter) Wait(ctx context.Context, provider string) error {
	if err := r.limiter(provider).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", provider, err)
	}
	return nil
}

// Ensure RateLimitedClassifier implements model.Classifier.
var _ model.Classifier = (*RateLimitedClassifier)(nil)

// RateLimitedClassifier is a decorator that enforces provider-level rate
// limiting before delegating to the wrapped Classifier.
type RateLimitedClassifier struct {
	inner    model.Classifier
	limiter  *ProviderRateLimiter
	provider string
}

// NewRateLimitedClassifier wraps a Classifier with provider-level rate limiting.
// All classifiers targeting the same provider should share the same limiter instance.
func NewRateLimitedClassifier(inner model.Classifier, limiter *ProviderRateLimiter, provider string) *RateLimitedClassifier {
	return &RateLimitedClassifier{
		inner:    inner,
		limiter:  limiter,
		provider: provider,
	}
}

// Classify waits for the rate limiter to allow a request, then delegates to
// the wrapped classifier.
func (c *RateLimitedClassifier) Classify(ctx context.Context, lead model.Lead, profile model.Profile) (model.Classification, error) {
	if err := c.limiter.Wait(ctx, c.provider); err != nil {
		return model.Classification{}, err
	}
	return c.inner.Classify(ctx, lead, profile)
}
