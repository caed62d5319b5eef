package llm

import (
	"context"
	"time"

	"github.com/soyeahso/thecafe/internal/logging"
)

// RetryClient re-sends a request to the same model on retryable errors
// (429, 5xx, overload, timeouts) with linear backoff.
type RetryClient struct {
	inner    Client
	attempts int
	backoff  time.Duration
	log      *logging.Logger
}

// NewRetryClient wraps inner. attempts counts the first call; values below
// one are treated as one.
func NewRetryClient(inner Client, attempts int, backoff time.Duration, log *logging.Logger) *RetryClient {
	return &RetryClient{
		inner:    inner,
		attempts: max(attempts, 1),
		backoff:  backoff,
		log:      log.Sub("retry"),
	}
}

// Name returns the wrapped provider's name.
func (c *RetryClient) Name() string { return c.inner.Name() }

// Complete calls the inner client until it succeeds, fails with a
// non-retryable error, or runs out of attempts.
func (c *RetryClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		resp, err := c.inner.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == c.attempts {
			break
		}
		c.log.Warn().
			Str("model", req.Model).
			Int("attempt", attempt).
			Err(err).
			Msg("retryable error, retrying")

		select {
		case <-time.After(c.backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return nil, AsProviderError(c.Name(), req.Model, ctx.Err())
		}
	}
	return nil, AsProviderError(c.Name(), req.Model, lastErr)
}
