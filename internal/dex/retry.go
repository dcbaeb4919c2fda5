package dex

import (
	"context"
	"time"

	"github.com/jpillora/backoff"

	"github.com/zero-given/site33/internal/apperrors"
)

// withRetry runs fn up to maxAttempts times, backing off exponentially from
// baseDelay. Only remote-unavailable failures are retried.
func withRetry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delays := newBackoff(baseDelay)
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxAttempts || !apperrors.Retryable(err) || ctx.Err() != nil {
			return err
		}

		timer := time.NewTimer(delays.Duration())
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func newBackoff(baseDelay time.Duration) *backoff.Backoff {
	return &backoff.Backoff{
		Min:    baseDelay,
		Max:    baseDelay * 32,
		Factor: 2,
	}
}
