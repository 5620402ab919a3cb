package store

import (
	"context"
	"time"

	"github.com/penwyp/claudeteam/errors"
	"github.com/penwyp/claudeteam/logging"
)

// WithRetry runs op up to maxAttempts times with a fixed delay between
// attempts. The backoff wait aborts immediately when ctx is cancelled, so
// shutdown never has to sit out a delay. The final failure is surfaced as
// a typed remote error.
func WithRetry(ctx context.Context, op func(ctx context.Context) error, maxAttempts int, delay time.Duration) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt < maxAttempts {
			logging.LogDebugf("Remote operation failed (attempt %d/%d), retrying in %v: %v", attempt, maxAttempts, delay, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.NewRemoteError("remote operation failed after retries", lastErr)
}
