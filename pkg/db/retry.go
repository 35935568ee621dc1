package db

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

const defaultRetryBaseDelay = 25 * time.Millisecond

// RetryPolicy bounds how often a conflicting unit of work is replayed.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	// OnRetry is called before each replay with the 1-based retry number.
	OnRetry func(attempt int, err error)
}

// Retry runs fn and replays it with exponential backoff while it fails with a
// retryable conflict. The last error is returned once the budget is spent.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	base := policy.BaseDelay
	if base <= 0 {
		base = defaultRetryBaseDelay
	}
	retries := policy.MaxRetries
	if retries < 0 {
		retries = 0
	}
	backoff := retry.WithMaxRetries(uint64(retries), retry.WithJitterPercent(20, retry.NewExponential(base)))

	attempt := 0
	var lastErr error
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if attempt > 0 && policy.OnRetry != nil {
			policy.OnRetry(attempt, lastErr)
		}
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if IsRetryableConflict(err) {
			lastErr = err
			return retry.RetryableError(err)
		}
		return err
	})
}
