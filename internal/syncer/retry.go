// Package syncer reconciles optimistic local progress with the remote store.
// It owns the retry policy, the offline queue, the mutation coordinator and
// the periodic flush scheduler.
package syncer

import (
	"context"
	"time"
)

// RetryPolicy is a reusable retry strategy: a bounded number of attempts
// with a pluggable backoff curve. Direct writes and queued-batch flushes
// share one policy so both paths fail the same way.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// ExponentialBackoff returns the standard curve: base, 2×base, 4×base, …
// for attempt numbers 0, 1, 2, … No jitter; callers that need it can wrap
// the function without changing the policy contract.
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base << uint(attempt)
	}
}

// DefaultRetryPolicy matches the engine-wide default: 3 attempts, 1s base.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     ExponentialBackoff(time.Second),
	}
}

// Do runs fn until it succeeds or MaxAttempts is exhausted, sleeping the
// backoff delay between attempts. The last error is returned as-is so the
// caller can classify it. Context cancellation interrupts the backoff sleep.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var last error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(0)
			if p.Backoff != nil {
				delay = p.Backoff(attempt - 1)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		last = fn(ctx)
		if last == nil {
			return nil
		}
	}
	return last
}
