package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRetriesExhausted is joined with the last error when every attempt failed with a retryable error.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryPolicy bounds a retried operation. Attempt n (0-based) that fails with a retryable error is followed by a
// wait of Base * 2^n, except after the final attempt.
type RetryPolicy struct {
	Attempts int
	Base     time.Duration
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// DefaultRetryPolicy waits 1s, 2s between three attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Base: time.Second}
}

func (p RetryPolicy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff returns the wait after a failed attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.Base * time.Duration(1<<attempt)
}

// Retry runs op until it succeeds, fails with an error isRetryable rejects, or runs out of attempts.
func Retry(ctx context.Context, p RetryPolicy, isRetryable func(error) bool, op func(ctx context.Context, attempt int) error) error {
	_, err := RetryValue(ctx, p, isRetryable, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, op(ctx, attempt)
	})
	return err
}

// RetryValue is [Retry] for operations that return a value.
func RetryValue[T any](ctx context.Context, p RetryPolicy, isRetryable func(error) bool, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	n := p.attempts()

	for attempt := range n {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := op(ctx, attempt)
		if err == nil {
			return v, nil
		}
		if !isRetryable(err) {
			return zero, err
		}
		if attempt == n-1 {
			return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, n, err)
		}

		wait := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}
		if err := p.sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
	return zero, nil
}
