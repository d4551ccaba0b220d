package tasks

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errFlaky = errors.New("flaky")

func isFlaky(err error) bool { return errors.Is(err, errFlaky) }

// instantPolicy never sleeps and records the requested waits.
func instantPolicy(attempts int, waits *[]time.Duration) RetryPolicy {
	return RetryPolicy{
		Attempts: attempts,
		Base:     time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			if waits != nil {
				*waits = append(*waits, d)
			}
			return ctx.Err()
		},
	}
}

func TestRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		var waits []time.Duration
		calls := 0
		err := Retry(context.Background(), instantPolicy(3, &waits), isFlaky, func(ctx context.Context, attempt int) error {
			calls++
			if attempt < 2 {
				return errFlaky
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
		if len(waits) != 2 || waits[0] != time.Second || waits[1] != 2*time.Second {
			t.Errorf("expected 1s, 2s backoff, got %v", waits)
		}
	})

	t.Run("exhausted", func(t *testing.T) {
		var waits []time.Duration
		err := Retry(context.Background(), instantPolicy(3, &waits), isFlaky, func(ctx context.Context, attempt int) error {
			return errFlaky
		})
		if !errors.Is(err, ErrRetriesExhausted) || !errors.Is(err, errFlaky) {
			t.Errorf("expected exhausted error wrapping cause, got %v", err)
		}
		if len(waits) != 2 {
			t.Errorf("no wait after the final attempt, got %v", waits)
		}
	})

	t.Run("non-retryable returns immediately", func(t *testing.T) {
		fatal := errors.New("fatal")
		calls := 0
		err := Retry(context.Background(), instantPolicy(3, nil), isFlaky, func(ctx context.Context, attempt int) error {
			calls++
			return fatal
		})
		if !errors.Is(err, fatal) || errors.Is(err, ErrRetriesExhausted) {
			t.Errorf("expected fatal error, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("cancelled during backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		policy := RetryPolicy{Attempts: 3, Base: time.Hour}
		calls := 0
		err := Retry(ctx, policy, isFlaky, func(ctx context.Context, attempt int) error {
			calls++
			cancel()
			return errFlaky
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("zero attempts runs once", func(t *testing.T) {
		calls := 0
		_ = Retry(context.Background(), instantPolicy(0, nil), isFlaky, func(ctx context.Context, attempt int) error {
			calls++
			return errFlaky
		})
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})
}

func TestRetryValue(t *testing.T) {
	v, err := RetryValue(context.Background(), instantPolicy(2, nil), isFlaky, func(ctx context.Context, attempt int) (string, error) {
		if attempt == 0 {
			return "", errFlaky
		}
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Errorf("RetryValue() = %q, %v", v, err)
	}
}

func TestBackoff(t *testing.T) {
	p := RetryPolicy{Base: 500 * time.Millisecond}
	for i, want := range []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second} {
		if got := p.Backoff(i); got != want {
			t.Errorf("Backoff(%d) = %v, want %v", i, got, want)
		}
	}
}
