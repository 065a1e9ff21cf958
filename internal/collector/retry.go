package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// RetryPolicy retries an operation while it reports ErrRateLimited.
// MaxAttempts of 0 retries until the context is done.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy backs off one second and never gives up.
var DefaultRetryPolicy = RetryPolicy{Delay: time.Second}

// Do runs op until it succeeds, fails with a non-throttling error, or attempts run out.
func (p RetryPolicy) Do(ctx context.Context, label string, op func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil || !errors.Is(err, ErrRateLimited) {
			return err
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return fmt.Errorf("%s: %w after %d attempts: %w", label, ErrRetriesExhausted, attempt, err)
		}
		log.Printf("[WARN] %s throttled (attempt %d), retrying in %v", label, attempt, p.Delay)
		if err := sleep(ctx, p.Delay); err != nil {
			return err
		}
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
