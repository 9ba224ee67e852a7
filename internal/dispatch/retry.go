package dispatch

import (
	"context"
	"time"
)

// RetryPolicy bounds retries within a single delivery attempt. The backoff
// doubles per attempt starting from BaseDelay; the lock TTL upstream must
// comfortably cover MaxAttempts worth of sends plus backoff.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}
}

// Do runs send until it succeeds, fails permanently, exhausts attempts, or
// the context is done. Permanent failures short-circuit: no amount of
// retrying fixes an invalid destination.
func (p RetryPolicy) Do(ctx context.Context, send func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err = send(ctx)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
	}
	return err
}
