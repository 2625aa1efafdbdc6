// Package retry provides a bounded retry policy with exponential backoff.
package retry

import (
	"context"
	"time"
)

// Policy describes how an operation is retried. Every loop built on a Policy
// has a hard attempt cap; nothing retries unboundedly.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Retryable decides whether a non-nil error is worth another attempt.
	// A nil predicate retries every error.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, a terminal error occurs, the attempt cap is
// reached, or ctx is cancelled. The delay doubles after each failed attempt,
// starting at BaseDelay. It returns the last error observed.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.BaseDelay
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
	}
	return err
}
