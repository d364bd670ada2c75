package httpx

import (
	"context"
	"errors"
	"time"
)

// BackoffFunc maps a 1-based attempt number to a wait duration.
type BackoffFunc func(attempt int) time.Duration

// LinearBackoff waits attempt*base between tries.
func LinearBackoff(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * base
	}
}

// NoBackoff retries immediately. Test use only.
func NoBackoff() BackoffFunc {
	return func(int) time.Duration { return 0 }
}

// RetryPolicy is the single retrying helper shared by all external
// calls: gateway commits, catalog refreshes.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     BackoffFunc
}

// NewRetryPolicy builds a policy with linear backoff.
func NewRetryPolicy(maxAttempts int, backoffBase time.Duration) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff:     LinearBackoff(backoffBase),
	}
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks an error as non-retryable; Do returns the wrapped
// error immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op until it succeeds, returns a permanent error, or the
// attempt budget is exhausted. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}

		wait := time.Duration(0)
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return lastErr
}
