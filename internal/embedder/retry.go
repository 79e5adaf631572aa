package embedder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy configures randomized exponential backoff for remote calls.
type RetryPolicy struct {
	MaxAttempts  int           // Total attempts including the first one
	InitialDelay time.Duration // Lower bound of every wait
	MaxDelay     time.Duration // Upper bound of every wait
	Multiplier   float64       // Growth of the upper bound per attempt
}

// Retry defaults
const (
	DefaultMaxAttempts  = 6
	DefaultInitialDelay = 1 * time.Second
	DefaultMaxDelay     = 20 * time.Second
	BackoffMultiplier   = 2.0
)

// DefaultRetryPolicy waits between 1s and min(20s, 2^(n-1)s) before
// attempt n+1, for at most six attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		Multiplier:   BackoffMultiplier,
	}
}

// NoDelayPolicy retries immediately. Meant for tests.
func NoDelayPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, Multiplier: 1}
}

// randFloat is swapped out by tests.
var randFloat = rand.Float64

// Backoff returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.InitialDelay <= 0 && p.MaxDelay <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	maxDelay := p.MaxDelay
	if maxDelay < p.InitialDelay {
		maxDelay = p.InitialDelay
	}

	ceiling := float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if math.IsInf(ceiling, 0) || ceiling > float64(maxDelay) {
		ceiling = float64(maxDelay)
	}
	floor := float64(p.InitialDelay)
	if floor > ceiling {
		floor = ceiling
	}
	return time.Duration(floor + randFloat()*(ceiling-floor))
}

// NonRetryableError marks an error that must not be retried
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps err so the retry loop gives up immediately.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err carries the non-retryable marker.
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}

// retryNotify is called before sleeping ahead of the next attempt.
type retryNotify func(attempt int, err error, wait time.Duration)

// retryWithBackoff runs fn until it succeeds, returns a non-retryable error,
// the context ends, or the policy runs out of attempts. Every failure is
// wrapped with ErrProviderFailed.
func retryWithBackoff[T any](ctx context.Context, policy RetryPolicy, fn func() (T, error), notify retryNotify) (T, error) {
	var zero T
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if IsNonRetryable(err) {
			return zero, fmt.Errorf("%w: %w", ErrProviderFailed, err)
		}
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%w: %w", ErrProviderFailed, ctx.Err())
		}
		if attempt == attempts {
			break
		}

		wait := policy.Backoff(attempt)
		if notify != nil {
			notify(attempt, err, wait)
		}
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("%w: %w", ErrProviderFailed, ctx.Err())
		case <-timer.C:
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrProviderFailed, attempts, lastErr)
}
