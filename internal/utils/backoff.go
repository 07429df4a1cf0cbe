package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Backoff retries with exponential delay (base * 2^i) plus up to 50% jitter.
type Backoff struct {
	base       time.Duration
	maxRetries int
	retryable  func(error) bool
}

// NewBackoff allows maxRetries retries after the first call. Negative values
// mean no retries.
func NewBackoff(base time.Duration, maxRetries int) Backoff {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return Backoff{base: base, maxRetries: maxRetries}
}

// Only restricts retries to errors for which fn returns true.
func (b Backoff) Only(fn func(error) bool) Backoff {
	b.retryable = fn
	return b
}

// Do runs fn at least once and up to maxRetries+1 times. Cancelling ctx
// stops the wait.
func (b Backoff) Do(ctx context.Context, fn func(i int) error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = b.base
	eb.Multiplier = 2
	eb.RandomizationFactor = 0.5

	i := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn(i)
		i++
		if err != nil && b.retryable != nil && !b.retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(eb), backoff.WithMaxTries(uint(max(b.maxRetries, 0)+1)))
	return err
}
