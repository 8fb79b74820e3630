// Package retry builds the exponential backoff used for idempotent reads.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds retries of one operation.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Backoff is the wait before the second attempt; it doubles per retry.
	Backoff time.Duration
	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration
}

// DefaultPolicy returns a small retry budget for reads.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Backoff:    100 * time.Millisecond,
		MaxBackoff: 2 * time.Second,
	}
}

// BackOff returns the schedule for p, stopped when ctx is done.
func (p Policy) BackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Backoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.MaxInterval = p.MaxBackoff
	if b.MaxInterval < p.Backoff {
		b.MaxInterval = backoff.DefaultMaxInterval
	}

	retries := p.Attempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Do calls fn until it succeeds, the budget runs out or ctx is done. Wrap an
// error in backoff.Permanent to stop at once; Do returns it unwrapped.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	return backoff.Retry(func() error {
		return fn(ctx)
	}, p.BackOff(ctx))
}
