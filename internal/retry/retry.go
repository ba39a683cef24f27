// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry provides the resilient-call wrapper used at every
// granularity of a harvest: login, listing page and single paper.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

const defaultMaxAttempts = 3

// Policy is an attempt budget with a fixed delay between attempts. Portals
// throttle by time window, so the delay does not grow.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration

	// OnRetry, when set, is called after a failed attempt that will be
	// retried, before the delay.
	OnRetry func(attempt int, err error)
}

// FromBudget converts a configured budget into a Policy.
func FromBudget(b types.RetryBudget) Policy {
	return Policy{MaxAttempts: b.Attempts, Delay: b.Delay}
}

// WithAttempts returns a copy of p with a different attempt budget. Values
// <= 0 keep the original.
func (p Policy) WithAttempts(n int) Policy {
	if n > 0 {
		p.MaxAttempts = n
	}
	return p
}

// Failure is returned once the budget is exhausted. It carries the last error
// so callers can still test the cause with errors.Is.
type Failure struct {
	Attempts int
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("failed after %d attempt(s): %v", f.Attempts, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Call stops at the first
// permanent error and returns it inside a Failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Call invokes op up to p.MaxAttempts times, sleeping p.Delay after each
// failure. On success it returns op's value. When every attempt fails, or op
// returns a Permanent error, it returns a *Failure wrapping the last error.
// If ctx is cancelled during a delay, the Failure wraps ctx.Err().
//
// When p.MaxAttempts is 0 the default (3) is used.
func Call[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, &Failure{Attempts: attempt - 1, Err: err}
		}

		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, &Failure{Attempts: attempt, Err: perm.err}
		}
		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		if p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, &Failure{Attempts: attempt, Err: ctx.Err()}
			case <-timer.C:
			}
		}
	}
	return zero, &Failure{Attempts: attempts, Err: lastErr}
}

// Do is Call for operations that only return an error.
func Do(ctx context.Context, p Policy, op func(context.Context) error) error {
	_, err := Call(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
