// Package retry implements the resilience envelope wrapped around every
// outbound provider call: bounded attempts, a per-attempt deadline, and
// exponential backoff capped by a total delay budget.
package retry

import (
	"context"
	"fmt"
	"time"
)

// TimeoutError marks an attempt that outran its per-attempt deadline. It is
// always retryable.
type TimeoutError struct {
	Attempt int
	Limit   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("attempt %d timed out after %s", e.Attempt, e.Limit)
}

// Classifier reports whether an error is worth another attempt.
type Classifier func(error) bool

// Observer is invoked before each backoff sleep with the failed attempt
// number (1-based), the error, and the delay about to be taken.
type Observer func(attempt int, err error, delay time.Duration)

// Policy controls the envelope. The zero value is unusable; start from
// DefaultPolicy.
type Policy struct {
	// MaxAttempts bounds total invocations, including the first.
	MaxAttempts int
	// AttemptTimeout is the deadline each single attempt races against.
	AttemptTimeout time.Duration
	// InitialBackoff is the delay after the first failure; it doubles on
	// each subsequent failure.
	InitialBackoff time.Duration
	// Retryable decides which errors earn another attempt. Nil means
	// nothing is retryable.
	Retryable Classifier
	// OnRetry, when set, observes each retry decision.
	OnRetry Observer
}

// DefaultPolicy matches the provider defaults: three attempts, a thirty
// second attempt deadline, backoff starting at half a second.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		AttemptTimeout: 30 * time.Second,
		InitialBackoff: 500 * time.Millisecond,
	}
}

// delayBudget is the cumulative backoff ceiling. Once the next delay would
// push total sleep past it the loop stops retrying, so the envelope as a
// whole cannot stall much longer than the attempts themselves.
func (p Policy) delayBudget() time.Duration {
	return p.AttemptTimeout * time.Duration(p.MaxAttempts) / 2
}

type outcome[T any] struct {
	value T
	err   error
}

// Do runs op under the policy. Attempts are strictly sequential: each waits
// for the previous attempt's outcome or deadline before starting. The first
// success wins; otherwise the last error is returned, including fatal errors
// which end the loop immediately.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		return zero, fmt.Errorf("retry: max attempts must be at least 1, got %d", p.MaxAttempts)
	}

	var (
		lastErr error
		slept   time.Duration
		backoff = p.InitialBackoff
		budget  = p.delayBudget()
	)

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		value, err := runAttempt(ctx, p.AttemptTimeout, attempt, op)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt == p.MaxAttempts || !retryable(p, err) {
			break
		}

		delay := backoff
		if slept+delay > budget {
			// Budget exhausted: give up with the last error instead of
			// hammering the upstream at zero delay.
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
			slept += delay
		}
		backoff *= 2
	}

	return zero, lastErr
}

func retryable(p Policy, err error) bool {
	if _, ok := err.(*TimeoutError); ok {
		return true
	}
	return p.Retryable != nil && p.Retryable(err)
}

// runAttempt races op against the attempt deadline. A hung op cannot block
// the envelope: once the deadline fires the attempt is charged a
// TimeoutError and its goroutine is left to drain into the buffered channel.
func runAttempt[T any](ctx context.Context, limit time.Duration, attempt int, op func(context.Context) (T, error)) (T, error) {
	var zero T

	attemptCtx := ctx
	var cancel context.CancelFunc
	if limit > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	done := make(chan outcome[T], 1)
	go func() {
		value, err := op(attemptCtx)
		done <- outcome[T]{value: value, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return zero, &TimeoutError{Attempt: attempt, Limit: limit}
		}
		return out.value, out.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, &TimeoutError{Attempt: attempt, Limit: limit}
	}
}
