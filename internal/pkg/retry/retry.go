// Package retry provides a bounded retry executor with linear backoff.
//
// External calls to the payment processor are wrapped in an Executor so a
// single dropped connection does not fail the whole checkout. The executor
// retries unconditionally: it does not inspect the error to decide whether
// a retry could possibly help. Callers must make sure the wrapped operation
// is safe to repeat (payment creation is guarded upstream with an
// idempotency key for exactly this reason).
package retry

import (
	"context"
	"time"
)

const (
	// DefaultMaxAttempts bounds how often an operation runs, first try included.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is multiplied by the attempt number between tries,
	// so the waits grow linearly: 1s, 2s, ...
	DefaultBaseDelay = time.Second
)

// Executor runs fallible operations up to a fixed number of attempts.
// The zero value is not usable; construct one with New.
type Executor struct {
	maxAttempts int
	baseDelay   time.Duration

	// sleep is swapped out in tests to avoid real waits.
	sleep func(time.Duration)
}

// New returns an Executor with the given attempt budget and base delay.
// Non-positive arguments fall back to the package defaults.
func New(maxAttempts int, baseDelay time.Duration) *Executor {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &Executor{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       time.Sleep,
	}
}

// Do runs op until it succeeds or the attempt budget is exhausted, waiting
// baseDelay×attempt between tries. The error of the final attempt is
// returned. The context is passed through to op; the waits themselves are
// not interruptible — once a retry sequence starts it runs to completion.
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := Do(ctx, e, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do is the generic form of Executor.Do for operations that return a value.
//
//	intent, err := retry.Do(ctx, exec, func(ctx context.Context) (*entity.PaymentIntent, error) {
//		return gateway.CreatePayment(ctx, req)
//	})
func Do[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt < e.maxAttempts {
			e.sleep(e.baseDelay * time.Duration(attempt))
		}
	}
	return zero, lastErr
}
