// Package retry provides the optimistic-concurrency helper shared by every
// mutation path that reads a versioned row, changes it and writes it back.
package retry

import (
	"context"

	"github.com/turtacn/MallLedger/pkg/errors"
)

// DefaultAttempts is one initial try plus one retry after a reload.
const DefaultAttempts = 2

// ErrStaleVersion is returned by save functions when the stored version no
// longer matches the loaded one.
var ErrStaleVersion = errors.New(errors.ErrCodeConcurrency, "row was modified concurrently")

type options struct {
	attempts   int
	isConflict func(error) bool
}

// Option configures WithOptimisticRetry.
type Option func(*options)

// WithAttempts sets the total number of load-mutate-save cycles.
func WithAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.attempts = n
		}
	}
}

// WithConflictCheck replaces the predicate that decides whether a save error
// is a concurrency conflict worth a reload.
func WithConflictCheck(fn func(error) bool) Option {
	return func(o *options) {
		if fn != nil {
			o.isConflict = fn
		}
	}
}

// IsStaleVersion reports whether err signals a version conflict.
func IsStaleVersion(err error) bool {
	return errors.IsCode(err, errors.ErrCodeConcurrency)
}

// WithOptimisticRetry loads a value, applies mutate and saves it.  When save
// reports a concurrency conflict the cycle restarts from a fresh load, up to
// the configured number of attempts.  Errors from load and mutate are never
// retried.  The saved value is returned.
func WithOptimisticRetry[T any](
	ctx context.Context,
	load func(ctx context.Context) (T, error),
	mutate func(current T) (T, error),
	save func(ctx context.Context, next T) error,
	opts ...Option,
) (T, error) {
	o := options{attempts: DefaultAttempts, isConflict: IsStaleVersion}
	for _, opt := range opts {
		opt(&o)
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < o.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		current, err := load(ctx)
		if err != nil {
			return zero, err
		}
		next, err := mutate(current)
		if err != nil {
			return zero, err
		}
		err = save(ctx, next)
		if err == nil {
			return next, nil
		}
		if !o.isConflict(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, errors.Wrap(lastErr, errors.ErrCodeConcurrency, "optimistic retry exhausted")
}

//Personal.AI order the ending
