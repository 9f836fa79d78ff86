package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrCallTimeout is the degradation reason when a bounded call exceeds its budget.
var ErrCallTimeout = errors.New("call exceeded its time budget")

// Result is the outcome of a Call. Exactly one of two variants holds:
// Ok (Degraded == false, Reason == nil) or Degraded (Value came from the
// fallback supplier, Reason explains why).
type Result[T any] struct {
	Value    T
	Degraded bool
	Reason   error
}

// Ok reports whether the value came from the primary call.
func (r Result[T]) Ok() bool {
	return !r.Degraded
}

// Call describes a bounded external call with a deterministic fallback.
type Call[T any] struct {
	// Name identifies the upstream in logs.
	Name string

	// Timeout bounds the primary call. Zero means only the parent context bounds it.
	Timeout time.Duration

	// Fallback supplies the degraded value. It receives the failure reason
	// and must not block.
	Fallback func(reason error) T

	// Logger receives one warn line per degradation.
	Logger zerolog.Logger
}

// Run executes fn under the call's time budget. It never returns an error:
// failures, timeouts and panics inside fn are turned into a Degraded result.
func (c Call[T]) Run(ctx context.Context, fn func(ctx context.Context) (T, error)) Result[T] {
	value, err := Bounded(ctx, c.Timeout, fn)
	if err == nil {
		return Result[T]{Value: value}
	}

	c.Logger.Warn().
		Str("provider", c.Name).
		Err(err).
		Msg("upstream call degraded, using fallback")

	var fallback T
	if c.Fallback != nil {
		fallback = c.Fallback(err)
	}
	return Result[T]{Value: fallback, Degraded: true, Reason: err}
}

// Bounded runs fn with a deadline derived from ctx and timeout. It returns
// ErrCallTimeout (wrapped) once the budget is spent even if fn ignores its
// context, so a misbehaving upstream cannot hold the caller.
func Bounded[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	callCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("upstream call panicked: %v", p)}
			}
		}()
		v, err := fn(callCtx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			var zero T
			return zero, fmt.Errorf("%w: %w", ErrCallTimeout, out.err)
		}
		return out.value, out.err
	case <-callCtx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, ErrCallTimeout
	}
}
