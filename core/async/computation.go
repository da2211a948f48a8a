package async

import (
	"context"
	"sync"
	"time"

	"permsync/core/fault"
)

// Result is the outcome of a computation: a value or an error, never both.
// Results are immutable once constructed and are returned, never panicked.
type Result[T any] struct {
	value T
	err   error
}

// Ok constructs a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Err constructs a failed Result.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Succeeded reports whether the result carries a value.
func (r Result[T]) Succeeded() bool {
	return r.err == nil
}

// Value returns the value. Zero when the result is a failure.
func (r Result[T]) Value() T {
	return r.value
}

// Err returns the error, or nil on success.
func (r Result[T]) Err() error {
	return r.err
}

// Unpack returns the value and error as an ordinary Go pair.
func (r Result[T]) Unpack() (T, error) {
	return r.value, r.err
}

// Computation is a deferred, re-runnable unit of work. Construction never
// performs the effect; Run does, every time it is called. Callers that need
// single execution must hold on to the Result themselves.
type Computation[T any] struct {
	run func(ctx context.Context) Result[T]
}

// New wraps an effectful function into a Computation.
func New[T any](fn func(ctx context.Context) (T, error)) Computation[T] {
	return Computation[T]{run: func(ctx context.Context) Result[T] {
		v, err := fn(ctx)
		if err != nil {
			return Err[T](err)
		}
		return Ok(v)
	}}
}

// Pure lifts a plain value into an always-successful Computation.
func Pure[T any](v T) Computation[T] {
	return Computation[T]{run: func(context.Context) Result[T] { return Ok(v) }}
}

// Fail lifts an error into an always-failing Computation.
func Fail[T any](err error) Computation[T] {
	return Computation[T]{run: func(context.Context) Result[T] { return Err[T](err) }}
}

// Run executes the computation. The effect happens here, not at
// construction, so computations can be composed and discarded freely.
func (c Computation[T]) Run(ctx context.Context) Result[T] {
	if ctx.Err() != nil {
		return Err[T](ctx.Err())
	}
	return c.run(ctx)
}

// Recover converts a failure into another computation derived from the
// error. Successes pass through untouched. The handler must supply an
// explicit fallback; there is no silent swallow path.
func (c Computation[T]) Recover(fn func(err error) Computation[T]) Computation[T] {
	return Computation[T]{run: func(ctx context.Context) Result[T] {
		r := c.Run(ctx)
		if r.Succeeded() {
			return r
		}
		return fn(r.Err()).Run(ctx)
	}}
}

// Chain sequences two computations: on success fn receives the value and
// produces the next computation; on failure fn is never invoked and the
// failure propagates untouched.
func Chain[T, U any](c Computation[T], fn func(v T) Computation[U]) Computation[U] {
	return Computation[U]{run: func(ctx context.Context) Result[U] {
		r := c.Run(ctx)
		if !r.Succeeded() {
			return Err[U](r.Err())
		}
		return fn(r.Value()).Run(ctx)
	}}
}

// Map is Chain restricted to a pure transform that cannot fail.
func Map[T, U any](c Computation[T], fn func(v T) U) Computation[U] {
	return Chain(c, func(v T) Computation[U] {
		return Pure(fn(v))
	})
}

// All runs the computations concurrently and joins them. It succeeds only
// when every element succeeds; otherwise it returns the first failure in
// list order (not completion order). Siblings are not cancelled by a
// failure; every element runs to completion.
func All[T any](cs []Computation[T]) Computation[[]T] {
	return Computation[[]T]{run: func(ctx context.Context) Result[[]T] {
		results := make([]Result[T], len(cs))
		var wg sync.WaitGroup
		wg.Add(len(cs))
		for i, c := range cs {
			go func(i int, c Computation[T]) {
				defer wg.Done()
				results[i] = c.Run(ctx)
			}(i, c)
		}
		wg.Wait()

		values := make([]T, len(cs))
		for i, r := range results {
			if !r.Succeeded() {
				return Err[[]T](r.Err())
			}
			values[i] = r.Value()
		}
		return Ok(values)
	}}
}

// WithTimeout bounds a computation by a wall-clock budget. The in-flight
// work is not forcibly killed on expiry; its eventual result is discarded
// and a timeout-typed error is substituted.
func WithTimeout[T any](c Computation[T], d time.Duration) Computation[T] {
	return Computation[T]{run: func(ctx context.Context) Result[T] {
		done := make(chan Result[T], 1)
		go func() {
			done <- c.Run(ctx)
		}()

		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case r := <-done:
			return r
		case <-timer.C:
			return Err[T](fault.System(context.DeadlineExceeded, "operation exceeded its time budget"))
		case <-ctx.Done():
			return Err[T](ctx.Err())
		}
	}}
}
