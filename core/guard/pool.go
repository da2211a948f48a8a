package guard

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is one deferred unit of work submitted to the pool.
type Task[T any] func(ctx context.Context) (T, error)

// Outcome is the resolution of one task: a value or an error, by input index.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Succeeded reports whether the task produced a value.
func (o Outcome[T]) Succeeded() bool {
	return o.Err == nil
}

// Run executes tasks with at most limit in flight at once. The returned
// slice matches the input order regardless of completion order. A failing
// task never cancels its siblings; every slot resolves to a value or an
// error and the caller decides how to treat partial results.
func Run[T any](ctx context.Context, limit int, tasks []Task[T]) []Outcome[T] {
	if limit <= 0 {
		limit = 1
	}

	outcomes := make([]Outcome[T], len(tasks))

	// A bare errgroup (no WithContext) so one failure cannot cancel the
	// rest; errors travel through the outcome slots instead.
	var g errgroup.Group
	g.SetLimit(limit)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			v, err := task(ctx)
			outcomes[i] = Outcome[T]{Value: v, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}
