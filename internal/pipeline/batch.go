package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task is one independent unit of batch work.
type Task[T any] func(ctx context.Context) (T, error)

// Outcome is the settled result of the task at Index.
type Outcome[T any] struct {
	Index int
	Value T
	Err   error
}

func (o Outcome[T]) OK() bool { return o.Err == nil }

// Event reports one finished task while streaming. The last event on the
// channel has Done set and carries no outcome.
type Event[T any] struct {
	Outcome   Outcome[T]
	Completed int
	Total     int
	Progress  float64
	Done      bool
}

// RunAll runs every task with at most limit in flight and waits for all of
// them. A failing or panicking task never cancels its siblings; results are
// returned in input order. limit <= 0 means unbounded.
func RunAll[T any](ctx context.Context, limit int, tasks []Task[T]) []Outcome[T] {
	out := make([]Outcome[T], len(tasks))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, task := range tasks {
		g.Go(func() error {
			out[i] = settle(ctx, i, task)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Stream runs the tasks like RunAll but emits each outcome as soon as it
// settles, in completion order. Cancelling ctx stops emission and closes the
// channel; tasks already running finish in the background.
func Stream[T any](ctx context.Context, limit int, tasks []Task[T]) <-chan Event[T] {
	events := make(chan Event[T])
	settled := make(chan Outcome[T], len(tasks))

	go func() {
		var g errgroup.Group
		if limit > 0 {
			g.SetLimit(limit)
		}
		for i, task := range tasks {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				settled <- settle(ctx, i, task)
				return nil
			})
		}
		_ = g.Wait()
	}()

	go func() {
		defer close(events)
		total := len(tasks)
		for completed := 1; completed <= total; completed++ {
			var o Outcome[T]
			select {
			case <-ctx.Done():
				return
			case o = <-settled:
			}
			ev := Event[T]{Outcome: o, Completed: completed, Total: total, Progress: float64(completed) / float64(total)}
			select {
			case <-ctx.Done():
				return
			case events <- ev:
			}
		}
		select {
		case <-ctx.Done():
		case events <- Event[T]{Completed: total, Total: total, Progress: 1, Done: true}:
		}
	}()

	return events
}

func settle[T any](ctx context.Context, i int, task Task[T]) (o Outcome[T]) {
	o.Index = i
	defer func() {
		if r := recover(); r != nil {
			o.Err = fmt.Errorf("task %d panicked: %v", i, r)
		}
	}()
	if err := ctx.Err(); err != nil {
		o.Err = err
		return o
	}
	o.Value, o.Err = task(ctx)
	return o
}
