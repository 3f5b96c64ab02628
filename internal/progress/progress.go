// Package progress runs multi-transaction workflows in the background while
// reporting which stage is about to execute.
package progress

import "context"

// Workflows announce each stage before its ledger call goes out, so the
// buffer only needs to cover the deepest workflow.
const stepBuffer = 8

// Task is a running workflow. S is the step type announced before each stage,
// R the final result.
type Task[S, R any] struct {
	steps  chan S
	done   chan struct{}
	result R
	err    error
}

// Run starts fn in its own goroutine. fn calls emit before every stage it is
// about to execute; the announced steps arrive on Steps.
func Run[S, R any](fn func(emit func(S)) (R, error)) *Task[S, R] {
	t := &Task[S, R]{
		steps: make(chan S, stepBuffer),
		done:  make(chan struct{}),
	}
	go func() {
		t.result, t.err = fn(func(s S) { t.steps <- s })
		close(t.steps)
		close(t.done)
	}()
	return t
}

// Steps returns the channel of announced stages. It is closed when the
// workflow finishes.
func (t *Task[S, R]) Steps() <-chan S {
	return t.steps
}

// Wait blocks until the workflow finishes or ctx is cancelled.
func (t *Task[S, R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	case <-t.done:
		return t.result, t.err
	}
}
