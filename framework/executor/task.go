package executor

import (
	"context"
	"fmt"
	"sync"
)

// Task is a handle on work that eventually resolves to a value or an error.
// Callers may await it, cancel it, or simply drop it; dropping a task never
// blocks the producer.
type Task[T any] struct {
	done   chan struct{}
	once   sync.Once
	value  T
	err    error
	cancel context.CancelFunc
}

func newTask[T any](cancel context.CancelFunc) *Task[T] {
	return &Task[T]{done: make(chan struct{}), cancel: cancel}
}

// Ready returns a task that is already resolved. No goroutine is started.
func Ready[T any](value T, err error) *Task[T] {
	t := newTask[T](nil)
	t.resolve(value, err)
	return t
}

// Fail is shorthand for an already-failed task.
func Fail[T any](err error) *Task[T] {
	var zero T
	return Ready(zero, err)
}

func (t *Task[T]) resolve(value T, err error) {
	t.once.Do(func() {
		t.value = value
		t.err = err
		close(t.done)
	})
}

// Done is closed once the task has resolved.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// IsReady reports whether the task has resolved.
func (t *Task[T]) IsReady() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Await blocks until the task resolves or ctx is done. A ctx expiring does
// not cancel the task; use Cancel for that.
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel requests cancellation. Work that already started may still run to
// completion; its result is discarded in favour of context.Canceled.
func (t *Task[T]) Cancel() {
	if t.cancel != nil {
		t.cancel()
	}
	var zero T
	t.resolve(zero, context.Canceled)
}

// run executes fn, converting a panic into an error on the task.
func (t *Task[T]) run(ctx context.Context, fn func(ctx context.Context) (T, error)) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			t.resolve(zero, fmt.Errorf("task panicked: %v", r))
		}
	}()
	value, err := fn(ctx)
	t.resolve(value, err)
}
