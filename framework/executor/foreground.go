package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// AppContext is the application-wide handle passed to operations that do not
// need interactive state, such as argument completion.
type AppContext struct {
	background *Background
}

// NewAppContext wraps a background pool.
func NewAppContext(background *Background) *AppContext {
	return &AppContext{background: background}
}

// Background returns the pool for off-thread work.
func (a *AppContext) Background() *Background { return a.background }

// WindowContext is only ever handed out by the Foreground loop. Holding one
// means the caller is running on the interactive context and may read state
// owned by it.
type WindowContext struct {
	*AppContext
	foreground *Foreground
}

// Foreground returns the dispatcher that produced this context.
func (w *WindowContext) Foreground() *Foreground { return w.foreground }

type job struct {
	run  func(cx *WindowContext)
	drop func(err error)
}

// Foreground serializes access to interactive state on a single goroutine.
// Work is queued with Post or Dispatch and executed in order by Run.
type Foreground struct {
	app     *AppContext
	mu      sync.Mutex
	jobs    []job
	stopped bool
	wake    chan struct{}
	running atomic.Bool
}

// NewForeground builds a dispatcher whose window contexts share background.
func NewForeground(background *Background) *Foreground {
	return &Foreground{
		app:  NewAppContext(background),
		wake: make(chan struct{}, 1),
	}
}

// App returns the shared application context.
func (f *Foreground) App() *AppContext { return f.app }

// Run executes queued work until ctx is done. Work still queued when the loop
// exits is dropped with ErrStopped.
func (f *Foreground) Run(ctx context.Context) error {
	if !f.running.CompareAndSwap(false, true) {
		return errors.New("foreground already running")
	}
	cx := &WindowContext{AppContext: f.app, foreground: f}
	defer f.shutdown()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.wake:
		}
		for {
			f.mu.Lock()
			if len(f.jobs) == 0 {
				f.mu.Unlock()
				break
			}
			next := f.jobs[0]
			f.jobs = f.jobs[1:]
			f.mu.Unlock()
			if ctx.Err() != nil {
				next.drop(ErrStopped)
				continue
			}
			next.run(cx)
		}
	}
}

func (f *Foreground) shutdown() {
	f.mu.Lock()
	f.stopped = true
	pending := f.jobs
	f.jobs = nil
	f.mu.Unlock()
	for _, j := range pending {
		j.drop(ErrStopped)
	}
}

func (f *Foreground) post(j job) error {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return ErrStopped
	}
	f.jobs = append(f.jobs, j)
	f.mu.Unlock()
	select {
	case f.wake <- struct{}{}:
	default:
	}
	return nil
}

// Post queues fn without waiting for it.
func (f *Foreground) Post(fn func(cx *WindowContext)) error {
	return f.post(job{run: fn, drop: func(error) {}})
}

// Call runs fn on the interactive context and waits for it to return.
func (f *Foreground) Call(ctx context.Context, fn func(cx *WindowContext) error) error {
	result := make(chan error, 1)
	err := f.post(job{
		run: func(cx *WindowContext) {
			if ctx.Err() != nil {
				result <- ctx.Err()
				return
			}
			result <- fn(cx)
		},
		drop: func(err error) { result <- err },
	})
	if err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch schedules fn on the interactive context and returns a task that
// resolves with the task fn produces. If ctx is cancelled (or the returned
// task is cancelled) before the loop reaches fn, fn is never called.
func Dispatch[T any](ctx context.Context, f *Foreground, fn func(cx *WindowContext) *Task[T]) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)
	outer := newTask[T](cancel)
	var zero T
	err := f.post(job{
		run: func(cx *WindowContext) {
			if ctx.Err() != nil {
				outer.resolve(zero, ctx.Err())
				cancel()
				return
			}
			inner := fn(cx)
			if inner.IsReady() {
				outer.resolve(inner.value, inner.err)
				cancel()
				return
			}
			go func() {
				defer cancel()
				select {
				case <-inner.done:
					outer.resolve(inner.value, inner.err)
				case <-ctx.Done():
					inner.Cancel()
					outer.resolve(zero, ctx.Err())
				}
			}()
		},
		drop: func(err error) {
			outer.resolve(zero, err)
			cancel()
		},
	})
	if err != nil {
		cancel()
		return Fail[T](err)
	}
	return outer
}
