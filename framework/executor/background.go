package executor

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrStopped is returned for work submitted to an executor that has shut down.
var ErrStopped = errors.New("executor stopped")

// Background runs potentially slow work off the interactive context. At most
// Workers tasks execute at once; the rest wait for a slot.
type Background struct {
	sem     *semaphore.Weighted
	workers int
	ctx     context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	spawned atomic.Int64
}

// NewBackground builds a pool. workers <= 0 selects runtime.NumCPU().
func NewBackground(workers int) *Background {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Background{
		sem:     semaphore.NewWeighted(int64(workers)),
		workers: workers,
		ctx:     ctx,
		stop:    stop,
	}
}

// Workers reports the concurrency limit.
func (b *Background) Workers() int { return b.workers }

// Spawned reports how many tasks were ever submitted to the pool.
func (b *Background) Spawned() int64 { return b.spawned.Load() }

// Close cancels queued and running work and waits for workers to return.
func (b *Background) Close() {
	b.stop()
	b.wg.Wait()
}

// Spawn schedules fn on the pool and returns its task immediately.
func Spawn[T any](b *Background, fn func(ctx context.Context) (T, error)) *Task[T] {
	if b.ctx.Err() != nil {
		return Fail[T](ErrStopped)
	}
	ctx, cancel := context.WithCancel(b.ctx)
	task := newTask[T](cancel)
	b.spawned.Add(1)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer cancel()
		if err := b.sem.Acquire(ctx, 1); err != nil {
			var zero T
			task.resolve(zero, err)
			return
		}
		defer b.sem.Release(1)
		if ctx.Err() != nil {
			var zero T
			task.resolve(zero, ctx.Err())
			return
		}
		task.run(ctx, fn)
	}()
	return task
}
