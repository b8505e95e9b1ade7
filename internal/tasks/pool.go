package tasks

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many submitted tasks run at once. Submission itself never
// blocks: each task runs on its own goroutine and waits for a semaphore slot
// there, so a caller holding a request thread is released immediately.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Drain blocks until every submitted task has finished. Used on shutdown.
func (p *Pool) Drain() {
	p.wg.Wait()
}

// Submit schedules fn on the pool and returns a future that resolves with its
// result. If ctx is cancelled before a slot frees up, the future resolves
// with the context error and fn never runs.
func Submit[T any](p *Pool, ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		if err := p.sem.Acquire(ctx, 1); err != nil {
			var zero T
			f.resolve(zero, err)
			return
		}
		defer p.sem.Release(1)

		v, err := fn(ctx)
		f.resolve(v, err)
	}()

	return f
}
