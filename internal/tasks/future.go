package tasks

import "context"

// Future is a write-once result handle. The producing goroutine resolves it
// exactly once; any number of consumers may Wait.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(v T, err error) {
	f.val = v
	f.err = err
	close(f.done)
}

// Wait blocks until the future resolves or ctx is cancelled, whichever comes
// first. Cancellation of the waiter does not cancel the running task; the
// task keeps its own context.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done reports whether the future has resolved without blocking.
func (f *Future[T]) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Resolved builds an already-resolved future. Handy for short-circuit paths
// that fail before any work is scheduled.
func Resolved[T any](v T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(v, err)
	return f
}
