package mutation

import "context"

// Pending is the eventual result of a store call.
type Pending[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newPending[T any]() *Pending[T] {
	return &Pending[T]{done: make(chan struct{})}
}

// Resolved returns a pending value that is already complete.
func Resolved[T any](v T, err error) *Pending[T] {
	p := newPending[T]()
	p.resolve(v, err)
	return p
}

func (p *Pending[T]) resolve(v T, err error) {
	p.val, p.err = v, err
	close(p.done)
}

// Done is closed once the result is available.
func (p *Pending[T]) Done() <-chan struct{} { return p.done }

// Wait blocks until the result is available or ctx ends. A cancelled wait
// does not cancel the underlying call.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the result without blocking. The bool is false while the
// call is still pending.
func (p *Pending[T]) Result() (T, bool, error) {
	select {
	case <-p.done:
		return p.val, true, p.err
	default:
		var zero T
		return zero, false, nil
	}
}
