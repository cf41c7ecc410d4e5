package datastore

import (
	"context"
	"sync"
)

// Future is the eventual outcome of a submitted transaction.
type Future struct {
	id        TxnID
	done      chan struct{}
	mu        sync.Mutex
	resolved  bool
	err       error
	callbacks []func(error)
}

// NewFuture returns an unresolved Future and the function that resolves it.
// Only the first call to resolve has an effect. Callbacks registered before
// resolution run on the resolving goroutine.
func NewFuture() (*Future, func(error)) {
	f := &Future{done: make(chan struct{})}
	return f, f.resolve
}

// FailedFuture returns a Future already resolved with err.
func FailedFuture(err error) *Future {
	f, resolve := NewFuture()
	resolve(err)
	return f
}

func (f *Future) resolve(err error) {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return
	}
	f.resolved = true
	f.err = err
	cbs := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(err)
	}
}

// ID returns the transaction ID assigned at submission, or the zero ID for a
// transaction rejected before reaching a committer.
func (f *Future) ID() TxnID { return f.id }

// Done is closed once the outcome is known.
func (f *Future) Done() <-chan struct{} { return f.done }

// Err returns the outcome, or nil while unresolved.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnComplete registers cb to receive the outcome. cb never runs on the
// calling goroutine: if the future is already resolved it is started on a
// new goroutine.
func (f *Future) OnComplete(cb func(error)) {
	f.mu.Lock()
	if !f.resolved {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	err := f.err
	f.mu.Unlock()
	go cb(err)
}
