package datastore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureResolvesOnce(t *testing.T) {
	f, resolve := NewFuture()
	first := errors.New("first")
	resolve(first)
	resolve(errors.New("second"))
	require.ErrorIs(t, f.Wait(context.Background()), first)
}

func TestFutureWaitHonoursContext(t *testing.T) {
	f, _ := NewFuture()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.Wait(ctx), context.DeadlineExceeded)
}

func TestOnCompleteAfterResolutionRunsOnAnotherGoroutine(t *testing.T) {
	f := FailedFuture(ErrClosed)

	var mu sync.Mutex
	mu.Lock()
	got := make(chan error, 1)
	// The callback would deadlock if it ran synchronously while mu is held.
	f.OnComplete(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		got <- err
	})
	mu.Unlock()

	select {
	case err := <-got:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("callback never ran")
	}
}

func TestOnCompleteBeforeResolution(t *testing.T) {
	f, resolve := NewFuture()
	got := make(chan error, 1)
	f.OnComplete(func(err error) { got <- err })
	resolve(nil)
	select {
	case err := <-got:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("callback never ran")
	}
}
