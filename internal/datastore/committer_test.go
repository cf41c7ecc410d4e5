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

func TestCommitterAppliesInSubmissionOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	c := NewCommitter(func(ops []Op) error {
		mu.Lock()
		defer mu.Unlock()
		for _, op := range ops {
			seen = append(seen, op.Path.String())
		}
		return nil
	})

	var futures []*Future
	for _, name := range []string{"a", "b", "c"} {
		tx := NewWriteTxn(c)
		tx.Merge(NewPath(Node(name)), Leaves{"k": "v"}, true)
		futures = append(futures, tx.Submit())
	}
	for _, f := range futures {
		require.NoError(t, f.Wait(context.Background()))
	}
	c.Close()

	assert.Equal(t, []string{"/a", "/b", "/c"}, seen)
	assert.Equal(t, 0, c.Pending())
}

func TestCommitterSubmitDoesNotBlockOnSlowApply(t *testing.T) {
	release := make(chan struct{})
	c := NewCommitter(func(ops []Op) error {
		<-release
		return nil
	})

	start := time.Now()
	var futures []*Future
	for i := 0; i < 100; i++ {
		futures = append(futures, NewWriteTxn(c).Submit())
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 100, c.Pending())

	close(release)
	for _, f := range futures {
		require.NoError(t, f.Wait(context.Background()))
	}
	c.Close()
}

func TestCommitterPropagatesErrorsAndCloses(t *testing.T) {
	boom := errors.New("boom")
	c := NewCommitter(func(ops []Op) error { return boom })

	f := NewWriteTxn(c).Submit()
	require.ErrorIs(t, f.Wait(context.Background()), boom)

	c.Close()
	after := NewWriteTxn(c).Submit()
	assert.ErrorIs(t, after.Wait(context.Background()), ErrClosed)
}

func TestWriteTxnSubmitTwice(t *testing.T) {
	c := NewCommitter(func(ops []Op) error { return nil })
	defer c.Close()

	tx := NewWriteTxn(c)
	leaves := Leaves{"a": "1"}
	tx.Merge(NewPath(Node("x")), leaves, false)
	leaves["a"] = "mutated"
	tx.Delete(NewPath(Node("y")))

	ops := tx.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, "1", ops[0].Leaves["a"], "merge must copy leaves")
	assert.Equal(t, OpDelete, ops[1].Kind)

	require.NoError(t, tx.Submit().Wait(context.Background()))
	assert.ErrorIs(t, tx.Submit().Wait(context.Background()), ErrAlreadySubmitted)
}
