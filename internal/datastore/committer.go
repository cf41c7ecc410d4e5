package datastore

import (
	"sync"
)

// ApplyFunc applies the operations of one transaction atomically.
type ApplyFunc func(ops []Op) error

type commitJob struct {
	ops     []Op
	resolve func(error)
}

// Committer applies submitted transactions one at a time, in submission
// order, on its own goroutine. Submission never blocks: the queue is
// unbounded.
type Committer struct {
	apply ApplyFunc
	ids   *txnIDs

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []commitJob
	running int
	closed  bool
	done    chan struct{}
}

// NewCommitter starts a committer goroutine around apply.
func NewCommitter(apply ApplyFunc) *Committer {
	c := &Committer{apply: apply, ids: newTxnIDs(), done: make(chan struct{})}
	c.cond = sync.NewCond(&c.mu)
	go c.loop()
	return c
}

// Submit enqueues ops and returns their Future, which carries a fresh TxnID.
func (c *Committer) Submit(ops []Op) *Future {
	f, resolve := NewFuture()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		resolve(ErrClosed)
		return f
	}
	f.id = c.ids.next()
	c.queue = append(c.queue, commitJob{ops: ops, resolve: resolve})
	c.cond.Signal()
	c.mu.Unlock()
	return f
}

// Pending reports queued plus in-progress transactions.
func (c *Committer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue) + c.running
}

// Close stops accepting work, waits for queued transactions to be applied
// and then returns.
func (c *Committer) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		c.cond.Signal()
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Committer) loop() {
	defer close(c.done)
	for {
		c.mu.Lock()
		for len(c.queue) == 0 && !c.closed {
			c.cond.Wait()
		}
		if len(c.queue) == 0 {
			c.mu.Unlock()
			return
		}
		jobs := c.queue
		c.queue = nil
		c.running = len(jobs)
		c.mu.Unlock()

		for _, j := range jobs {
			err := c.apply(j.ops)
			c.mu.Lock()
			c.running--
			c.mu.Unlock()
			j.resolve(err)
		}
	}
}
