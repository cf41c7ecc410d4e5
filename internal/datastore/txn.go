package datastore

import "sync"

// WriteTxn is the Transaction implementation shared by the store backends:
// it records operations and hands them to a Committer on Submit.
type WriteTxn struct {
	mu        sync.Mutex
	ops       []Op
	submitted bool
	committer *Committer
}

// NewWriteTxn returns a transaction submitting to c.
func NewWriteTxn(c *Committer) *WriteTxn { return &WriteTxn{committer: c} }

func (t *WriteTxn) record(op Op) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.submitted {
		return
	}
	t.ops = append(t.ops, op)
}

// Merge implements Transaction.
func (t *WriteTxn) Merge(path Path, leaves Leaves, createMissing bool) {
	t.record(Op{Kind: OpMerge, Path: path, Leaves: leaves.Clone(), CreateMissing: createMissing})
}

// Put implements Transaction.
func (t *WriteTxn) Put(path Path, leaves Leaves, createMissing bool) {
	t.record(Op{Kind: OpPut, Path: path, Leaves: leaves.Clone(), CreateMissing: createMissing})
}

// Delete implements Transaction.
func (t *WriteTxn) Delete(path Path) {
	t.record(Op{Kind: OpDelete, Path: path})
}

// Ops returns the recorded operations.
func (t *WriteTxn) Ops() []Op {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Op(nil), t.ops...)
}

// Submit implements Transaction.
func (t *WriteTxn) Submit() *Future {
	t.mu.Lock()
	if t.submitted {
		t.mu.Unlock()
		return FailedFuture(ErrAlreadySubmitted)
	}
	t.submitted = true
	ops := t.ops
	t.mu.Unlock()
	return t.committer.Submit(ops)
}
