package datastore

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotFound is returned by reads of an absent node.
	ErrNotFound = errors.New("datastore: node not found")
	// ErrMissingParent fails a write whose parent node is absent and whose
	// operation did not ask for missing ancestors to be created.
	ErrMissingParent = errors.New("datastore: parent node does not exist")
	// ErrClosed resolves submissions made after the store was closed.
	ErrClosed = errors.New("datastore: store closed")
	// ErrAlreadySubmitted resolves a second Submit of the same transaction.
	ErrAlreadySubmitted = errors.New("datastore: transaction already submitted")
)

// Leaves are the scalar values stored at one node, keyed by leaf name.
type Leaves map[string]string

// Clone returns an independent copy.
func (l Leaves) Clone() Leaves {
	if l == nil {
		return nil
	}
	out := make(Leaves, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// OpKind identifies a recorded write.
type OpKind int

const (
	OpMerge OpKind = iota + 1
	OpPut
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpMerge:
		return "merge"
	case OpPut:
		return "put"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Op is one recorded write of a transaction.
type Op struct {
	Kind          OpKind
	Path          Path
	Leaves        Leaves
	CreateMissing bool
}

// CommitError reports which operation of a transaction failed to apply.
type CommitError struct {
	Op   OpKind
	Path Path
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("datastore: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// Transaction records writes and applies them atomically on Submit.
//
// Merge overlays leaves onto the node at path, creating it if absent. Put
// replaces the node and drops its subtree. With createMissing, absent
// ancestors are created as empty containers; otherwise an absent parent fails
// the whole transaction with ErrMissingParent. Delete removes the node and
// its subtree; deleting an absent node succeeds.
type Transaction interface {
	Merge(path Path, leaves Leaves, createMissing bool)
	Put(path Path, leaves Leaves, createMissing bool)
	Delete(path Path)
	// Submit hands the transaction to the store and returns immediately.
	Submit() *Future
}

// Broker hands out independent write transactions.
type Broker interface {
	NewTransaction() Transaction
}

// Reader exposes committed state.
type Reader interface {
	Read(ctx context.Context, path Path) (Leaves, error)
	Exists(ctx context.Context, path Path) (bool, error)
	// Children lists the direct child paths of path in key order.
	Children(ctx context.Context, path Path) ([]Path, error)
}

// Store is a Broker with read access and a lifecycle.
type Store interface {
	Broker
	Reader
	// Pending reports transactions submitted but not yet resolved.
	Pending() int
	// Close drains submitted transactions and fails later ones with ErrClosed.
	Close() error
}
