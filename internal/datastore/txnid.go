package datastore

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync"
	"time"
)

// TxnID identifies a submitted transaction: 16 bytes big-endian,
// [8 bytes unix ms][8 bytes sequence]. IDs handed out by one Committer sort
// in submission order. The zero TxnID marks a transaction that never reached
// a committer.
type TxnID [16]byte

// String returns the hex form.
func (i TxnID) String() string { return hex.EncodeToString(i[:]) }

// IsZero reports whether i is the zero ID.
func (i TxnID) IsZero() bool { return i == TxnID{} }

// Time returns the millisecond timestamp embedded in i.
func (i TxnID) Time() time.Time {
	return time.UnixMilli(int64(binary.BigEndian.Uint64(i[0:8])))
}

// Compare returns -1, 0 or 1.
func (i TxnID) Compare(other TxnID) int { return bytes.Compare(i[:], other[:]) }

// txnIDs hands out increasing TxnIDs. A clock that goes backwards is pinned
// to the last seen millisecond; a sequence overflow moves to the next one.
type txnIDs struct {
	mu     sync.Mutex
	now    func() int64
	lastMs int64
	seq    uint64
}

func newTxnIDs() *txnIDs {
	return &txnIDs{now: func() int64 { return time.Now().UnixMilli() }}
}

func (g *txnIDs) next() TxnID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now()
	if ms < g.lastMs {
		ms = g.lastMs
	}
	switch {
	case ms > g.lastMs:
		g.seq = 0
	case g.seq == math.MaxUint64:
		ms++
		g.seq = 0
	default:
		g.seq++
	}
	g.lastMs = ms

	var id TxnID
	binary.BigEndian.PutUint64(id[0:8], uint64(ms))
	binary.BigEndian.PutUint64(id[8:16], g.seq)
	return id
}
