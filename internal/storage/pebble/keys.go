package pebblestore

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

// Reader is satisfied by *pebble.DB, *pebble.Snapshot and indexed batches.
type Reader interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

// PrefixEnd returns the smallest key greater than every key with prefix p,
// or nil when no such key exists (p is all 0xff).
func PrefixEnd(p []byte) []byte {
	end := append([]byte(nil), p...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// KV is a copied key/value pair returned by scans.
type KV struct {
	Key   []byte
	Value []byte
}

// ScanPrefix returns every key/value under prefix in key order, up to limit
// entries (0 means no limit).
func ScanPrefix(r Reader, prefix []byte, limit int) ([]KV, error) {
	it, err := r.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: PrefixEnd(prefix)})
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []KV
	for ok := it.First(); ok; ok = it.Next() {
		out = append(out, KV{
			Key:   append([]byte(nil), it.Key()...),
			Value: append([]byte(nil), it.Value()...),
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, it.Error()
}

// GetCopy reads key through r, copying the value. Missing keys return
// ErrNotFound.
func GetCopy(r Reader, key []byte) ([]byte, error) {
	val, closer, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}

// DeleteSubtree records, in b, the removal of node and every key below
// node+sep. Keys that merely share node as a byte prefix are left alone.
func DeleteSubtree(b *pebble.Batch, node []byte, sep byte) error {
	if err := b.Delete(node, nil); err != nil {
		return err
	}
	lo := append(append([]byte(nil), node...), sep)
	hi := append(append([]byte(nil), node...), sep+1)
	if err := b.DeleteRange(lo, hi, nil); err != nil {
		return errors.Wrap(err, "pebble: delete range")
	}
	return nil
}

// Reader returns the database as a Reader.
func (db *DB) Reader() Reader { return db.inner }
