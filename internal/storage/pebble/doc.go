// Package pebblestore provides a thin wrapper around Pebble with fsync policy,
// snapshots, plain and indexed batches, prefix scans, subtree deletes and a
// minimal metrics hook.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	// Atomic updates with batches
//	b := db.NewIndexedBatch()
//	_ = b.Set([]byte("ds/netconf"), []byte("{}"), nil)
//	_ = pebblestore.DeleteSubtree(b, []byte("ds/netconf/streams"), '/')
//	_ = db.CommitBatch(context.Background(), b)
//	b.Close()
//
//	kvs, _ := pebblestore.ScanPrefix(db.Reader(), []byte("ds/"), 0)
package pebblestore
