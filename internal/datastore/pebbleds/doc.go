// Package pebbleds implements the datastore contract on Pebble.
//
// Example:
//
//	db, _ := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
//	store := pebbleds.New(db, pebbleds.Options{})
//	defer db.Close()
//	defer store.Close()
//
//	tx := store.NewTransaction()
//	tx.Merge(path, datastore.Leaves{"name": "NETCONF"}, true)
//	tx.Submit().OnComplete(func(err error) { /* log */ })
package pebbleds
