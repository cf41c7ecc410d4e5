// Package streamsync keeps a hierarchical datastore in step with the
// notification streams a collector advertises.
//
// A Synchronizer registers itself as the collector's stream listener on
// Start. Each StreamRegistered event merges the stream's leaves at
// /netconf/streams/stream[name=...], creating missing ancestors, and each
// StreamUnregistered event deletes that entry. Every event is its own
// transaction and is submitted without waiting for the commit; a failed
// commit is logged as a warning and dropped. Close submits one transaction
// deleting /netconf and then releases the listener registration.
package streamsync
