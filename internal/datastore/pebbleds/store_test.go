package pebbleds

import (
	"context"
	"testing"

	"github.com/rzbill/streamsync/internal/datastore"
	pebblestore "github.com/rzbill/streamsync/internal/storage/pebble"
	logpkg "github.com/rzbill/streamsync/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	root    = datastore.NewPath(datastore.Node("netconf"))
	streams = root.Child(datastore.Node("streams"))
)

func entry(name string) datastore.Path {
	return streams.Child(datastore.Keyed("stream", "name", name))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	require.NoError(t, err)
	s := New(db, Options{Logger: logpkg.NewNopLogger()})
	t.Cleanup(func() {
		_ = s.Close()
		_ = db.Close()
	})
	return s
}

func commit(t *testing.T, tx datastore.Transaction) error {
	t.Helper()
	return tx.Submit().Wait(context.Background())
}

func TestMergeCreatesAncestorsAndOverlays(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx := s.NewTransaction()
	tx.Merge(entry("NETCONF"), datastore.Leaves{"name": "NETCONF", "description": "default"}, true)
	require.NoError(t, commit(t, tx))

	for _, p := range []datastore.Path{root, streams} {
		ok, err := s.Exists(ctx, p)
		require.NoError(t, err)
		assert.True(t, ok, p.String())
	}

	tx = s.NewTransaction()
	tx.Merge(entry("NETCONF"), datastore.Leaves{"replay-support": "true"}, true)
	require.NoError(t, commit(t, tx))

	got, err := s.Read(ctx, entry("NETCONF"))
	require.NoError(t, err)
	assert.Equal(t, datastore.Leaves{"name": "NETCONF", "description": "default", "replay-support": "true"}, got)
}

func TestMergeWithoutCreateMissingFailsAtomically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx := s.NewTransaction()
	tx.Merge(root, datastore.Leaves{}, false)
	tx.Merge(entry("X"), datastore.Leaves{"name": "X"}, false)
	err := commit(t, tx)
	require.ErrorIs(t, err, datastore.ErrMissingParent)

	var ce *datastore.CommitError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, datastore.OpMerge, ce.Op)

	ok, err := s.Exists(ctx, root)
	require.NoError(t, err)
	assert.False(t, ok, "first op of a failed transaction must not be applied")
}

func TestPutReplacesSubtree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx := s.NewTransaction()
	tx.Merge(entry("A"), datastore.Leaves{"name": "A", "old": "1"}, true)
	require.NoError(t, commit(t, tx))

	tx = s.NewTransaction()
	tx.Put(streams, datastore.Leaves{}, true)
	require.NoError(t, commit(t, tx))

	children, err := s.Children(ctx, streams)
	require.NoError(t, err)
	assert.Empty(t, children)

	tx = s.NewTransaction()
	tx.Put(entry("A"), datastore.Leaves{"name": "A"}, true)
	require.NoError(t, commit(t, tx))
	got, err := s.Read(ctx, entry("A"))
	require.NoError(t, err)
	assert.Equal(t, datastore.Leaves{"name": "A"}, got)
}

func TestDeleteSubtreeAndAbsentDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx := s.NewTransaction()
	tx.Merge(entry("NETCONF"), datastore.Leaves{"name": "NETCONF"}, true)
	tx.Merge(entry("NETCONF-other"), datastore.Leaves{"name": "NETCONF-other"}, true)
	tx.Merge(datastore.NewPath(datastore.Node("netconfig")), datastore.Leaves{"keep": "me"}, true)
	require.NoError(t, commit(t, tx))

	tx = s.NewTransaction()
	tx.Delete(entry("NETCONF"))
	require.NoError(t, commit(t, tx))

	children, err := s.Children(ctx, streams)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "/netconf/streams/stream[name=NETCONF-other]", children[0].String())

	tx = s.NewTransaction()
	tx.Delete(entry("never-registered"))
	require.NoError(t, commit(t, tx), "deleting an absent node succeeds")

	tx = s.NewTransaction()
	tx.Delete(root)
	require.NoError(t, commit(t, tx))

	for _, p := range []datastore.Path{root, streams, entry("NETCONF-other")} {
		ok, err := s.Exists(ctx, p)
		require.NoError(t, err)
		assert.False(t, ok, p.String())
	}
	ok, err := s.Exists(ctx, datastore.NewPath(datastore.Node("netconfig")))
	require.NoError(t, err)
	assert.True(t, ok, "sibling sharing a byte prefix must survive")
}

func TestChildrenOnlyListsDirectChildren(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx := s.NewTransaction()
	tx.Merge(entry("B"), datastore.Leaves{"name": "B"}, true)
	tx.Merge(entry("A").Child(datastore.Node("replay")), datastore.Leaves{"x": "1"}, true)
	require.NoError(t, commit(t, tx))

	children, err := s.Children(ctx, streams)
	require.NoError(t, err)
	var names []string
	for _, c := range children {
		last, _ := c.Last()
		names = append(names, last.KeyValue)
	}
	assert.Equal(t, []string{"A", "B"}, names)

	top, err := s.Children(ctx, datastore.RootPath)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.True(t, top[0].Equal(root))
}

func TestSubmitAfterClose(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())
	tx := s.NewTransaction()
	tx.Delete(root)
	assert.ErrorIs(t, commit(t, tx), datastore.ErrClosed)
}
