package pebbleds

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/rzbill/streamsync/internal/datastore"
	pebblestore "github.com/rzbill/streamsync/internal/storage/pebble"
	logpkg "github.com/rzbill/streamsync/pkg/log"
)

// DefaultPrefix namespaces datastore nodes inside the Pebble keyspace.
const DefaultPrefix = "ds/oper"

const sep = '/'

// Options configures a Store.
type Options struct {
	// Prefix is prepended to every node key. Defaults to DefaultPrefix.
	Prefix string
	Logger logpkg.Logger
}

// Store is a hierarchical datastore kept in Pebble.
//
// Keyspace:
//   - {prefix}{encoded path}   node record (JSON object of leaves)
//
// A node's subtree is every key under {prefix}{encoded path}/. Writes are
// applied by a single committer goroutine, each transaction as one indexed
// batch, so reads inside a transaction observe its earlier operations.
type Store struct {
	db        *pebblestore.DB
	prefix    string
	committer *datastore.Committer
	logger    logpkg.Logger
}

var _ datastore.Store = (*Store)(nil)

// New returns a Store over db. The caller keeps ownership of db and must
// close it after the Store.
func New(db *pebblestore.DB, opts Options) *Store {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewLogger().With(logpkg.Component("datastore"))
	}
	s := &Store{db: db, prefix: strings.TrimRight(opts.Prefix, "/"), logger: opts.Logger}
	s.committer = datastore.NewCommitter(s.apply)
	return s
}

// NewTransaction implements datastore.Broker.
func (s *Store) NewTransaction() datastore.Transaction {
	return datastore.NewWriteTxn(s.committer)
}

// Pending implements datastore.Store.
func (s *Store) Pending() int { return s.committer.Pending() }

// Close implements datastore.Store. It does not close the underlying DB.
func (s *Store) Close() error {
	s.committer.Close()
	return nil
}

func (s *Store) key(p datastore.Path) []byte {
	return []byte(s.prefix + p.Encode())
}

func (s *Store) apply(ops []datastore.Op) error {
	if s.db.Closed() {
		return datastore.ErrClosed
	}
	b := s.db.NewIndexedBatch()
	defer b.Close()

	for _, op := range ops {
		var err error
		switch op.Kind {
		case datastore.OpMerge:
			err = s.applyWrite(b, op, true)
		case datastore.OpPut:
			err = s.applyWrite(b, op, false)
		case datastore.OpDelete:
			err = pebblestore.DeleteSubtree(b, s.key(op.Path), sep)
		default:
			err = errors.Newf("unknown op kind %d", op.Kind)
		}
		if err != nil {
			return &datastore.CommitError{Op: op.Kind, Path: op.Path, Err: err}
		}
	}
	if err := s.db.CommitBatch(context.Background(), b); err != nil {
		return errors.Wrap(err, "datastore: commit")
	}
	return nil
}

func (s *Store) applyWrite(b *pebble.Batch, op datastore.Op, merge bool) error {
	if op.Path.IsRoot() {
		return errors.New("cannot write the root node")
	}
	if err := s.ensureParents(b, op.Path, op.CreateMissing); err != nil {
		return err
	}
	key := s.key(op.Path)
	leaves := datastore.Leaves{}
	if merge {
		existing, err := readNode(b, key)
		switch {
		case err == nil:
			leaves = existing
		case !errors.Is(err, datastore.ErrNotFound):
			return err
		}
	} else if err := pebblestore.DeleteSubtree(b, key, sep); err != nil {
		return err
	}
	for k, v := range op.Leaves {
		leaves[k] = v
	}
	val, err := json.Marshal(leaves)
	if err != nil {
		return err
	}
	return b.Set(key, val, nil)
}

func (s *Store) ensureParents(b *pebble.Batch, p datastore.Path, create bool) error {
	for _, anc := range p.Ancestors() {
		key := s.key(anc)
		_, err := pebblestore.GetCopy(b, key)
		if err == nil {
			continue
		}
		if !errors.Is(err, pebble.ErrNotFound) {
			return err
		}
		if !create {
			return errors.Wrapf(datastore.ErrMissingParent, "%s", anc)
		}
		if err := b.Set(key, []byte("{}"), nil); err != nil {
			return err
		}
	}
	return nil
}

func readNode(r pebblestore.Reader, key []byte) (datastore.Leaves, error) {
	raw, err := pebblestore.GetCopy(r, key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, datastore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	leaves := datastore.Leaves{}
	if err := json.Unmarshal(raw, &leaves); err != nil {
		return nil, errors.Wrapf(err, "datastore: decode node %s", key)
	}
	return leaves, nil
}

// Read implements datastore.Reader.
func (s *Store) Read(_ context.Context, p datastore.Path) (datastore.Leaves, error) {
	return readNode(s.db.Reader(), s.key(p))
}

// Exists implements datastore.Reader.
func (s *Store) Exists(ctx context.Context, p datastore.Path) (bool, error) {
	_, err := s.Read(ctx, p)
	if errors.Is(err, datastore.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Children implements datastore.Reader.
func (s *Store) Children(_ context.Context, p datastore.Path) ([]datastore.Path, error) {
	prefix := append(s.key(p), sep)
	kvs, err := pebblestore.ScanPrefix(s.db.Reader(), prefix, 0)
	if err != nil {
		return nil, err
	}
	var out []datastore.Path
	for _, kv := range kvs {
		rest := string(kv.Key[len(prefix):])
		if rest == "" || strings.IndexByte(rest, sep) >= 0 {
			continue
		}
		child, err := datastore.DecodePath(p.Encode() + "/" + rest)
		if err != nil {
			s.logger.Warn("skipping undecodable node", logpkg.Str("key", string(kv.Key)), logpkg.Err(err))
			continue
		}
		out = append(out, child)
	}
	return out, nil
}
