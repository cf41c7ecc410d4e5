package redisds

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-redis/redis/v8"
	"github.com/rzbill/streamsync/internal/datastore"
	logpkg "github.com/rzbill/streamsync/pkg/log"
)

const (
	// DefaultPrefix namespaces datastore hashes inside the Redis keyspace.
	DefaultPrefix = "streamsync:oper"
	// markerField is present on every node hash so that empty containers exist.
	markerField = "_node"
	scanCount   = 256
)

// Options configures a Store.
type Options struct {
	Prefix string
	// Timeout bounds each transaction's round trips. Defaults to 5s.
	Timeout time.Duration
	Logger  logpkg.Logger
}

// Store keeps datastore nodes as Redis hashes at {prefix}{encoded path}.
// Writes are pipelined inside MULTI/EXEC. Reads that a write depends on (parent
// existence, subtree key discovery) happen right before the MULTI on the same
// committer goroutine, so this backend is atomic per transaction only with a
// single writer per prefix.
type Store struct {
	client    *redis.Client
	prefix    string
	timeout   time.Duration
	committer *datastore.Committer
	logger    logpkg.Logger
}

var _ datastore.Store = (*Store)(nil)

// New returns a Store over client. The caller keeps ownership of client.
func New(client *redis.Client, opts Options) *Store {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewLogger().With(logpkg.Component("datastore"))
	}
	s := &Store{client: client, prefix: opts.Prefix, timeout: opts.Timeout, logger: opts.Logger}
	s.committer = datastore.NewCommitter(s.apply)
	return s
}

// NewTransaction implements datastore.Broker.
func (s *Store) NewTransaction() datastore.Transaction {
	return datastore.NewWriteTxn(s.committer)
}

// Pending implements datastore.Store.
func (s *Store) Pending() int { return s.committer.Pending() }

// Close implements datastore.Store. It does not close the client.
func (s *Store) Close() error {
	s.committer.Close()
	return nil
}

func (s *Store) key(p datastore.Path) string { return s.prefix + p.Encode() }

// subtreeKeys returns the keys of every descendant of p, excluding p itself.
func (s *Store) subtreeKeys(ctx context.Context, p datastore.Path) ([]string, error) {
	match := globEscape(s.key(p)) + "/*"
	var out []string
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(out)
	return out, nil
}

// plan is the write set of one transaction, computed before MULTI.
type plan struct {
	steps []func(pipe redis.Pipeliner)
}

func (s *Store) apply(ops []datastore.Op) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var pl plan
	// created tracks nodes this transaction has already written, so later
	// operations see them when checking for a parent.
	created := map[string]bool{}
	deleted := map[string]bool{}
	for _, op := range ops {
		if err := s.planOp(ctx, &pl, op, created, deleted); err != nil {
			return &datastore.CommitError{Op: op.Kind, Path: op.Path, Err: err}
		}
	}
	if len(pl.steps) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, step := range pl.steps {
			step(pipe)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "datastore: redis exec")
	}
	return nil
}

func (s *Store) planOp(ctx context.Context, pl *plan, op datastore.Op, created, deleted map[string]bool) error {
	switch op.Kind {
	case datastore.OpDelete:
		return s.planDelete(ctx, pl, op.Path, created, deleted)
	case datastore.OpMerge, datastore.OpPut:
		if op.Path.IsRoot() {
			return errors.New("cannot write the root node")
		}
		for _, anc := range op.Path.Ancestors() {
			k := s.key(anc)
			if op.CreateMissing {
				if !created[k] {
					pl.steps = append(pl.steps, func(pipe redis.Pipeliner) { pipe.HSet(ctx, k, markerField, "1") })
					created[k] = true
					delete(deleted, k)
				}
				continue
			}
			if created[k] {
				continue
			}
			if deleted[k] {
				return errors.Wrapf(datastore.ErrMissingParent, "%s", anc)
			}
			n, err := s.client.Exists(ctx, k).Result()
			if err != nil {
				return err
			}
			if n == 0 {
				return errors.Wrapf(datastore.ErrMissingParent, "%s", anc)
			}
		}
		if op.Kind == datastore.OpPut {
			if err := s.planDelete(ctx, pl, op.Path, created, deleted); err != nil {
				return err
			}
		}
		k := s.key(op.Path)
		args := hashArgs(op.Leaves)
		pl.steps = append(pl.steps, func(pipe redis.Pipeliner) { pipe.HSet(ctx, k, args...) })
		created[k] = true
		delete(deleted, k)
		return nil
	default:
		return errors.Newf("unknown op kind %d", op.Kind)
	}
}

func (s *Store) planDelete(ctx context.Context, pl *plan, p datastore.Path, created, deleted map[string]bool) error {
	sub, err := s.subtreeKeys(ctx, p)
	if err != nil {
		return err
	}
	keys := append([]string{s.key(p)}, sub...)
	pl.steps = append(pl.steps, func(pipe redis.Pipeliner) { pipe.Del(ctx, keys...) })
	for _, k := range keys {
		deleted[k] = true
		delete(created, k)
	}
	for k := range created {
		if strings.HasPrefix(k, s.key(p)+"/") {
			delete(created, k)
			deleted[k] = true
		}
	}
	return nil
}

// hashArgs flattens leaves into HSET field/value arguments, marker first and
// the rest in name order.
func hashArgs(l datastore.Leaves) []interface{} {
	names := make([]string, 0, len(l))
	for k := range l {
		if k == markerField {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)
	args := make([]interface{}, 0, 2+2*len(names))
	args = append(args, markerField, "1")
	for _, k := range names {
		args = append(args, k, l[k])
	}
	return args
}

// Read implements datastore.Reader.
func (s *Store) Read(ctx context.Context, p datastore.Path) (datastore.Leaves, error) {
	m, err := s.client.HGetAll(ctx, s.key(p)).Result()
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, datastore.ErrNotFound
	}
	delete(m, markerField)
	return datastore.Leaves(m), nil
}

// Exists implements datastore.Reader.
func (s *Store) Exists(ctx context.Context, p datastore.Path) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(p)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Children implements datastore.Reader.
func (s *Store) Children(ctx context.Context, p datastore.Path) ([]datastore.Path, error) {
	base := s.key(p) + "/"
	keys, err := s.subtreeKeys(ctx, p)
	if err != nil {
		return nil, err
	}
	var out []datastore.Path
	for _, k := range keys {
		rest := strings.TrimPrefix(k, base)
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}
		child, err := datastore.DecodePath(p.Encode() + "/" + rest)
		if err != nil {
			s.logger.Warn("skipping undecodable node", logpkg.Str("key", k), logpkg.Err(err))
			continue
		}
		out = append(out, child)
	}
	return out, nil
}

// globEscape escapes Redis MATCH metacharacters.
func globEscape(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
