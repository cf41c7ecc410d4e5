package runtime

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-redis/redis/v8"
	cfgpkg "github.com/rzbill/streamsync/internal/config"
	"github.com/rzbill/streamsync/internal/datastore"
	"github.com/rzbill/streamsync/internal/datastore/pebbleds"
	"github.com/rzbill/streamsync/internal/datastore/redisds"
	"github.com/rzbill/streamsync/internal/notification"
	pebblestore "github.com/rzbill/streamsync/internal/storage/pebble"
	"github.com/rzbill/streamsync/internal/streamsync"
	logpkg "github.com/rzbill/streamsync/pkg/log"
)

// ErrStreamNotFound is returned by GetStream for a name not in the store.
var ErrStreamNotFound = errors.New("stream not found")

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger logpkg.Logger
	// Redis replaces the client built from Config.Redis for the redis backend.
	Redis *redis.Client
}

// Runtime wires storage, the datastore, the notification collector and the
// stream synchronizer for a single-node instance.
type Runtime struct {
	config cfgpkg.Config
	logger logpkg.Logger
	root   datastore.Path

	db        *pebblestore.DB
	redis     *redis.Client
	ownsRedis bool
	store     datastore.Store
	storage   *StorageStats

	collector *notification.Collector
	sync      *streamsync.Synchronizer

	mu         sync.Mutex
	started    bool
	closed     bool
	stopSource context.CancelFunc
	sourceDone chan struct{}
}

// Open initializes the configured backend and returns an unstarted Runtime.
func Open(opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	root, err := datastore.ParsePath(cfg.Root)
	if err != nil {
		return nil, errors.Wrap(err, "runtime: root")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}

	rt := &Runtime{config: cfg, logger: logger, root: root, storage: &StorageStats{}}
	switch cfg.Backend {
	case cfgpkg.BackendRedis:
		rt.redis = opts.Redis
		if rt.redis == nil {
			rt.redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
			rt.ownsRedis = true
		}
		rt.store = redisds.New(rt.redis, redisds.Options{
			Prefix:  cfg.Redis.Prefix,
			Timeout: cfg.RedisTimeout(),
			Logger:  logger.WithComponent("redisds"),
		})
	default:
		mode, err := pebblestore.ParseFsyncMode(cfg.Fsync)
		if err != nil {
			return nil, err
		}
		db, err := pebblestore.Open(pebblestore.Options{
			DataDir:       cfg.DataDir,
			Fsync:         mode,
			FsyncInterval: cfg.FsyncInterval(),
			Metrics:       rt.storage,
		})
		if err != nil {
			return nil, err
		}
		rt.db = db
		rt.store = pebbleds.New(db, pebbleds.Options{Logger: logger.WithComponent("pebbleds")})
	}

	rt.collector = notification.NewCollector(logger.WithComponent("collector"))
	rt.sync = streamsync.New(rt.collector, rt.store,
		streamsync.WithRoot(root),
		streamsync.WithLogger(logger.WithComponent("streamsync")),
	)
	return rt, nil
}

// Start starts the synchronizer, announces the base stream and begins
// following the streams directory when one is configured.
func (r *Runtime) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("runtime: closed")
	}
	if r.started {
		return nil
	}
	if err := r.sync.Start(); err != nil {
		return err
	}
	r.started = true

	if bs := r.config.BaseStream; bs.Enabled {
		base := notification.Stream{
			Name:          notification.BaseStreamName,
			Description:   bs.Description,
			ReplaySupport: bs.ReplaySupport,
		}
		if err := r.collector.RegisterStream(base); err != nil {
			return err
		}
	}

	if dir := r.config.StreamsDir; dir != "" {
		src := notification.NewDirSource(dir, r.collector, r.logger.WithComponent("dirsource"), r.config.StreamsDebounce())
		ctx, cancel := context.WithCancel(context.Background())
		r.stopSource = cancel
		r.sourceDone = make(chan struct{})
		go func() {
			defer close(r.sourceDone)
			if err := src.Run(ctx); err != nil {
				r.logger.Error("stream directory source stopped", logpkg.Str("dir", dir), logpkg.Err(err))
			}
		}()
	}
	return nil
}

// Close stops the directory source, closes the synchronizer, gives its
// teardown up to ShutdownTimeout to commit, and then releases the store and
// the backend.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	if r.stopSource != nil {
		r.stopSource()
		<-r.sourceDone
	}

	var errs error
	if err := r.sync.Close(); err != nil {
		errs = errors.CombineErrors(errs, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.config.ShutdownTimeout())
	if err := r.sync.Wait(ctx); err != nil {
		r.logger.Warn("shutdown timeout before stream teardown committed", logpkg.Int("pending", r.sync.Pending()))
	}
	cancel()
	r.collector.Close()

	if err := r.store.Close(); err != nil {
		errs = errors.CombineErrors(errs, err)
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	if r.redis != nil && r.ownsRedis {
		if err := r.redis.Close(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

// CheckHealth performs a simple health check of the backend.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.redis != nil {
		return r.redis.Ping(ctx).Err()
	}
	if r.db == nil || r.db.Closed() {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// Ready reports whether the synchronizer is mirroring events.
func (r *Runtime) Ready() bool {
	return r.sync.State() == streamsync.StateActive
}

// ListStreams returns the streams recorded in the store, ordered by name.
func (r *Runtime) ListStreams(ctx context.Context) ([]notification.Stream, error) {
	children, err := r.store.Children(ctx, streamsync.StreamsPath(r.root))
	if err != nil {
		return nil, err
	}
	out := make([]notification.Stream, 0, len(children))
	for _, p := range children {
		if _, ok := streamsync.StreamNameOf(p); !ok {
			continue
		}
		leaves, err := r.store.Read(ctx, p)
		if errors.Is(err, datastore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, notification.StreamFromLeaves(leaves))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetStream returns one recorded stream.
func (r *Runtime) GetStream(ctx context.Context, name notification.StreamName) (notification.Stream, error) {
	leaves, err := r.store.Read(ctx, streamsync.StreamPath(r.root, name))
	if errors.Is(err, datastore.ErrNotFound) {
		return notification.Stream{}, errors.Wrapf(ErrStreamNotFound, "%s", name)
	}
	if err != nil {
		return notification.Stream{}, err
	}
	return notification.StreamFromLeaves(leaves), nil
}

// Collector exposes the in-process stream collector.
func (r *Runtime) Collector() *notification.Collector { return r.collector }

// Synchronizer exposes the stream synchronizer.
func (r *Runtime) Synchronizer() *streamsync.Synchronizer { return r.sync }

// Store exposes the datastore.
func (r *Runtime) Store() datastore.Store { return r.store }

// DB exposes the underlying DB for advanced operations (internal use only).
// It is nil for the redis backend.
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Storage returns Pebble commit and read counters.
func (r *Runtime) Storage() StorageSnapshot { return r.storage.Snapshot() }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Logger returns the runtime logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }
