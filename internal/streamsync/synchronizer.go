package streamsync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rzbill/streamsync/internal/datastore"
	"github.com/rzbill/streamsync/internal/notification"
	logpkg "github.com/rzbill/streamsync/pkg/log"
)

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("streamsync: already started")

// StreamCollector is the event source a Synchronizer listens to.
type StreamCollector interface {
	RegisterStreamListener(notification.StreamListener) (notification.Registration, error)
}

// State is the lifecycle position of a Synchronizer.
type State int32

const (
	StateUnstarted State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger.
func WithLogger(l logpkg.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRoot changes the owned subtree. Streams live at
// {root}/streams/stream[name=...] and Close deletes root.
func WithRoot(root datastore.Path) Option {
	return func(s *Synchronizer) { s.root = root }
}

// Synchronizer mirrors stream availability reported by a StreamCollector into
// a datastore. Every event becomes one transaction, submitted without
// waiting for the commit; failed commits are logged and dropped. Close
// deletes the whole owned subtree and releases the listener registration.
//
// The datastore is the only record of streams: the Synchronizer keeps no
// copy, and it does not order events for the same stream beyond the order in
// which their transactions are submitted.
type Synchronizer struct {
	collector StreamCollector
	broker    datastore.Broker
	logger    logpkg.Logger
	root      datastore.Path

	// mu orders lifecycle transitions against handler submissions: handlers
	// hold it shared from the state check through Submit, so nothing they
	// submit can land behind the teardown delete.
	mu           sync.RWMutex
	state        atomic.Int32
	registration notification.Registration

	idleMu  sync.Mutex
	pending int
	idle    []chan struct{}
	stats   stats
}

var _ notification.StreamListener = (*Synchronizer)(nil)

// New returns an unstarted Synchronizer.
func New(collector StreamCollector, broker datastore.Broker, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		collector: collector,
		broker:    broker,
		root:      DefaultRoot,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logpkg.NewLogger().With(logpkg.Component("streamsync"))
	}
	return s
}

// Start registers the Synchronizer as a stream listener. The collector may
// replay already available streams before Start returns; those events are
// handled like any other. A registration failure is returned and leaves the
// Synchronizer unstarted.
func (s *Synchronizer) Start() error {
	s.mu.Lock()
	if State(s.state.Load()) != StateUnstarted {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state.Store(int32(StateActive))
	s.mu.Unlock()

	// Replayed events call back into the handlers, so registration runs
	// without mu held.
	reg, err := s.collector.RegisterStreamListener(s)

	s.mu.Lock()
	if err != nil {
		if State(s.state.Load()) == StateActive {
			s.state.Store(int32(StateUnstarted))
		}
		s.mu.Unlock()
		return errors.Wrap(err, "streamsync: register stream listener")
	}
	if State(s.state.Load()) == StateClosed {
		// Closed while registering: Close found no registration to release.
		s.mu.Unlock()
		if err := reg.Close(); err != nil {
			return errors.Wrap(err, "streamsync: release stream listener")
		}
		return nil
	}
	s.registration = reg
	s.mu.Unlock()
	s.logger.Info("stream synchronizer started", logpkg.Str("root", s.root.String()), logpkg.Str("registration", reg.ID()))
	return nil
}

// OnStreamRegistered merges stream into {root}/streams/stream[name].
func (s *Synchronizer) OnStreamRegistered(stream notification.Stream) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.State() == StateClosed {
		s.logger.Debug("ignoring stream registration after close", logpkg.Str(logpkg.StreamKey, string(stream.Name)))
		return
	}
	tx := s.broker.NewTransaction()
	tx.Merge(StreamPath(s.root, stream.Name), stream.Leaves(), true)
	s.submit(opRegister, tx, "stream registered", "unable to register stream",
		logpkg.Str(logpkg.StreamKey, string(stream.Name)))
}

// OnStreamUnregistered deletes {root}/streams/stream[name].
func (s *Synchronizer) OnStreamUnregistered(name notification.StreamName) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.State() == StateClosed {
		s.logger.Debug("ignoring stream unregistration after close", logpkg.Str(logpkg.StreamKey, string(name)))
		return
	}
	tx := s.broker.NewTransaction()
	tx.Delete(StreamPath(s.root, name))
	s.submit(opUnregister, tx, "stream unregistered", "unable to unregister stream",
		logpkg.Str(logpkg.StreamKey, string(name)))
}

// Close submits the deletion of the owned root and then releases the
// listener registration. Handler submissions already under way are queued
// ahead of the deletion; later ones are ignored. Close does not wait for the
// deletion to commit; use Wait for that. Closing an unstarted or closed
// Synchronizer does nothing.
func (s *Synchronizer) Close() error {
	s.mu.Lock()
	switch State(s.state.Load()) {
	case StateUnstarted:
		s.state.Store(int32(StateClosed))
		s.mu.Unlock()
		return nil
	case StateClosed:
		s.mu.Unlock()
		return nil
	}
	s.state.Store(int32(StateClosed))

	tx := s.broker.NewTransaction()
	tx.Delete(s.root)
	s.submit(opClear, tx, "streams cleared", "unable to clear streams",
		logpkg.Str("root", s.root.String()))

	reg := s.registration
	s.registration = nil
	s.mu.Unlock()

	// Release waits for a delivery in progress, which may be blocked on mu.
	if reg != nil {
		if err := reg.Close(); err != nil {
			return errors.Wrap(err, "streamsync: release stream listener")
		}
	}
	s.logger.Info("stream synchronizer closed")
	return nil
}

// State returns the lifecycle state.
func (s *Synchronizer) State() State { return State(s.state.Load()) }

// Root returns the owned subtree.
func (s *Synchronizer) Root() datastore.Path { return s.root }

// Pending reports submitted transactions whose outcome has not been logged.
func (s *Synchronizer) Pending() int {
	s.idleMu.Lock()
	defer s.idleMu.Unlock()
	return s.pending
}

// Wait blocks until every submitted transaction has resolved or ctx is done.
func (s *Synchronizer) Wait(ctx context.Context) error {
	s.idleMu.Lock()
	if s.pending == 0 {
		s.idleMu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	s.idle = append(s.idle, ch)
	s.idleMu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Synchronizer) track(delta int) {
	s.idleMu.Lock()
	defer s.idleMu.Unlock()
	s.pending += delta
	if s.pending == 0 {
		for _, ch := range s.idle {
			close(ch)
		}
		s.idle = nil
	}
}

func (s *Synchronizer) submit(op string, tx datastore.Transaction, okMsg, failMsg string, fields ...logpkg.Field) {
	start := time.Now()
	s.track(1)
	s.stats.submitted(op)

	fut := tx.Submit()
	if id := fut.ID(); !id.IsZero() {
		fields = append(fields, logpkg.Str("txn", id.String()))
	}
	fut.OnComplete(func(err error) {
		defer s.track(-1)
		s.stats.resolved(op, err)
		elapsed := logpkg.Dur("dur_ms", time.Since(start))
		if err != nil {
			s.logger.Warn(failMsg, append(fields, elapsed, logpkg.Err(err))...)
			return
		}
		s.logger.Debug(okMsg, append(fields, elapsed)...)
	})
}
