package notification

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	logpkg "github.com/rzbill/streamsync/pkg/log"
)

var (
	ErrCollectorClosed = errors.New("notification: collector closed")
	ErrNilListener     = errors.New("notification: nil listener")
	ErrInvalidStream   = errors.New("notification: stream name is required")
)

// StreamListener is told when streams become available or unavailable.
// Callbacks for one listener never run concurrently with each other.
type StreamListener interface {
	OnStreamRegistered(stream Stream)
	OnStreamUnregistered(name StreamName)
}

// Registration is the handle returned by RegisterStreamListener. Once Close
// returns, the listener receives no further callbacks. Close must not be
// called from inside the listener's own callback.
type Registration interface {
	ID() string
	Close() error
}

// Collector tracks available streams and fans availability changes out to
// registered listeners on the caller's goroutine.
type Collector struct {
	logger logpkg.Logger

	mu        sync.Mutex
	streams   map[StreamName]Stream
	listeners map[string]*registration
	closed    bool
}

// NewCollector returns an empty collector.
func NewCollector(logger logpkg.Logger) *Collector {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("collector"))
	}
	return &Collector{
		logger:    logger,
		streams:   map[StreamName]Stream{},
		listeners: map[string]*registration{},
	}
}

// RegisterStreamListener adds l and immediately replays every currently
// available stream to it, in name order.
func (c *Collector) RegisterStreamListener(l StreamListener) (Registration, error) {
	if l == nil {
		return nil, ErrNilListener
	}
	reg := &registration{id: uuid.NewString(), listener: l, collector: c}

	// Hold the delivery lock across the replay so that a concurrent
	// RegisterStream cannot reach the listener ahead of it.
	reg.mu.Lock()
	defer reg.mu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrCollectorClosed
	}
	c.listeners[reg.id] = reg
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Debug("stream listener registered", logpkg.Str("registration", reg.id), logpkg.Int("streams", len(snapshot)))
	for _, s := range snapshot {
		l.OnStreamRegistered(s)
	}
	return reg, nil
}

// RegisterStream marks s available, replacing any previous definition, and
// notifies listeners.
func (c *Collector) RegisterStream(s Stream) error {
	if s.Name == "" {
		return ErrInvalidStream
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrCollectorClosed
	}
	c.streams[s.Name] = s
	targets := c.listenersLocked()
	c.mu.Unlock()

	c.logger.Debug("stream available", logpkg.Str(logpkg.StreamKey, string(s.Name)))
	for _, reg := range targets {
		reg.deliver(func(l StreamListener) { l.OnStreamRegistered(s) })
	}
	return nil
}

// UnregisterStream marks name unavailable and notifies listeners. Listeners
// are notified even when name was not known.
func (c *Collector) UnregisterStream(name StreamName) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	delete(c.streams, name)
	targets := c.listenersLocked()
	c.mu.Unlock()

	c.logger.Debug("stream unavailable", logpkg.Str(logpkg.StreamKey, string(name)))
	for _, reg := range targets {
		reg.deliver(func(l StreamListener) { l.OnStreamUnregistered(name) })
	}
}

// Streams returns the currently available streams in name order.
func (c *Collector) Streams() []Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Listeners reports the number of live registrations.
func (c *Collector) Listeners() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

// Close releases every registration and rejects further use.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	regs := c.listenersLocked()
	c.mu.Unlock()
	for _, reg := range regs {
		_ = reg.Close()
	}
}

func (c *Collector) snapshotLocked() []Stream {
	out := make([]Stream, 0, len(c.streams))
	for _, s := range c.streams {
		out = append(out, s)
	}
	sortStreams(out)
	return out
}

func (c *Collector) listenersLocked() []*registration {
	out := make([]*registration, 0, len(c.listeners))
	for _, r := range c.listeners {
		out = append(out, r)
	}
	return out
}

func (c *Collector) remove(id string) {
	c.mu.Lock()
	delete(c.listeners, id)
	c.mu.Unlock()
}

type registration struct {
	id        string
	listener  StreamListener
	collector *Collector

	// mu serializes deliveries with each other and with Close.
	mu       sync.Mutex
	released bool
}

func (r *registration) ID() string { return r.id }

func (r *registration) deliver(fn func(StreamListener)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	fn(r.listener)
}

func (r *registration) Close() error {
	r.mu.Lock()
	already := r.released
	r.released = true
	r.mu.Unlock()
	if !already {
		r.collector.remove(r.id)
		r.collector.logger.Debug("stream listener released", logpkg.Str("registration", r.id))
	}
	return nil
}
