package notification

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	logpkg "github.com/rzbill/streamsync/pkg/log"
	"gopkg.in/yaml.v3"
)

// Announcer is the write side of a Collector.
type Announcer interface {
	RegisterStream(Stream) error
	UnregisterStream(StreamName)
}

// DirSource announces streams defined by YAML files in a directory, one
// stream per *.yaml or *.yml file:
//
//	name: audit
//	description: security audit events
//	replaySupport: true
//	attributes:
//	  owner: secops
//
// A file that appears or changes registers its stream; a file that disappears
// unregisters the stream it last defined unless another file still defines
// the same name.
type DirSource struct {
	dir       string
	announcer Announcer
	logger    logpkg.Logger
	debounce  time.Duration

	mu    sync.Mutex
	files map[string]StreamName
}

// NewDirSource returns a source for dir. debounce coalesces bursts of writes
// to the same file; zero means 50ms.
func NewDirSource(dir string, announcer Announcer, logger logpkg.Logger, debounce time.Duration) *DirSource {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("dirsource"))
	}
	if debounce <= 0 {
		debounce = 50 * time.Millisecond
	}
	return &DirSource{dir: dir, announcer: announcer, logger: logger, debounce: debounce, files: map[string]StreamName{}}
}

// LoadStreamFile parses one stream definition.
func LoadStreamFile(path string) (Stream, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Stream{}, err
	}
	var s Stream
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Stream{}, errors.Wrapf(err, "parse %s", path)
	}
	if s.Name == "" {
		return Stream{}, errors.Wrapf(ErrInvalidStream, "%s", path)
	}
	return s, nil
}

func isStreamFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return (ext == ".yaml" || ext == ".yml") && !strings.HasPrefix(filepath.Base(name), ".")
}

// Scan loads every definition currently in the directory.
func (d *DirSource) Scan() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return errors.Wrapf(err, "read stream dir %s", d.dir)
	}
	for _, e := range entries {
		if e.IsDir() || !isStreamFile(e.Name()) {
			continue
		}
		d.load(filepath.Join(d.dir, e.Name()))
	}
	return nil
}

// Run scans the directory and then follows changes until ctx is done.
func (d *DirSource) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(d.dir); err != nil {
		return errors.Wrapf(err, "watch %s", d.dir)
	}
	if err := d.Scan(); err != nil {
		return err
	}
	d.logger.Info("watching stream definitions", logpkg.Str("dir", d.dir))

	pending := map[string]*time.Timer{}
	fire := make(chan string, 16)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isStreamFile(ev.Name) {
				continue
			}
			switch {
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				if t, ok := pending[ev.Name]; ok {
					t.Stop()
					delete(pending, ev.Name)
				}
				d.forget(ev.Name)
			case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
				name := ev.Name
				if t, ok := pending[name]; ok {
					t.Reset(d.debounce)
					continue
				}
				pending[name] = time.AfterFunc(d.debounce, func() {
					select {
					case fire <- name:
					case <-ctx.Done():
					}
				})
			}
		case name := <-fire:
			delete(pending, name)
			d.load(name)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			d.logger.Warn("stream dir watch error", logpkg.Err(err))
		}
	}
}

func (d *DirSource) load(path string) {
	s, err := LoadStreamFile(path)
	if err != nil {
		d.logger.Warn("skipping stream definition", logpkg.Str("file", path), logpkg.Err(err))
		return
	}
	d.mu.Lock()
	prev, had := d.files[path]
	d.files[path] = s.Name
	prevOrphaned := had && prev != s.Name && !d.definedLocked(prev)
	others := d.definedByLocked(s.Name, path)
	d.mu.Unlock()

	if len(others) > 0 {
		d.logger.Warn("stream defined by more than one file",
			logpkg.Str(logpkg.StreamKey, string(s.Name)), logpkg.Str("file", path), logpkg.Str("also", strings.Join(others, ",")))
	}
	if prevOrphaned {
		d.announcer.UnregisterStream(prev)
	}
	if err := d.announcer.RegisterStream(s); err != nil {
		d.logger.Warn("unable to announce stream", logpkg.Str(logpkg.StreamKey, string(s.Name)), logpkg.Err(err))
	}
}

// forget drops path and unregisters its stream once no other file defines it.
func (d *DirSource) forget(path string) {
	d.mu.Lock()
	name, ok := d.files[path]
	delete(d.files, path)
	orphaned := ok && !d.definedLocked(name)
	d.mu.Unlock()
	if orphaned {
		d.announcer.UnregisterStream(name)
	}
}

func (d *DirSource) definedLocked(name StreamName) bool {
	for _, n := range d.files {
		if n == name {
			return true
		}
	}
	return false
}

func (d *DirSource) definedByLocked(name StreamName, except string) []string {
	var out []string
	for p, n := range d.files {
		if n == name && p != except {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
