package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-redis/redismock/v8"
	cfgpkg "github.com/rzbill/streamsync/internal/config"
	"github.com/rzbill/streamsync/internal/notification"
	"github.com/rzbill/streamsync/internal/streamsync"
	logpkg "github.com/rzbill/streamsync/pkg/log"
)

func testConfig(dir string) cfgpkg.Config {
	cfg := cfgpkg.Default()
	cfg.DataDir = dir
	cfg.Fsync = "never"
	return cfg
}

func settle(t *testing.T, rt *Runtime) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Synchronizer().Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func names(ss []notification.Stream) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s.Name)
	}
	return out
}

func TestOpenCloseHealth(t *testing.T) {
	rt, err := Open(Options{Config: testConfig(t.TempDir()), Logger: logpkg.NewNopLogger()})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	defer rt.Close()
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if rt.Ready() {
		t.Fatalf("runtime should not be ready before start")
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Backend = "etcd"
	if _, err := Open(Options{Config: cfg}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	cfg = testConfig(t.TempDir())
	cfg.Fsync = "sometimes"
	if _, err := Open(Options{Config: cfg}); err == nil {
		t.Fatalf("expected error for bad fsync mode")
	}
}

func TestStartMirrorsStreamsAndCloseClearsThem(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	rt, err := Open(Options{Config: testConfig(dir), Logger: logpkg.NewNopLogger()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := rt.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !rt.Ready() {
		t.Fatalf("runtime should be ready after start")
	}
	if err := rt.Collector().RegisterStream(notification.Stream{Name: "audit", Description: "audit trail"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	settle(t, rt)

	got, err := rt.ListStreams(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Name != notification.BaseStreamName || got[1].Name != "audit" {
		t.Fatalf("unexpected streams: %v", names(got))
	}
	s, err := rt.GetStream(ctx, "audit")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.Description != "audit trail" {
		t.Fatalf("description: %q", s.Description)
	}
	if _, err := rt.GetStream(ctx, "missing"); !errors.Is(err, ErrStreamNotFound) {
		t.Fatalf("expected ErrStreamNotFound, got %v", err)
	}
	if rt.Storage().Commits == 0 {
		t.Fatalf("expected storage commits to be observed")
	}

	if err := rt.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	cfg := testConfig(dir)
	cfg.BaseStream.Enabled = false
	reopened, err := Open(Options{Config: cfg, Logger: logpkg.NewNopLogger()})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	ok, err := reopened.Store().Exists(ctx, streamsync.DefaultRoot)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatalf("owned root should be gone after close")
	}
}

func TestStreamsDirectory(t *testing.T) {
	streams := t.TempDir()
	if err := os.WriteFile(filepath.Join(streams, "audit.yaml"), []byte("name: audit\nreplaySupport: true\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := testConfig(t.TempDir())
	cfg.BaseStream.Enabled = false
	cfg.StreamsDir = streams
	cfg.StreamsDebounceMs = 10
	rt, err := Open(Options{Config: cfg, Logger: logpkg.NewNopLogger()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()
	if err := rt.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		settle(t, rt)
		got, err := rt.ListStreams(context.Background())
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) == 1 && got[0].Name == "audit" && got[0].ReplaySupport {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("stream from directory never recorded: %v", names(got))
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRedisBackendHealth(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cfg := testConfig(t.TempDir())
	cfg.Backend = cfgpkg.BackendRedis
	rt, err := Open(Options{Config: cfg, Logger: logpkg.NewNopLogger(), Redis: client})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if rt.DB() != nil {
		t.Fatalf("redis backend should not open pebble")
	}

	mock.ExpectPing().SetVal("PONG")
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	mock.ExpectPing().SetErr(errors.New("connection refused"))
	if err := rt.CheckHealth(context.Background()); err == nil {
		t.Fatalf("expected health error")
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("redis expectations: %v", err)
	}
}
