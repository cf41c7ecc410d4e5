package serverrun

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/streamsync/internal/config"
	logpkg "github.com/rzbill/streamsync/pkg/log"
)

func TestStoreDir(t *testing.T) {
	tests := []struct {
		name     string
		dataDir  string
		expected string
	}{
		{
			name:     "provided data dir gets store subdirectory",
			dataDir:  "/custom/data",
			expected: filepath.Join("/custom/data", "store"),
		},
		{
			name:     "empty data dir uses default",
			dataDir:  "",
			expected: filepath.Join(cfgpkg.DefaultDataDir(), "store"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := storeDir(tt.dataDir); got != tt.expected {
				t.Errorf("storeDir(%q) = %s, expected %s", tt.dataDir, got, tt.expected)
			}
		})
	}
}

func TestBuildLogger(t *testing.T) {
	l := buildLogger(logpkg.Config{Level: "debug", Format: "json"})
	if l.GetLevel() != logpkg.DebugLevel {
		t.Errorf("expected debug level, got %v", l.GetLevel())
	}
	l = buildLogger(logpkg.Config{})
	if l.GetLevel() != logpkg.InfoLevel {
		t.Errorf("expected info default, got %v", l.GetLevel())
	}
	l = buildLogger(logpkg.Config{Level: "warn", Format: "xml"})
	if l.GetLevel() != logpkg.WarnLevel {
		t.Errorf("fallback should keep the parsed level, got %v", l.GetLevel())
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

// TestRunIntegration starts the full server, waits for the base stream to be
// served over HTTP and then cancels.
func TestRunIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := cfgpkg.Default()
	cfg.DataDir = t.TempDir()
	cfg.Fsync = "never"
	cfg.HTTPAddr = freeAddr(t)
	cfg.GRPCAddr = freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, Options{Config: cfg, Logger: logpkg.NewNopLogger()}) }()

	url := fmt.Sprintf("http://%s/v1/streams/NETCONF", cfg.HTTPAddr)
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			var s struct {
				Name string `json:"name"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&s)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK && s.Name == "NETCONF" {
				break
			}
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("base stream never served: %v", err)
		}
		time.Sleep(25 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
