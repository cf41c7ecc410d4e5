package client

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// --- HTTP CLI tests ---

type apiStub struct {
	mu       sync.Mutex
	lastBody map[string]any
	filter   string
}

func (a *apiStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/streams", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.filter = r.URL.Query().Get("filter")
		a.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"streams": []map[string]any{
			{"name": "NETCONF", "replaySupport": false},
			{"name": "audit", "replaySupport": true},
		}})
	})
	mux.HandleFunc("/v1/streams/register", a.capture)
	mux.HandleFunc("/v1/streams/unregister", a.capture)
	mux.HandleFunc("/v1/streams/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Stream not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "NETCONF", "description": "default"})
	})
	return mux
}

func (a *apiStub) capture(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	a.mu.Lock()
	a.lastBody = body
	a.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

func (a *apiStub) last() (map[string]any, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastBody, a.filter
}

func startAPIStub(t *testing.T) (*apiStub, BaseURLFunc) {
	t.Helper()
	stub := &apiStub{}
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	return stub, func() string { return srv.URL }
}

func run(t *testing.T, baseURL BaseURLFunc, args ...string) (string, error) {
	t.Helper()
	cmd := NewRoot(baseURL)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestStreamsList_PrintsOneLinePerStream(t *testing.T) {
	stub, baseURL := startAPIStub(t)
	out, err := run(t, baseURL, "streams", "list", "--filter", "replay_support")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 output lines, got %d: %s", len(lines), out)
	}
	if !strings.Contains(lines[1], `"audit"`) {
		t.Fatalf("unexpected second line: %s", lines[1])
	}
	if _, filter := stub.last(); filter != "replay_support" {
		t.Fatalf("filter not forwarded: %q", filter)
	}
}

func TestStreamsGet(t *testing.T) {
	_, baseURL := startAPIStub(t)
	out, err := run(t, baseURL, "streams", "get", "--name", "NETCONF")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, `"description": "default"`) {
		t.Fatalf("unexpected output: %s", out)
	}
	if _, err := run(t, baseURL, "streams", "get", "--name", "missing"); err == nil {
		t.Fatalf("expected not found error")
	}
}

func TestStreamsRegister_SendsAttributes(t *testing.T) {
	stub, baseURL := startAPIStub(t)
	out, err := run(t, baseURL, "streams", "register", "--name", "audit", "--replay", "--attr", "owner=secops", "--attr", "tier=gold")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "status:") {
		t.Fatalf("expected status in output, got: %s", out)
	}
	body, _ := stub.last()
	if body["name"] != "audit" || body["replaySupport"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
	attrs, _ := body["attributes"].(map[string]any)
	if attrs["owner"] != "secops" || attrs["tier"] != "gold" {
		t.Fatalf("unexpected attributes: %v", attrs)
	}
}

func TestStreamsRegister_FlagValidation(t *testing.T) {
	_, baseURL := startAPIStub(t)
	if _, err := run(t, baseURL, "streams", "register"); err == nil {
		t.Fatalf("expected error without --name")
	}
	if _, err := run(t, baseURL, "streams", "register", "--name", "x", "--attr", "novalue"); err == nil {
		t.Fatalf("expected error for malformed --attr")
	}
}

func TestStreamsUnregister(t *testing.T) {
	stub, baseURL := startAPIStub(t)
	if _, err := run(t, baseURL, "streams", "unregister", "--name", "audit"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if body, _ := stub.last(); body["name"] != "audit" {
		t.Fatalf("unexpected body: %v", body)
	}
}

// --- gRPC health CLI tests ---

func startGRPCStub(t *testing.T, hs *health.Server) (addr string, stop func()) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	done := make(chan struct{})
	go func() {
		_ = gs.Serve(l)
		close(done)
	}()
	stop = func() {
		gs.GracefulStop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			gs.Stop()
		}
	}
	return l.Addr().String(), stop
}

func TestHealthGRPC_PrintsStatus(t *testing.T) {
	hs := health.NewServer()
	hs.SetServingStatus("streamsync.Synchronizer", healthpb.HealthCheckResponse_SERVING)
	addr, stop := startGRPCStub(t, hs)
	defer stop()
	t.Setenv("STREAMSYNC_GRPC", addr)

	cmd := NewHealthCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "status: SERVING" {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}
