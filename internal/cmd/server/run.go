package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	cfgpkg "github.com/rzbill/streamsync/internal/config"
	"github.com/rzbill/streamsync/internal/runtime"
	grpcserver "github.com/rzbill/streamsync/internal/server/grpc"
	httpserver "github.com/rzbill/streamsync/internal/server/http"
	logpkg "github.com/rzbill/streamsync/pkg/log"
)

// Options configures Run.
type Options struct {
	Config cfgpkg.Config
	// Logger overrides the logger built from Config.Log.
	Logger logpkg.Logger
}

// storeDir returns the Pebble directory under dataDir.
func storeDir(dataDir string) string {
	if dataDir == "" {
		dataDir = cfgpkg.DefaultDataDir()
	}
	return filepath.Join(dataDir, "store")
}

// buildLogger builds the process-wide logger from cfg, falling back to a
// text logger at info level when cfg is unusable.
func buildLogger(cfg logpkg.Config) logpkg.Logger {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	l, err := logpkg.ApplyConfig(&cfg)
	if err != nil {
		lvl := logpkg.InfoLevel
		if parsed, e := logpkg.ParseLevel(cfg.Level); e == nil {
			lvl = parsed
		}
		return logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}
	return l
}

// Run starts the runtime plus gRPC and HTTP servers and blocks until ctx is
// cancelled or a signal arrives. On the way out the servers stop first, then
// the runtime closes the synchronizer and storage.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	if cfg.Backend == cfgpkg.BackendPebble || cfg.Backend == "" {
		cfg.DataDir = storeDir(cfg.DataDir)
	}
	procLogger := opts.Logger
	if procLogger == nil {
		procLogger = buildLogger(cfg.Log)
	}
	// Redirect stdlib logs (e.g., Pebble) to our logger
	logpkg.RedirectStdLog(procLogger)

	rt, err := runtime.Open(runtime.Options{Config: cfg, Logger: procLogger})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			procLogger.Error("runtime close failed", logpkg.Err(err))
		}
	}()
	if err := rt.Start(); err != nil {
		return err
	}

	procLogger.Info("Starting streamsync server",
		logpkg.Str("grpc", cfg.GRPCAddr),
		logpkg.Str("http", cfg.HTTPAddr),
		logpkg.Str("backend", cfg.Backend),
		logpkg.Str("root", cfg.Root),
		logpkg.Str("streams_dir", cfg.StreamsDir),
	)

	gsrv := grpcserver.New(rt, procLogger.WithComponent("grpc"))
	hsrv := httpserver.New(rt, procLogger.WithComponent("http"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gsrv.ListenAndServe(sctx, cfg.GRPCAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("grpc server error", logpkg.Err(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, cfg.HTTPAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("http server error", logpkg.Err(err))
		}
	}()

	<-sctx.Done()
	procLogger.Info("Shutting down streamsync server")
	// Stop the servers before closing the runtime/DB to avoid races.
	gsrv.Close()
	hsrv.Close()
	wg.Wait()
	return nil
}
