package grpcserver

import (
	"context"
	"net"
	"time"

	"github.com/rzbill/streamsync/internal/runtime"
	logpkg "github.com/rzbill/streamsync/pkg/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// SynchronizerService is the health service name tracking the stream
// synchronizer. The empty name tracks the whole server.
const SynchronizerService = "streamsync.Synchronizer"

const refreshInterval = time.Second

// Server owns the gRPC server instance and runtime.
type Server struct {
	rt     *runtime.Runtime
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
	logger logpkg.Logger
}

// New constructs a gRPC server and registers the health and reflection
// services.
func New(rt *runtime.Runtime, logger logpkg.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = rt.Logger().WithComponent("grpc")
	}
	s := &Server{rt: rt, health: health.NewServer(), logger: logger}
	opts = append(opts, grpc.ChainUnaryInterceptor(s.logUnary))
	s.grpc = grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	s.Refresh(context.Background())
	return s
}

// Refresh recomputes the serving status: SERVING while the backend answers
// and the synchronizer is active, NOT_SERVING otherwise.
func (s *Server) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.rt.CheckHealth(ctx); err != nil || !s.rt.Ready() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(SynchronizerService, status)
	return status
}

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("grpc server listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(l) }()

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			s.grpc.GracefulStop()
			return nil
		case err := <-errCh:
			return err
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Close stops the server and closes the listener.
func (s *Server) Close() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	fields := []logpkg.Field{logpkg.Str("method", info.FullMethod), logpkg.Dur("dur_ms", time.Since(start))}
	if err != nil {
		s.logger.Warn("grpc call failed", append(fields, logpkg.Err(err))...)
		return resp, err
	}
	s.logger.Debug("grpc call", fields...)
	return resp, nil
}
