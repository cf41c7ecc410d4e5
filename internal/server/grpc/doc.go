// Package grpcserver hosts the gRPC server for streamsync. It serves the
// standard grpc.health.v1 service, reporting SERVING while the stream
// synchronizer is active.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Config: config.Default()})
//	_ = rt.Start()
//	s := grpcserver.New(rt, nil)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":50051")
package grpcserver
