package client

import (
	"context"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// grpcAddrFromEnv returns the gRPC server address from STREAMSYNC_GRPC or a default.
func grpcAddrFromEnv() string {
	if addr := os.Getenv("STREAMSYNC_GRPC"); addr != "" {
		return addr
	}
	return "127.0.0.1:50051"
}

// APIURLFromEnv returns the HTTP base URL from STREAMSYNC_HTTP or a default.
func APIURLFromEnv() string {
	if v := os.Getenv("STREAMSYNC_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}

// dialGRPCContext dials the gRPC endpoint with insecure transport for local/dev.
func dialGRPCContext(_ context.Context) (*grpc.ClientConn, error) {
	return grpc.NewClient(grpcAddrFromEnv(), grpc.WithTransportCredentials(insecure.NewCredentials()))
}
