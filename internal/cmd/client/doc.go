// Package client provides the `streamsync` command-line client.
//
// The CLI talks to a running streamsync server: stream commands use the HTTP
// API and health uses the gRPC health service.
//
// # Address configuration
//
// The HTTP base URL comes from the embedding application's BaseURLFunc and
// defaults to STREAMSYNC_HTTP or http://127.0.0.1:8080. The gRPC address is
// read from STREAMSYNC_GRPC (default 127.0.0.1:50051).
//
// Usage
//
//	streamsync streams list
//	streamsync streams list --filter 'replay_support'
//	streamsync streams get --name NETCONF
//	streamsync streams register --name audit --description "audit trail" --replay --attr owner=secops
//	streamsync streams unregister --name audit
//	streamsync health
//
// register and unregister are accepted immediately; the record changes once
// the server's synchronizer commits the transaction.
package client
