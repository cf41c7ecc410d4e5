// Package runtime wires configuration, storage and the stream synchronizer
// into a single-node streamsync instance. It exposes Open/Start/Close, health
// checks and the read side used by the servers.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Config: config.Default()})
//	defer rt.Close()
//	_ = rt.Start()
//	streams, _ := rt.ListStreams(context.Background())
package runtime
