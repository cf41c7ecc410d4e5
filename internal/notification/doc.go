// Package notification is the in-process source of stream availability.
//
// A Collector holds the set of available notification streams and pushes
// availability changes to registered StreamListeners. Producers call
// RegisterStream and UnregisterStream directly, or run a DirSource that turns
// YAML definition files into those calls.
//
// Example:
//
//	c := notification.NewCollector(logger)
//	reg, _ := c.RegisterStreamListener(listener) // replays current streams
//	_ = c.RegisterStream(notification.Stream{Name: notification.BaseStreamName})
//	c.UnregisterStream(notification.BaseStreamName)
//	_ = reg.Close() // no callbacks after this returns
package notification
