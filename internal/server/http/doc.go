// Package httpserver exposes the recorded streams, health and operator hooks
// of a streamsync runtime over HTTP/JSON.
package httpserver
