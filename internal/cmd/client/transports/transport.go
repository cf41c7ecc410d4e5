package transports

import (
	"context"
	"time"
)

// Stream is a recorded stream as reported by the server.
type Stream struct {
	Name                  string            `json:"name"`
	Description           string            `json:"description,omitempty"`
	ReplaySupport         bool              `json:"replaySupport"`
	ReplayLogCreationTime *time.Time        `json:"replayLogCreationTime,omitempty"`
	ReplayLogAgedTime     *time.Time        `json:"replayLogAgedTime,omitempty"`
	Attributes            map[string]string `json:"attributes,omitempty"`
}

// StreamsTransport abstracts the transport used by the CLI for stream
// operations.
type StreamsTransport interface {
	List(ctx context.Context, filter string) ([]Stream, error)
	Get(ctx context.Context, name string) (Stream, error)
	Register(ctx context.Context, s Stream) error
	Unregister(ctx context.Context, name string) error
}

// HealthTransport reports server health.
type HealthTransport interface {
	// Check returns the serving status name for service ("" for the server).
	Check(ctx context.Context, service string) (string, error)
}
