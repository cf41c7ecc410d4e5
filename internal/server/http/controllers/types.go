package controllers

import (
	"time"

	"github.com/rzbill/streamsync/internal/notification"
	"github.com/rzbill/streamsync/internal/runtime"
	"github.com/rzbill/streamsync/internal/streamsync"
)

// registerReq announces a stream to the collector.
type registerReq struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	ReplaySupport bool              `json:"replaySupport"`
	Attributes    map[string]string `json:"attributes"`
}

func (r registerReq) stream() notification.Stream {
	return notification.Stream{
		Name:          notification.StreamName(r.Name),
		Description:   r.Description,
		ReplaySupport: r.ReplaySupport,
		Attributes:    r.Attributes,
	}
}

// unregisterReq withdraws a stream.
type unregisterReq struct {
	Name string `json:"name"`
}

// streamJSON is one recorded stream.
type streamJSON struct {
	Name                  string            `json:"name"`
	Description           string            `json:"description,omitempty"`
	ReplaySupport         bool              `json:"replaySupport"`
	ReplayLogCreationTime *time.Time        `json:"replayLogCreationTime,omitempty"`
	ReplayLogAgedTime     *time.Time        `json:"replayLogAgedTime,omitempty"`
	Attributes            map[string]string `json:"attributes,omitempty"`
}

func toStreamJSON(s notification.Stream) streamJSON {
	return streamJSON{
		Name:                  string(s.Name),
		Description:           s.Description,
		ReplaySupport:         s.ReplaySupport,
		ReplayLogCreationTime: s.ReplayLogCreationTime,
		ReplayLogAgedTime:     s.ReplayLogAgedTime,
		Attributes:            s.Attributes,
	}
}

// statsJSON reports synchronizer and storage counters.
type statsJSON struct {
	State        string                  `json:"state"`
	Pending      int                     `json:"pending"`
	Listeners    int                     `json:"listeners"`
	Synchronizer streamsync.Stats        `json:"synchronizer"`
	Storage      runtime.StorageSnapshot `json:"storage"`
}
