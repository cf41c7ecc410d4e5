package notification

import (
	"sort"
	"strconv"
	"time"

	"github.com/rzbill/streamsync/internal/datastore"
)

// StreamName is the unique key of a notification stream.
type StreamName string

// BaseStreamName is the stream every NETCONF server advertises.
const BaseStreamName StreamName = "NETCONF"

// Leaf names used when a Stream is written to the datastore.
const (
	LeafName                  = "name"
	LeafDescription           = "description"
	LeafReplaySupport         = "replay-support"
	LeafReplayLogCreationTime = "replay-log-creation-time"
	LeafReplayLogAgedTime     = "replay-log-aged-time"
)

// Stream describes one advertised notification stream.
type Stream struct {
	Name                  StreamName        `json:"name" yaml:"name"`
	Description           string            `json:"description,omitempty" yaml:"description,omitempty"`
	ReplaySupport         bool              `json:"replaySupport,omitempty" yaml:"replaySupport,omitempty"`
	ReplayLogCreationTime *time.Time        `json:"replayLogCreationTime,omitempty" yaml:"replayLogCreationTime,omitempty"`
	ReplayLogAgedTime     *time.Time        `json:"replayLogAgedTime,omitempty" yaml:"replayLogAgedTime,omitempty"`
	Attributes            map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Leaves flattens the stream into datastore leaves. Attributes are carried
// verbatim; the well-known leaves win on a name clash.
func (s Stream) Leaves() datastore.Leaves {
	out := make(datastore.Leaves, len(s.Attributes)+5)
	for k, v := range s.Attributes {
		out[k] = v
	}
	out[LeafName] = string(s.Name)
	if s.Description != "" {
		out[LeafDescription] = s.Description
	}
	// Always written so a re-registration merged over an earlier one can
	// turn replay off.
	out[LeafReplaySupport] = strconv.FormatBool(s.ReplaySupport)
	if s.ReplayLogCreationTime != nil {
		out[LeafReplayLogCreationTime] = s.ReplayLogCreationTime.UTC().Format(time.RFC3339Nano)
	}
	if s.ReplayLogAgedTime != nil {
		out[LeafReplayLogAgedTime] = s.ReplayLogAgedTime.UTC().Format(time.RFC3339Nano)
	}
	return out
}

// StreamFromLeaves rebuilds a Stream from stored leaves. Unknown leaves go
// back into Attributes.
func StreamFromLeaves(l datastore.Leaves) Stream {
	s := Stream{}
	for k, v := range l {
		switch k {
		case LeafName:
			s.Name = StreamName(v)
		case LeafDescription:
			s.Description = v
		case LeafReplaySupport:
			s.ReplaySupport, _ = strconv.ParseBool(v)
		case LeafReplayLogCreationTime:
			if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
				s.ReplayLogCreationTime = &ts
			}
		case LeafReplayLogAgedTime:
			if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
				s.ReplayLogAgedTime = &ts
			}
		default:
			if s.Attributes == nil {
				s.Attributes = map[string]string{}
			}
			s.Attributes[k] = v
		}
	}
	return s
}

func sortStreams(ss []Stream) {
	sort.Slice(ss, func(i, j int) bool { return ss[i].Name < ss[j].Name })
}
