package runtime

import (
	"sync/atomic"
	"time"

	pebblestore "github.com/rzbill/streamsync/internal/storage/pebble"
)

var _ pebblestore.MetricsHook = (*StorageStats)(nil)

// StorageStats accumulates Pebble observations.
type StorageStats struct {
	reads       atomic.Int64
	readBytes   atomic.Int64
	commits     atomic.Int64
	commitOps   atomic.Int64
	commitBytes atomic.Int64
	commitNanos atomic.Int64
}

// StorageSnapshot is a copy of StorageStats.
type StorageSnapshot struct {
	Reads       int64   `json:"reads"`
	ReadBytes   int64   `json:"readBytes"`
	Commits     int64   `json:"commits"`
	CommitOps   int64   `json:"commitOps"`
	CommitBytes int64   `json:"commitBytes"`
	AvgCommitMs float64 `json:"avgCommitMs"`
}

// ObserveRead implements pebblestore.MetricsHook.
func (s *StorageStats) ObserveRead(_ time.Duration, bytes int) {
	s.reads.Add(1)
	s.readBytes.Add(int64(bytes))
}

// ObserveBatchCommit implements pebblestore.MetricsHook.
func (s *StorageStats) ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int) {
	s.commits.Add(1)
	s.commitOps.Add(int64(numOps))
	s.commitBytes.Add(int64(bytes))
	s.commitNanos.Add(int64(elapsed))
}

// Snapshot returns the current counters.
func (s *StorageStats) Snapshot() StorageSnapshot {
	out := StorageSnapshot{
		Reads:       s.reads.Load(),
		ReadBytes:   s.readBytes.Load(),
		Commits:     s.commits.Load(),
		CommitOps:   s.commitOps.Load(),
		CommitBytes: s.commitBytes.Load(),
	}
	if out.Commits > 0 {
		out.AvgCommitMs = float64(s.commitNanos.Load()) / float64(out.Commits) / float64(time.Millisecond)
	}
	return out
}
