package streamsync

import "sync/atomic"

const (
	opRegister   = "register"
	opUnregister = "unregister"
	opClear      = "clear"
)

// OpStats counts transactions of one kind.
type OpStats struct {
	Submitted int64 `json:"submitted"`
	Committed int64 `json:"committed"`
	Failed    int64 `json:"failed"`
}

// Stats is a point-in-time copy of the Synchronizer counters.
type Stats struct {
	Register   OpStats `json:"register"`
	Unregister OpStats `json:"unregister"`
	Clear      OpStats `json:"clear"`
}

type opCounters struct {
	submitted, committed, failed atomic.Int64
}

func (c *opCounters) snapshot() OpStats {
	return OpStats{Submitted: c.submitted.Load(), Committed: c.committed.Load(), Failed: c.failed.Load()}
}

type stats struct {
	register, unregister, clear opCounters
}

func (s *stats) counters(op string) *opCounters {
	switch op {
	case opRegister:
		return &s.register
	case opUnregister:
		return &s.unregister
	default:
		return &s.clear
	}
}

func (s *stats) submitted(op string) { s.counters(op).submitted.Add(1) }

func (s *stats) resolved(op string, err error) {
	if err != nil {
		s.counters(op).failed.Add(1)
		return
	}
	s.counters(op).committed.Add(1)
}

// Stats returns the transaction counters.
func (s *Synchronizer) Stats() Stats {
	return Stats{
		Register:   s.stats.register.snapshot(),
		Unregister: s.stats.unregister.snapshot(),
		Clear:      s.stats.clear.snapshot(),
	}
}
