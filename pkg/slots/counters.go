package slots

import (
	"github.com/migalabs/solana-exporter/pkg/spec"
)

type LeaderCounts struct {
	Produced uint64
	Skipped  uint64
}

func (c LeaderCounts) Total() uint64 {
	return c.Produced + c.Skipped
}

// SkipPercent returns the share of skipped slots in percent. ok is false when
// the leader has no slots counted.
func (c LeaderCounts) SkipPercent() (pct float64, ok bool) {
	total := c.Total()
	if total == 0 {
		return 0, false
	}
	return float64(c.Skipped) / float64(total) * 100, true
}

// SkipCounters keeps cumulative slot outcomes per leader for the life of the process.
type SkipCounters struct {
	counts map[string]*LeaderCounts
}

func NewSkipCounters() *SkipCounters {
	return &SkipCounters{
		counts: make(map[string]*LeaderCounts),
	}
}

func (s *SkipCounters) Add(leader string, status spec.SlotStatus, n uint64) {
	c, ok := s.counts[leader]
	if !ok {
		c = &LeaderCounts{}
		s.counts[leader] = c
	}
	switch status {
	case spec.SlotValidated:
		c.Produced += n
	case spec.SlotSkipped:
		c.Skipped += n
	}
}

func (s *SkipCounters) Get(leader string) LeaderCounts {
	if c, ok := s.counts[leader]; ok {
		return *c
	}
	return LeaderCounts{}
}
