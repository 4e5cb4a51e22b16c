package slots

import (
	"sort"

	"github.com/migalabs/solana-exporter/pkg/spec"
)

// LeaderIndex maps the slot indexes of one epoch to their leader.
type LeaderIndex struct {
	epoch   spec.Epoch
	leaders map[uint64]string
}

// NewLeaderIndex inverts a leader schedule, keeping only whitelisted leaders.
func NewLeaderIndex(epoch spec.Epoch, schedule map[string][]uint64, whitelist spec.Whitelist) *LeaderIndex {
	idx := &LeaderIndex{
		epoch:   epoch,
		leaders: make(map[uint64]string),
	}
	for leader, slotIndexes := range schedule {
		if !whitelist.Contains(leader) {
			continue
		}
		for _, slotIndex := range slotIndexes {
			idx.leaders[slotIndex] = leader
		}
	}
	return idx
}

func (l *LeaderIndex) Epoch() spec.Epoch {
	return l.epoch
}

func (l *LeaderIndex) Leader(slotIndex uint64) (string, bool) {
	leader, ok := l.leaders[slotIndex]
	return leader, ok
}

// Len returns the number of assigned slots.
func (l *LeaderIndex) Len() int {
	return len(l.leaders)
}

func (l *LeaderIndex) Leaders() []string {
	set := make(map[string]struct{})
	for _, leader := range l.leaders {
		set[leader] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for leader := range set {
		out = append(out, leader)
	}
	sort.Strings(out)
	return out
}
