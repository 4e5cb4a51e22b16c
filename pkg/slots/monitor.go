package slots

import (
	"context"
	"sort"
	"time"

	"github.com/migalabs/solana-exporter/pkg/clientapi"
	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/migalabs/solana-exporter/pkg/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	modName = "Slots"
	log     = logrus.WithField(
		"module", modName,
	)
)

// BlocksPerRequest bounds the slot range of a single getBlocks call.
const BlocksPerRequest = 1000

// Sink receives slot outcomes of whitelisted leaders.
type Sink interface {
	AddLeaderSlots(leader string, status spec.SlotStatus, n uint64)
	SetSkippedSlotPercent(leader string, pct float64)
}

// SkippedSlotMonitor classifies every slot of the current epoch as produced
// or skipped, walking forward from the last slot index it processed.
type SkippedSlotMonitor struct {
	cli  clientapi.Client
	sink Sink

	hasRunOnce    bool
	lastProcessed uint64
	leaders       *LeaderIndex
	counters      *SkipCounters

	metrics *monitorMetrics
}

func NewSkippedSlotMonitor(cli clientapi.Client, sink Sink) *SkippedSlotMonitor {
	return &SkippedSlotMonitor{
		cli:      cli,
		sink:     sink,
		counters: NewSkipCounters(),
		metrics:  newMonitorMetrics(),
	}
}

// Counts returns the cumulative outcomes of leader.
func (m *SkippedSlotMonitor) Counts(leader string) LeaderCounts {
	return m.counters.Get(leader)
}

func (m *SkippedSlotMonitor) ExportSkippedSlots(ctx context.Context, info *spec.EpochInfo, whitelist spec.Whitelist) error {
	firstSlot := info.FirstSlot()

	if !m.hasRunOnce || info.Epoch != m.leaders.Epoch() {
		schedule, err := m.cli.GetLeaderSchedule(ctx, firstSlot)
		if err != nil {
			return errors.Wrapf(err, "unable to get leader schedule of epoch %d", info.Epoch)
		}
		if schedule == nil {
			return errors.Errorf("no leader schedule for epoch %d", info.Epoch)
		}
		m.leaders = NewLeaderIndex(info.Epoch, schedule, whitelist)
		if m.hasRunOnce {
			// slots of the previous epoch are no longer walked
			m.lastProcessed = info.SlotIndex
		} else {
			m.lastProcessed = 0
			m.hasRunOnce = true
		}
		m.metrics.scheduled.Set(float64(m.leaders.Len()))
		log.Infof("leader schedule of epoch %d loaded, %d slots assigned to %d leaders",
			info.Epoch, m.leaders.Len(), len(m.leaders.Leaders()))
	}

	switch {
	case info.SlotIndex == m.lastProcessed:
		log.Debugf("no new slots since slot index %d", m.lastProcessed)
		return nil
	case info.SlotIndex < m.lastProcessed:
		log.Warnf("node reported slot index %d behind processed %d, ignoring", info.SlotIndex, m.lastProcessed)
		return nil
	}

	initTime := time.Now()
	start := uint64(firstSlot) + m.lastProcessed
	end := uint64(firstSlot) + info.SlotIndex

	produced := make([]spec.Slot, 0, end-start)
	for _, r := range utils.ChunkRange(start, end, BlocksPerRequest) {
		blocks, err := m.cli.GetBlocks(ctx, spec.Slot(r.Start), spec.Slot(r.End))
		if err != nil {
			return errors.Wrapf(err, "unable to get blocks %d-%d", r.Start, r.End)
		}
		produced = append(produced, blocks...)
	}
	sort.Slice(produced, func(i, j int) bool { return produced[i] < produced[j] })

	tally := make(map[string]*LeaderCounts)
	for slotIndex := m.lastProcessed; slotIndex < info.SlotIndex; slotIndex++ {
		leader, ok := m.leaders.Leader(slotIndex)
		if !ok {
			continue
		}
		c, ok := tally[leader]
		if !ok {
			c = &LeaderCounts{}
			tally[leader] = c
		}
		if containsSlot(produced, firstSlot+spec.Slot(slotIndex)) {
			c.Produced++
		} else {
			c.Skipped++
		}
	}

	for leader, c := range tally {
		if c.Produced > 0 {
			m.counters.Add(leader, spec.SlotValidated, c.Produced)
			m.sink.AddLeaderSlots(leader, spec.SlotValidated, c.Produced)
		}
		if c.Skipped > 0 {
			m.counters.Add(leader, spec.SlotSkipped, c.Skipped)
			m.sink.AddLeaderSlots(leader, spec.SlotSkipped, c.Skipped)
		}
		if pct, ok := m.counters.Get(leader).SkipPercent(); ok {
			m.sink.SetSkippedSlotPercent(leader, pct)
		}
	}

	log.WithFields(logrus.Fields{
		"epoch":   info.Epoch,
		"from":    m.lastProcessed,
		"to":      info.SlotIndex,
		"leaders": len(tally),
	}).Debugf("slots classified in %s", time.Since(initTime))

	m.metrics.processed.Add(float64(info.SlotIndex - m.lastProcessed))
	m.metrics.lastSlotIndex.Set(float64(info.SlotIndex))
	m.lastProcessed = info.SlotIndex
	return nil
}

func containsSlot(sorted []spec.Slot, slot spec.Slot) bool {
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= slot })
	return i < len(sorted) && sorted[i] == slot
}
