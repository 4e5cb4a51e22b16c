package spec

type Epoch uint64

type Slot uint64

// EpochInfo is the node's view of the epoch in progress.
type EpochInfo struct {
	Epoch            Epoch
	SlotIndex        uint64
	SlotsInEpoch     uint64
	AbsoluteSlot     Slot
	BlockHeight      uint64
	TransactionCount uint64
}

// FirstSlot returns the absolute slot at which the epoch started.
func (e EpochInfo) FirstSlot() Slot {
	return e.AbsoluteSlot - Slot(e.SlotIndex)
}

// LastSlot returns the first absolute slot past the end of the epoch.
func (e EpochInfo) LastSlot() Slot {
	return e.FirstSlot() + Slot(e.SlotsInEpoch)
}

// EpochSchedule holds the network parameters that place epochs on the slot line.
type EpochSchedule struct {
	SlotsPerEpoch            uint64
	LeaderScheduleSlotOffset uint64
	Warmup                   bool
	FirstNormalEpoch         Epoch
	FirstNormalSlot          Slot
}

// FirstSlotInEpoch returns the absolute slot of the first slot in the epoch.
// Warmup epochs double in length from MinimumSlotsPerEpoch until FirstNormalEpoch.
func (s EpochSchedule) FirstSlotInEpoch(epoch Epoch) Slot {
	if epoch <= s.FirstNormalEpoch {
		return Slot(((uint64(1) << uint64(epoch)) - 1) * MinimumSlotsPerEpoch)
	}
	return Slot(uint64(epoch-s.FirstNormalEpoch)*s.SlotsPerEpoch) + s.FirstNormalSlot
}

// SlotsInEpoch returns the number of slots in the given epoch.
func (s EpochSchedule) SlotsInEpoch(epoch Epoch) uint64 {
	if epoch < s.FirstNormalEpoch {
		return uint64(1) << (uint64(epoch) + 5)
	}
	return s.SlotsPerEpoch
}
