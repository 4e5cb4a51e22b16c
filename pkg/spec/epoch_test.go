package spec_test

import (
	"testing"

	"github.com/migalabs/solana-exporter/pkg/spec"
)

func TestFirstSlotInEpoch(t *testing.T) {
	mainnet := spec.EpochSchedule{
		SlotsPerEpoch:    432000,
		FirstNormalEpoch: 0,
		FirstNormalSlot:  0,
	}
	warmup := spec.EpochSchedule{
		SlotsPerEpoch:    432000,
		Warmup:           true,
		FirstNormalEpoch: 14,
		FirstNormalSlot:  524256,
	}

	tests := []struct {
		name     string
		schedule spec.EpochSchedule
		epoch    spec.Epoch
		slot     spec.Slot
	}{
		{
			name:     "Genesis",
			schedule: mainnet,
			epoch:    0,
			slot:     0,
		},
		{
			name:     "Mainnet epoch 500",
			schedule: mainnet,
			epoch:    500,
			slot:     216000000,
		},
		{
			name:     "Warmup epoch 1",
			schedule: warmup,
			epoch:    1,
			slot:     32,
		},
		{
			name:     "Warmup epoch 3",
			schedule: warmup,
			epoch:    3,
			slot:     224,
		},
		{
			name:     "First normal epoch",
			schedule: warmup,
			epoch:    14,
			slot:     524256,
		},
		{
			name:     "After warmup",
			schedule: warmup,
			epoch:    15,
			slot:     956256,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			slot := test.schedule.FirstSlotInEpoch(test.epoch)
			if slot != test.slot {
				t.Errorf("FirstSlotInEpoch() returned %d, expected %d", slot, test.slot)
			}
		})
	}
}

func TestSlotsInEpoch(t *testing.T) {
	warmup := spec.EpochSchedule{
		SlotsPerEpoch:    432000,
		Warmup:           true,
		FirstNormalEpoch: 14,
		FirstNormalSlot:  524256,
	}

	for epoch := spec.Epoch(0); epoch < 16; epoch++ {
		next := warmup.FirstSlotInEpoch(epoch + 1)
		first := warmup.FirstSlotInEpoch(epoch)
		if uint64(next-first) != warmup.SlotsInEpoch(epoch) {
			t.Errorf("epoch %d: SlotsInEpoch() returned %d, expected %d", epoch, warmup.SlotsInEpoch(epoch), next-first)
		}
	}
}

func TestEpochInfoBounds(t *testing.T) {
	info := spec.EpochInfo{
		Epoch:        700,
		SlotIndex:    1200,
		SlotsInEpoch: 432000,
		AbsoluteSlot: 302401200,
	}
	if info.FirstSlot() != 302400000 {
		t.Errorf("FirstSlot() returned %d", info.FirstSlot())
	}
	if info.LastSlot() != 302832000 {
		t.Errorf("LastSlot() returned %d", info.LastSlot())
	}
}
