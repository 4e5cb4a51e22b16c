package clientapi

import (
	"context"

	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/pkg/errors"
)

// SlotOffset is how far into an epoch its first block may still be missing
// without that being an error.
const SlotOffset = 100

var ErrNoBlocksFound = errors.New("no blocks found in epoch")

// FirstBlock returns the first produced block of epoch. found is false when
// the epoch has not produced a block yet, which only happens for the current
// epoch within its first SlotOffset slots or for epochs still in the future.
func FirstBlock(ctx context.Context, cli Client, epoch spec.Epoch, info *spec.EpochInfo) (slot spec.Slot, found bool, err error) {
	schedule, err := cli.GetEpochSchedule(ctx)
	if err != nil {
		return 0, false, errors.Wrap(err, "unable to get epoch schedule")
	}

	firstSlot := schedule.FirstSlotInEpoch(epoch)
	blocks, err := cli.GetBlocksWithLimit(ctx, firstSlot, 1)
	if err != nil {
		return 0, false, errors.Wrapf(err, "unable to get first block of epoch %d", epoch)
	}
	if len(blocks) > 0 && blocks[0] < schedule.FirstSlotInEpoch(epoch+1) {
		return blocks[0], true, nil
	}

	if epoch > info.Epoch || (epoch == info.Epoch && info.SlotIndex < SlotOffset) {
		return 0, false, nil
	}
	return 0, false, errors.Wrapf(ErrNoBlocksFound, "epoch %d (first slot %d)", epoch, firstSlot)
}

// FirstBlockTime returns the slot and unix timestamp of the first block of epoch.
// found is false when there is no such block yet or the node has no timestamp for it.
func FirstBlockTime(ctx context.Context, cli Client, epoch spec.Epoch, info *spec.EpochInfo) (slot spec.Slot, blockTime int64, found bool, err error) {
	slot, found, err = FirstBlock(ctx, cli, epoch, info)
	if err != nil || !found {
		return 0, 0, false, err
	}
	block, err := cli.GetBlock(ctx, slot, false)
	if err != nil {
		return 0, 0, false, errors.Wrapf(err, "unable to get block %d", slot)
	}
	if block.BlockTime == nil {
		return slot, 0, false, nil
	}
	return slot, *block.BlockTime, true, nil
}
