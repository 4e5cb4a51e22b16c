package exporter

import (
	"context"

	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/migalabs/solana-exporter/pkg/utils"
	"github.com/pkg/errors"
)

// ExportEpochInfo publishes the chain position and the average slot time of
// the current epoch. The slot time is left untouched while the first block of
// the epoch, or its timestamp, is unknown.
func (e *Exporter) ExportEpochInfo(ctx context.Context, info *spec.EpochInfo) error {
	e.sink.SetEpochInfo(info)

	if info.SlotIndex == 0 {
		return nil
	}
	blockTime, found, err := e.rewards.Durations().FirstBlockTime(ctx, info.Epoch, info)
	if err != nil {
		return errors.Wrapf(err, "unable to get first block time of epoch %d", info.Epoch)
	}
	if !found {
		return nil
	}
	e.sink.SetAverageSlotTime(utils.BlockTimeSince(blockTime, e.now()) / float64(info.SlotIndex))
	return nil
}
