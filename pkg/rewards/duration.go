package rewards

import (
	"context"
	"sync"
	"time"

	"github.com/migalabs/solana-exporter/pkg/clientapi"
	"github.com/migalabs/solana-exporter/pkg/db"
	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/migalabs/solana-exporter/pkg/utils"
	"github.com/pkg/errors"
	"github.com/zyedidia/generic/cache"
)

// firstBlocksCacheSize bounds the memo of epoch first blocks. A window of
// epochs plus the one after it is all that is ever asked for.
const firstBlocksCacheSize = 2 * spec.MaxEpochLookback

type firstBlock struct {
	slot      spec.Slot
	blockTime int64
}

// DurationEstimator measures how long epochs last, in days.
type DurationEstimator struct {
	cli        clientapi.Client
	epochCache *db.EpochCache
	now        func() time.Time

	mu          sync.Mutex
	firstBlocks *cache.Cache[spec.Epoch, firstBlock]
}

func NewDurationEstimator(cli clientapi.Client, epochCache *db.EpochCache, now func() time.Time) *DurationEstimator {
	if now == nil {
		now = time.Now
	}
	return &DurationEstimator{
		cli:         cli,
		epochCache:  epochCache,
		now:         now,
		firstBlocks: cache.New[spec.Epoch, firstBlock](firstBlocksCacheSize),
	}
}

// DurationDays returns the length of epoch. The current epoch is extrapolated
// from the slots elapsed so far and never stored. Finished epochs are measured
// once between the first blocks of epoch and epoch+1 and then read from the
// cache. known is false when a needed block or timestamp is not available.
func (d *DurationEstimator) DurationDays(ctx context.Context, epoch spec.Epoch, info *spec.EpochInfo) (days float64, known bool, err error) {
	switch {
	case epoch == info.Epoch:
		return d.currentEpochDays(ctx, info)
	case epoch > info.Epoch:
		return 0, false, errors.Errorf("epoch %d has not started, current is %d", epoch, info.Epoch)
	}

	days, found, err := d.epochCache.GetEpochDuration(epoch)
	if err != nil {
		return 0, false, err
	}
	if found {
		return days, true, nil
	}

	start, ok, err := d.firstBlock(ctx, epoch, info)
	if err != nil || !ok {
		return 0, false, err
	}
	end, ok, err := d.firstBlock(ctx, epoch+1, info)
	if err != nil || !ok {
		return 0, false, err
	}
	if end.blockTime <= start.blockTime {
		log.Warnf("first block of epoch %d is not later than the one of epoch %d, skipping measurement", epoch+1, epoch)
		return 0, false, nil
	}

	days = utils.SecondsToDays(float64(end.blockTime - start.blockTime))
	if err := d.epochCache.PutEpochDuration(epoch, days); err != nil {
		if !errors.Is(err, db.ErrDurationExists) {
			return 0, false, err
		}
		return d.epochCache.GetEpochDuration(epoch)
	}
	log.Debugf("epoch %d lasted %.4f days", epoch, days)
	return days, true, nil
}

func (d *DurationEstimator) currentEpochDays(ctx context.Context, info *spec.EpochInfo) (float64, bool, error) {
	first, ok, err := d.firstBlock(ctx, info.Epoch, info)
	if err != nil || !ok {
		return 0, false, err
	}
	if info.AbsoluteSlot <= first.slot {
		return 0, false, nil
	}
	slotsElapsed := float64(info.AbsoluteSlot - first.slot)
	secondsElapsed := utils.BlockTimeSince(first.blockTime, d.now())
	return utils.SecondsToDays(secondsElapsed / slotsElapsed * float64(info.SlotsInEpoch)), true, nil
}

// FirstBlockTime returns the unix timestamp of the first produced block of
// epoch. found is false when that block carries no timestamp.
func (d *DurationEstimator) FirstBlockTime(ctx context.Context, epoch spec.Epoch, info *spec.EpochInfo) (blockTime int64, found bool, err error) {
	block, found, err := d.firstBlock(ctx, epoch, info)
	return block.blockTime, found, err
}

// firstBlock returns the first produced block of epoch with its timestamp.
// Only blocks that carry a timestamp are kept in memory.
func (d *DurationEstimator) firstBlock(ctx context.Context, epoch spec.Epoch, info *spec.EpochInfo) (firstBlock, bool, error) {
	d.mu.Lock()
	block, ok := d.firstBlocks.Get(epoch)
	d.mu.Unlock()
	if ok {
		return block, true, nil
	}

	slot, blockTime, found, err := clientapi.FirstBlockTime(ctx, d.cli, epoch, info)
	if err != nil || !found {
		return firstBlock{}, false, err
	}
	block = firstBlock{slot: slot, blockTime: blockTime}

	d.mu.Lock()
	d.firstBlocks.Put(epoch, block)
	d.mu.Unlock()
	return block, true, nil
}
