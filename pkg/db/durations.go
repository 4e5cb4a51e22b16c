package db

import (
	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/pkg/errors"
)

var ErrDurationExists = errors.New("epoch duration already stored")

func (c *EpochCache) GetEpochDuration(epoch spec.Epoch) (float64, bool, error) {
	var duration spec.EpochDuration
	found, err := c.get(c.durations, durationsPartition, epochKey(epoch), &duration)
	if err != nil || !found {
		return 0, found, err
	}
	return duration.Days, true, nil
}

// PutEpochDuration stores the duration of a finished epoch. Durations are
// written once, a second write returns ErrDurationExists.
func (c *EpochCache) PutEpochDuration(epoch spec.Epoch, days float64) error {
	key := epochKey(epoch)
	exists, err := c.durations.Has(key)
	if err != nil {
		return errors.Wrapf(err, "unable to check duration of epoch %d", epoch)
	}
	if exists {
		return errors.Wrapf(ErrDurationExists, "epoch %d", epoch)
	}
	if err := c.put(c.durations, durationsPartition, key, spec.EpochDuration{Epoch: epoch, Days: days}); err != nil {
		return err
	}
	return c.flush(c.durations, durationsPartition)
}
