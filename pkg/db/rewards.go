package db

import (
	"github.com/migalabs/solana-exporter/pkg/spec"
)

// GetRewards returns the rewards paid in the first block of epoch.
func (c *EpochCache) GetRewards(epoch spec.Epoch) ([]spec.Reward, bool, error) {
	var rewards []spec.Reward
	found, err := c.get(c.rewards, rewardsPartition, epochKey(epoch), &rewards)
	if err != nil || !found {
		return nil, found, err
	}
	return rewards, true, nil
}

// PutRewards stores the rewards of epoch, replacing any previous entry.
func (c *EpochCache) PutRewards(epoch spec.Epoch, rewards []spec.Reward) error {
	if rewards == nil {
		rewards = make([]spec.Reward, 0)
	}
	if err := c.put(c.rewards, rewardsPartition, epochKey(epoch), rewards); err != nil {
		return err
	}
	return c.flush(c.rewards, rewardsPartition)
}
