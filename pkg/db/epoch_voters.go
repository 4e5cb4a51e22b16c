package db

import (
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/pkg/errors"
)

// GetEpochVoters returns the voters whose staking rewards were resolved for
// epoch. A record exists only once every sample of the epoch is stored.
func (c *EpochCache) GetEpochVoters(epoch spec.Epoch) ([]string, bool, error) {
	var voters []string
	found, err := c.get(c.voters, votersPartition, epochKey(epoch), &voters)
	if err != nil || !found {
		return nil, found, err
	}
	return voters, true, nil
}

func (c *EpochCache) PutEpochVoters(epoch spec.Epoch, voters []string) error {
	if voters == nil {
		voters = make([]string, 0)
	}
	if err := c.put(c.voters, votersPartition, epochKey(epoch), voters); err != nil {
		return err
	}
	return c.flush(c.voters, votersPartition)
}

// TrackedSince returns the first epoch with a voters record.
func (c *EpochCache) TrackedSince() (spec.Epoch, bool, error) {
	var (
		first   spec.Epoch
		found   bool
		iterErr error
	)
	err := c.voters.Iterate(kvstore.EmptyPrefix, func(key kvstore.Key, _ kvstore.Value) bool {
		epoch, err := keyEpoch(key)
		if err != nil {
			iterErr = err
			return false
		}
		if !found || epoch < first {
			first = epoch
			found = true
		}
		return true
	})
	if err != nil {
		return 0, false, errors.Wrap(err, "unable to iterate epoch voters")
	}
	if iterErr != nil {
		return 0, false, iterErr
	}
	return first, found, nil
}
