package db

import (
	"sort"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/pkg/errors"
)

// VoterSamples holds the samples of a single voter ordered by epoch.
type VoterSamples struct {
	Voter   string
	samples []spec.VoterCreditSample
}

func (v *VoterSamples) Get(epoch spec.Epoch) (spec.VoterCreditSample, bool) {
	i := sort.Search(len(v.samples), func(i int) bool {
		return v.samples[i].Epoch >= epoch
	})
	if i < len(v.samples) && v.samples[i].Epoch == epoch {
		return v.samples[i], true
	}
	return spec.VoterCreditSample{}, false
}

// GetVoterSamples scans every sample stored for voter.
func (c *EpochCache) GetVoterSamples(voter string) (*VoterSamples, error) {
	out := &VoterSamples{Voter: voter}

	var iterErr error
	err := c.samples.Iterate(voterPrefix(voter), func(key kvstore.Key, value kvstore.Value) bool {
		epoch, err := keyEpoch(key)
		if err != nil {
			iterErr = err
			return false
		}
		var sample spec.VoterCreditSample
		if err := decodeValue(value, &sample); err != nil {
			iterErr = errors.Wrapf(err, "sample of %s at epoch %d", voter, epoch)
			return false
		}
		out.samples = append(out.samples, sample)
		return true
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to iterate samples of %s", voter)
	}
	if iterErr != nil {
		return nil, iterErr
	}
	c.metrics.observe(samplesPartition, opRead)

	sort.Slice(out.samples, func(i, j int) bool {
		return out.samples[i].Epoch < out.samples[j].Epoch
	})
	return out, nil
}

// AppendVoterSamples stores samples of voter. Samples already stored for the
// same epoch are kept as they are.
func (c *EpochCache) AppendVoterSamples(voter string, samples []spec.VoterCreditSample) error {
	for _, sample := range samples {
		if sample.Voter != voter {
			return errors.Errorf("sample of %s appended to voter %s", sample.Voter, voter)
		}
		key := sampleKey(voter, sample.Epoch)
		exists, err := c.samples.Has(key)
		if err != nil {
			return errors.Wrapf(err, "unable to check sample of %s at epoch %d", voter, sample.Epoch)
		}
		if exists {
			continue
		}
		if err := c.put(c.samples, samplesPartition, key, sample); err != nil {
			return err
		}
	}
	return c.flush(c.samples, samplesPartition)
}
