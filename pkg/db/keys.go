package db

import (
	"encoding/binary"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/pkg/errors"
)

type partition struct {
	prefix byte
	name   string
}

var (
	rewardsPartition     = partition{0x01, "rewards"}
	samplesPartition     = partition{0x02, "voter_samples"}
	durationsPartition   = partition{0x03, "epoch_durations"}
	votersPartition      = partition{0x04, "epoch_voters"}
	metadataPartition    = partition{0x05, "metadata"}
	geolocationPartition = partition{0x06, "geolocation"}
)

const (
	epochKeyLen     = 8
	sampleSeparator = 0x00
)

// epochKey is big endian so that keys sort by epoch.
func epochKey(epoch spec.Epoch) kvstore.Key {
	key := make([]byte, epochKeyLen)
	binary.BigEndian.PutUint64(key, uint64(epoch))
	return key
}

func voterPrefix(voter string) kvstore.KeyPrefix {
	prefix := make([]byte, 0, len(voter)+1)
	prefix = append(prefix, voter...)
	return append(prefix, sampleSeparator)
}

func sampleKey(voter string, epoch spec.Epoch) kvstore.Key {
	return append(voterPrefix(voter), epochKey(epoch)...)
}

// keyEpoch reads the epoch from the trailing bytes of a key, whichever
// prefix the store leaves in front of it.
func keyEpoch(key kvstore.Key) (spec.Epoch, error) {
	if len(key) < epochKeyLen {
		return 0, errors.Wrapf(ErrCorrupted, "key %x too short for an epoch", key)
	}
	return spec.Epoch(binary.BigEndian.Uint64(key[len(key)-epochKeyLen:])), nil
}
