package db

import (
	"github.com/migalabs/solana-exporter/pkg/utils"
	"github.com/pkg/errors"
)

// ErrCorrupted is returned when a stored value cannot be decoded.
var ErrCorrupted = errors.New("corrupted cache entry")

func encodeValue(v interface{}) ([]byte, error) {
	return utils.SnappyMarshal(v)
}

func decodeValue(raw []byte, v interface{}) error {
	if err := utils.SnappyUnmarshal(raw, v); err != nil {
		return errors.Wrap(ErrCorrupted, err.Error())
	}
	return nil
}
