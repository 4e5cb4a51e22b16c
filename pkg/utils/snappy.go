package utils

import (
	"encoding/json"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// SnappyMarshal encodes v as JSON and compresses the result with snappy.
func SnappyMarshal(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "unable to encode value")
	}
	return snappy.Encode(nil, raw), nil
}

// SnappyUnmarshal reverses SnappyMarshal.
func SnappyUnmarshal(b []byte, v interface{}) error {
	raw, err := snappy.Decode(nil, b)
	if err != nil {
		return errors.Wrap(err, "unable to decompress value")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(err, "unable to decode value")
	}
	return nil
}
