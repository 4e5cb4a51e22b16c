package geolocation

import (
	"time"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/migalabs/solana-exporter/pkg/utils"
	"github.com/pkg/errors"
)

// GeoCache keeps MaxMind lookups keyed by IP address.
type GeoCache struct {
	store kvstore.KVStore
}

func NewGeoCache(store kvstore.KVStore) *GeoCache {
	return &GeoCache{store: store}
}

func (c *GeoCache) Fetch(ip string) (*GeoInfo, bool, error) {
	raw, err := c.store.Get(kvstore.Key(ip))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "unable to read geolocation of %s", ip)
	}
	info := &GeoInfo{}
	if err := utils.SnappyUnmarshal(raw, info); err != nil {
		return nil, false, errors.Wrapf(err, "geolocation of %s", ip)
	}
	return info, true, nil
}

// FetchWithInvalidation drops the entry of ip when isStale reports its fetch
// time as too old, and reports it as missing.
func (c *GeoCache) FetchWithInvalidation(ip string, isStale func(fetchedAt time.Time) bool) (*GeoInfo, bool, error) {
	info, found, err := c.Fetch(ip)
	if err != nil || !found {
		return nil, false, err
	}
	if isStale(info.FetchedAt) {
		if err := c.Remove(ip); err != nil {
			return nil, false, errors.Wrap(err, "unable to remove stale geolocation")
		}
		return nil, false, nil
	}
	return info, true, nil
}

func (c *GeoCache) Add(ip string, info *GeoInfo) error {
	raw, err := utils.SnappyMarshal(info)
	if err != nil {
		return err
	}
	if err := c.store.Set(kvstore.Key(ip), raw); err != nil {
		return errors.Wrapf(err, "unable to store geolocation of %s", ip)
	}
	return c.store.Flush()
}

func (c *GeoCache) Remove(ip string) error {
	if err := c.store.Delete(kvstore.Key(ip)); err != nil {
		return errors.Wrapf(err, "unable to remove geolocation of %s", ip)
	}
	return c.store.Flush()
}
