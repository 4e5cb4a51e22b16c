package db

import (
	"os"
	"strings"

	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/iotaledger/hive.go/kvstore/rocksdb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	modName = "db"
	log     = logrus.WithField(
		"module", modName,
	)
)

type Engine string

const (
	EngineRocksDB Engine = "rocksdb"
	EngineMapDB   Engine = "mapdb"
)

func ParseEngine(s string) (Engine, error) {
	switch Engine(strings.ToLower(s)) {
	case EngineRocksDB:
		return EngineRocksDB, nil
	case EngineMapDB:
		return EngineMapDB, nil
	default:
		return "", errors.Errorf("unknown db engine %q", s)
	}
}

// EpochCache persists per-epoch results that do not change once the epoch
// is over. Each kind of record lives in its own realm of the same store.
type EpochCache struct {
	store kvstore.KVStore

	rewards   kvstore.KVStore
	samples   kvstore.KVStore
	durations kvstore.KVStore
	voters    kvstore.KVStore
	metadata  kvstore.KVStore
	geo       kvstore.KVStore

	schema  schemaRecord
	metrics *cacheMetrics
}

// Open creates (or reopens) the cache at path. The mapdb engine keeps
// everything in memory and ignores path.
func Open(path string, engine Engine) (*EpochCache, error) {
	var store kvstore.KVStore
	switch engine {
	case EngineRocksDB:
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, errors.Wrapf(err, "unable to create cache directory %s", path)
		}
		db, err := rocksdb.CreateDB(path)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to open rocksdb at %s", path)
		}
		store = rocksdb.New(db)
	case EngineMapDB:
		store = mapdb.NewMapDB()
	default:
		return nil, errors.Errorf("unknown db engine %q", engine)
	}
	log.Infof("opened %s epoch cache at %s", engine, path)

	cache, err := NewEpochCache(store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return cache, nil
}

// NewEpochCache splits store into partitions and checks the stored schema version.
func NewEpochCache(store kvstore.KVStore) (*EpochCache, error) {
	c := &EpochCache{
		store:   store,
		metrics: newCacheMetrics(),
	}

	realms := []struct {
		partition partition
		dst       *kvstore.KVStore
	}{
		{rewardsPartition, &c.rewards},
		{samplesPartition, &c.samples},
		{durationsPartition, &c.durations},
		{votersPartition, &c.voters},
		{metadataPartition, &c.metadata},
		{geolocationPartition, &c.geo},
	}
	for _, r := range realms {
		realm, err := store.WithExtendedRealm(kvstore.Realm{r.partition.prefix})
		if err != nil {
			return nil, errors.Wrapf(err, "unable to open partition %s", r.partition.name)
		}
		*r.dst = realm
	}

	if err := c.checkVersion(); err != nil {
		return nil, err
	}
	return c, nil
}

// GeolocationStore exposes the partition reserved for geolocation lookups.
func (c *EpochCache) GeolocationStore() kvstore.KVStore {
	return c.geo
}

func (c *EpochCache) Close() error {
	if err := c.store.Flush(); err != nil {
		log.Warnf("unable to flush epoch cache: %s", err.Error())
	}
	if err := c.store.Close(); err != nil {
		return errors.Wrap(err, "unable to close epoch cache")
	}
	log.Info("epoch cache closed")
	return nil
}

// get reads key from store. A missing key is reported as found=false.
func (c *EpochCache) get(store kvstore.KVStore, p partition, key kvstore.Key, v interface{}) (bool, error) {
	raw, err := store.Get(key)
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		c.metrics.observe(p, opMiss)
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "unable to read from %s", p.name)
	}
	c.metrics.observe(p, opRead)
	if err := decodeValue(raw, v); err != nil {
		return false, errors.Wrapf(err, "%s key %x", p.name, key)
	}
	return true, nil
}

func (c *EpochCache) put(store kvstore.KVStore, p partition, key kvstore.Key, v interface{}) error {
	raw, err := encodeValue(v)
	if err != nil {
		return errors.Wrapf(err, "unable to encode %s value", p.name)
	}
	if err := store.Set(key, raw); err != nil {
		return errors.Wrapf(err, "unable to write to %s", p.name)
	}
	c.metrics.observe(p, opWrite)
	return nil
}

// flush makes the writes of a partition durable. Every public write ends with it.
func (c *EpochCache) flush(store kvstore.KVStore, p partition) error {
	if err := store.Flush(); err != nil {
		return errors.Wrapf(err, "unable to flush %s", p.name)
	}
	return nil
}
