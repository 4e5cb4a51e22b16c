package db

import (
	"time"

	"github.com/hashicorp/go-version"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/migalabs/solana-exporter/pkg/utils"
	"github.com/pkg/errors"
)

var schemaKey = kvstore.Key("schema")

type schemaRecord struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// checkVersion stamps a new cache with the running version. An existing cache
// written by another major version is still opened, with a warning.
func (c *EpochCache) checkVersion() error {
	var stored schemaRecord
	found, err := c.get(c.metadata, metadataPartition, schemaKey, &stored)
	if err != nil {
		return errors.Wrap(err, "unable to read cache schema")
	}
	if !found {
		c.schema = schemaRecord{Version: utils.Version, CreatedAt: time.Now().UTC()}
		if err := c.put(c.metadata, metadataPartition, schemaKey, c.schema); err != nil {
			return err
		}
		log.Infof("stamped new epoch cache with version %s", utils.Version)
		return c.flush(c.metadata, metadataPartition)
	}
	c.schema = stored

	compatible, err := sameMajor(stored.Version, utils.Version)
	if err != nil {
		log.Warnf("unable to compare cache version %q: %s", stored.Version, err.Error())
		return nil
	}
	if !compatible {
		log.Warnf("epoch cache was written by %s, running %s; delete the data dir if metrics look wrong",
			stored.Version, utils.Version)
	}
	return nil
}

func sameMajor(a, b string) (bool, error) {
	va, err := version.NewVersion(a)
	if err != nil {
		return false, err
	}
	vb, err := version.NewVersion(b)
	if err != nil {
		return false, err
	}
	return va.Segments()[0] == vb.Segments()[0], nil
}

// SchemaVersion returns the version the cache was created with.
func (c *EpochCache) SchemaVersion() string {
	return c.schema.Version
}

func (c *EpochCache) CreatedAt() time.Time {
	return c.schema.CreatedAt
}
