package config

import (
	"os"
	"path/filepath"
	"time"
)

var (
	DefaultLogLevel              string        = "info"
	DefaultLogOutput             string        = "terminal"
	DefaultRPC                   string        = "http://localhost:8899"
	DefaultTarget                string        = "0.0.0.0:9179"
	DefaultDataDir               string        = defaultDataDir()
	DefaultDBEngine              string        = "rocksdb"
	DefaultPollInterval          time.Duration = 10 * time.Second
	DefaultRPCTimeout            time.Duration = 30 * time.Second
	DefaultMetricsUpdateInterval time.Duration = 15 * time.Second
	DefaultConfigFile            string        = "config.toml"
)

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".solana-exporter"
	}
	return filepath.Join(home, ".solana-exporter")
}
