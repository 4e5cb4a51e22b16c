package cmd

import (
	cli "github.com/urfave/cli/v2"

	"github.com/migalabs/solana-exporter/pkg/config"
)

// exporterFlags are shared by every command that builds an ExporterConfig.
var exporterFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "config",
		Usage: "config file (toml, yaml or json), defaults to <data-dir>/" + config.DefaultConfigFile,
	},
	&cli.StringFlag{
		Name:  "log-level",
		Usage: "log level: trace, debug, info, warn, error",
	},
	&cli.StringFlag{
		Name:  "log-output",
		Usage: "terminal or the path of a log file",
	},
	&cli.StringFlag{
		Name:  "rpc",
		Usage: "solana rpc endpoint, example: http://localhost:8899",
	},
	&cli.DurationFlag{
		Name:  "rpc-timeout",
		Usage: "timeout of a single rpc request",
	},
	&cli.StringFlag{
		Name:  "target",
		Usage: "address to serve prometheus metrics on, example: 0.0.0.0:9179",
	},
	&cli.DurationFlag{
		Name:  "metrics-interval",
		Usage: "interval between refreshes of the exporter's own metrics",
	},
	&cli.StringSliceFlag{
		Name:  "pubkey-whitelist",
		Usage: "vote and node pubkeys to export, all of them when empty",
	},
	&cli.StringFlag{
		Name:  "maxmind-username",
		Usage: "maxmind account id, enables the geolocation gauges",
	},
	&cli.StringFlag{
		Name:  "maxmind-password",
		Usage: "maxmind license key",
	},
	&cli.StringFlag{
		Name:  "data-dir",
		Usage: "directory holding the epoch cache",
	},
	&cli.StringFlag{
		Name:  "db-engine",
		Usage: "storage engine of the epoch cache: rocksdb or mapdb",
	},
	&cli.DurationFlag{
		Name:  "poll-interval",
		Usage: "interval between polls of the node",
	},
}
