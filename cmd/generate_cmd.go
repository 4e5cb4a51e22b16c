package cmd

import (
	"path/filepath"

	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/migalabs/solana-exporter/pkg/config"
)

var GenerateCommand = &cli.Command{
	Name:   "generate",
	Usage:  "write the effective configuration to a config file",
	Action: GenerateConfig,
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "output",
			Usage: "file to write, defaults to <data-dir>/" + config.DefaultConfigFile,
		},
	}, exporterFlags...),
}

var logCmdGenerate = logrus.WithField(
	"module", "generateCommand",
)

func GenerateConfig(c *cli.Context) error {
	conf, err := config.Load(c)
	if err != nil {
		return err
	}

	output := filepath.Join(conf.DataDir, config.DefaultConfigFile)
	if c.IsSet("output") {
		output = c.String("output")
	}
	if err := conf.WriteFile(output); err != nil {
		return err
	}
	logCmdGenerate.Infof("config written to %s", output)
	return nil
}
