package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/migalabs/solana-exporter/cmd"
	"github.com/migalabs/solana-exporter/pkg/utils"
)

var (
	log = logrus.WithField(
		"cli", utils.CliName,
	)
)

func main() {
	fmt.Println(utils.CliName, utils.Version)

	// Set the general log configurations for the entire tool
	logrus.SetFormatter(utils.ParseLogFormatter("text"))
	logrus.SetOutput(utils.DefaultLogOutput)
	logrus.SetLevel(utils.ParseLogLevel("info"))

	app := &cli.App{
		Name:                 utils.CliName,
		Usage:                "Publishes Solana validator metrics to Prometheus.",
		UsageText:            "solana-exporter [commands] [arguments...]",
		Version:              utils.Version,
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			cmd.RunCommand,
			cmd.GenerateCommand,
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		log.Errorf("error: %v\n", err)
		os.Exit(1)
	}
}
