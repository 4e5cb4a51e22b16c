package cmd

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/migalabs/solana-exporter/pkg/clientapi"
	"github.com/migalabs/solana-exporter/pkg/config"
	"github.com/migalabs/solana-exporter/pkg/db"
	"github.com/migalabs/solana-exporter/pkg/exporter"
	"github.com/migalabs/solana-exporter/pkg/geolocation"
	"github.com/migalabs/solana-exporter/pkg/metrics"
	"github.com/migalabs/solana-exporter/pkg/utils"
)

var RunCommand = &cli.Command{
	Name:   "run",
	Usage:  "poll a solana node and serve validator metrics to prometheus",
	Action: LaunchExporter,
	Flags:  exporterFlags,
}

var logCmdRun = logrus.WithField(
	"module", "runCommand",
)

var _ exporter.Sink = (*metrics.ValidatorGauges)(nil)

func LaunchExporter(c *cli.Context) error {
	conf, err := config.Load(c)
	if err != nil {
		return err
	}

	logrus.SetLevel(utils.ParseLogLevel(conf.LogLevel))
	logOutput, err := utils.ParseLogOutput(conf.LogOutput)
	if err != nil {
		return err
	}
	logrus.SetOutput(logOutput)

	engine, err := db.ParseEngine(conf.DBEngine)
	if err != nil {
		return err
	}
	epochCache, err := db.Open(filepath.Join(conf.DataDir, "cache"), engine)
	if err != nil {
		return errors.Wrap(err, "unable to open epoch cache")
	}
	defer func() {
		if err := epochCache.Close(); err != nil {
			logCmdRun.Errorf("unable to close epoch cache: %s", err.Error())
		}
	}()

	promMetrics := metrics.NewPrometheusMetrics(c.Context, conf.Target, conf.MetricsUpdateInterval)
	gauges := metrics.NewValidatorGauges(promMetrics.Registry())

	rpcCli, err := clientapi.NewAPIClient(c.Context,
		conf.RPC,
		clientapi.WithTimeout(conf.RPCTimeout),
		clientapi.WithPromMetrics(promMetrics))
	if err != nil {
		return errors.Wrap(err, "unable to generate API Client")
	}

	options := []exporter.ExporterOption{
		exporter.WithWhitelist(conf.Whitelist()),
		exporter.WithPollInterval(conf.PollInterval),
	}
	if conf.GeolocationEnabled() {
		maxmind, err := geolocation.NewMaxMindClient(conf.MaxMindUsername, conf.MaxMindPassword)
		if err != nil {
			return err
		}
		options = append(options, exporter.WithGeolocation(maxmind))
	}

	solanaExporter, err := exporter.NewExporter(c.Context, rpcCli, epochCache, gauges, options...)
	if err != nil {
		return err
	}
	solanaExporter.RegisterMetrics(promMetrics)
	promMetrics.AddMetricsModule(epochCache.GetPrometheusMetrics())

	if err := promMetrics.Start(); err != nil {
		return errors.Wrap(err, "unable to start prometheus metrics")
	}
	defer promMetrics.Close()

	logCmdRun.WithFields(logrus.Fields{
		"rpc":       conf.RPC,
		"target":    conf.Target,
		"whitelist": len(conf.PubkeyWhitelist),
		"cache":     epochCache.SchemaVersion(),
		"cache-age": time.Since(epochCache.CreatedAt()).Round(time.Second),
	}).Info("exporter configured")

	procDoneC := make(chan struct{})
	sigtermC := make(chan os.Signal, 1)

	signal.Notify(sigtermC, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigtermC)

	go func() {
		solanaExporter.Run()
		close(procDoneC)
	}()

	select {
	case <-sigtermC:
		logCmdRun.Info("Sudden shutdown detected, controlled shutdown of the cli triggered")
		solanaExporter.Close()

	case <-procDoneC:
		logCmdRun.Info("Process successfully finish!")
	}
	return nil
}
