package exporter

import (
	"context"
	"strings"
	"time"

	"github.com/migalabs/solana-exporter/pkg/clientapi"
	"github.com/migalabs/solana-exporter/pkg/db"
	"github.com/migalabs/solana-exporter/pkg/geolocation"
	prom_metrics "github.com/migalabs/solana-exporter/pkg/metrics"
	"github.com/migalabs/solana-exporter/pkg/rewards"
	"github.com/migalabs/solana-exporter/pkg/slots"
	"github.com/migalabs/solana-exporter/pkg/spec"
	"github.com/migalabs/solana-exporter/pkg/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

var (
	modName = "Exporter"
	log     = logrus.WithField(
		"module", modName,
	)
)

const DefaultPollInterval = 10 * time.Second

// Poll steps, used as the "step" log field and metric label.
const (
	stepEpochInfo    = "epoch_info"
	stepVoteAccounts = "vote_accounts"
	stepRewards      = "rewards"
	stepSkippedSlots = "skipped_slots"
	stepNodes        = "nodes"
	stepGeolocation  = "geolocation"
)

// Sink is every gauge the exporter writes to.
type Sink interface {
	rewards.Sink
	slots.Sink
	geolocation.Sink

	SetActiveValidators(current, delinquent int)
	SetVoteAccount(acc spec.VoteAccount, delinquent bool)
	SetEpochInfo(info *spec.EpochInfo)
	SetAverageSlotTime(seconds float64)
	SetNodeBalance(pubkey string, lamports uint64)
	SetNodeVersions(total int, versions map[string]int)
}

// Exporter polls the node and refreshes the validator gauges on every tick.
type Exporter struct {
	ctx    context.Context
	cancel context.CancelFunc

	cli       clientapi.Client
	sink      Sink
	whitelist spec.Whitelist
	interval  time.Duration
	lookback  uint64
	now       func() time.Time

	rewards  *rewards.Engine
	slots    *slots.SkippedSlotMonitor
	geo      *geolocation.Exporter // nil unless a locator is configured
	locator  geolocation.Locator
	monitor  *prom_metrics.Monitor
	metrics  *pollMetrics
	initTime time.Time

	routineClosed chan struct{}
}

type ExporterOption func(*Exporter) error

func WithWhitelist(whitelist spec.Whitelist) ExporterOption {
	return func(e *Exporter) error {
		e.whitelist = whitelist
		return nil
	}
}

func WithPollInterval(interval time.Duration) ExporterOption {
	return func(e *Exporter) error {
		if interval <= 0 {
			return errors.Errorf("invalid poll interval %s", interval)
		}
		e.interval = interval
		return nil
	}
}

func WithLookback(epochs uint64) ExporterOption {
	return func(e *Exporter) error {
		e.lookback = epochs
		return nil
	}
}

// WithGeolocation enables the ISP and datacenter gauges.
func WithGeolocation(locator geolocation.Locator) ExporterOption {
	return func(e *Exporter) error {
		e.locator = locator
		return nil
	}
}

func WithClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) error {
		e.now = now
		return nil
	}
}

func NewExporter(
	pCtx context.Context,
	cli clientapi.Client,
	epochCache *db.EpochCache,
	sink Sink,
	options ...ExporterOption) (*Exporter, error) {

	ctx, cancel := context.WithCancel(pCtx)
	e := &Exporter{
		ctx:           ctx,
		cancel:        cancel,
		cli:           cli,
		sink:          sink,
		whitelist:     spec.NewWhitelist(),
		interval:      DefaultPollInterval,
		lookback:      spec.MaxEpochLookback,
		now:           time.Now,
		monitor:       prom_metrics.NewMonitorMetrics(),
		metrics:       newPollMetrics(),
		routineClosed: make(chan struct{}),
	}
	for _, opt := range options {
		if err := opt(e); err != nil {
			cancel()
			return nil, err
		}
	}

	engine, err := rewards.NewEngine(cli, epochCache, sink,
		rewards.WithLookback(e.lookback),
		rewards.WithClock(e.now))
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "unable to create rewards engine")
	}
	e.rewards = engine
	e.slots = slots.NewSkippedSlotMonitor(cli, sink)

	if e.locator != nil {
		geoCache := geolocation.NewGeoCache(epochCache.GeolocationStore())
		e.geo = geolocation.NewExporter(geoCache, e.locator, sink, e.now)
	}
	return e, nil
}

// RegisterMetrics hands the self metrics of every component to the service.
func (e *Exporter) RegisterMetrics(promMetrics *prom_metrics.PrometheusMetrics) {
	promMetrics.AddMetricsModule(e.GetPrometheusMetrics())
	promMetrics.AddMetricsModule(e.rewards.GetPrometheusMetrics())
	promMetrics.AddMetricsModule(e.slots.GetPrometheusMetrics())
}

// Run polls immediately and then once per interval until Close is called.
// Ticks that fall behind are dropped.
func (e *Exporter) Run() {
	defer close(e.routineClosed)
	e.initTime = e.now()
	log.Infof("exporter started at %s, polling every %s", e.initTime, e.interval)
	if !e.whitelist.IsEmpty() {
		log.Infof("tracking %d whitelisted keys: %s", len(e.whitelist), strings.Join(e.whitelist.Keys(), ", "))
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		if err := e.Poll(e.ctx); err != nil && e.ctx.Err() == nil {
			log.Warnf("poll finished with errors: %s", err.Error())
		}
		select {
		case <-e.ctx.Done():
			log.Infof("exporter finished after %s", time.Since(e.initTime))
			return
		case <-ticker.C:
		}
	}
}

// Close stops the poll loop and waits for the tick in progress. Run must have
// been started.
func (e *Exporter) Close() {
	log.Info("closing exporter")
	e.cancel()
	<-e.routineClosed
}

// Poll runs one round of every export step. A failed step is logged and
// does not prevent the following ones, the combined error is returned.
func (e *Exporter) Poll(ctx context.Context) error {
	start := e.now()
	e.monitor.AddPoll(start)
	defer func() {
		e.metrics.pollDuration.Observe(time.Since(start).Seconds())
	}()

	var info *spec.EpochInfo
	err := e.step(ctx, nil, stepEpochInfo, func(ctx context.Context) error {
		var err error
		info, err = e.cli.GetEpochInfo(ctx)
		if err != nil {
			return errors.Wrap(err, "unable to get epoch info")
		}
		return e.ExportEpochInfo(ctx, info)
	})
	if info == nil {
		// nothing else can be placed in time
		return err
	}

	var voteAccounts *spec.VoteAccounts
	err = multierr.Append(err, e.step(ctx, info, stepVoteAccounts, func(ctx context.Context) error {
		var err error
		voteAccounts, err = e.cli.GetVoteAccounts(ctx)
		if err != nil {
			return errors.Wrap(err, "unable to get vote accounts")
		}
		e.ExportVoteAccounts(voteAccounts)
		return nil
	}))

	err = multierr.Append(err, e.step(ctx, info, stepRewards, func(ctx context.Context) error {
		return e.rewards.Export(ctx, info, e.whitelist)
	}))

	err = multierr.Append(err, e.step(ctx, info, stepSkippedSlots, func(ctx context.Context) error {
		return e.slots.ExportSkippedSlots(ctx, info, e.whitelist)
	}))

	var nodes []spec.ClusterNode
	err = multierr.Append(err, e.step(ctx, info, stepNodes, func(ctx context.Context) error {
		var err error
		nodes, err = e.cli.GetClusterNodes(ctx)
		if err != nil {
			return errors.Wrap(err, "unable to get cluster nodes")
		}
		return e.ExportNodesInfo(ctx, nodes)
	}))

	if e.geo != nil && nodes != nil && voteAccounts != nil {
		err = multierr.Append(err, e.step(ctx, info, stepGeolocation, func(ctx context.Context) error {
			return e.geo.ExportIPAddresses(ctx, nodes, voteAccounts, e.whitelist)
		}))
	}

	log.WithFields(logrus.Fields{
		"epoch":      info.Epoch,
		"slot-index": info.SlotIndex,
		"failures":   len(multierr.Errors(err)),
	}).Debugf("poll done in %s", time.Since(start))
	return err
}

func (e *Exporter) step(ctx context.Context, info *spec.EpochInfo, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	e.monitor.AddStep(name, utils.DurationToFloat64Millis(time.Since(start)))
	if err == nil {
		return nil
	}

	e.monitor.AddFailure(name)
	e.metrics.failures.WithLabelValues(name).Inc()

	fields := logrus.Fields{"step": name}
	if info != nil {
		fields["epoch"] = info.Epoch
	}
	entry := log.WithFields(fields)
	if errors.Is(err, rewards.ErrHistoricalEpochMissing) {
		entry.Errorf("%s: the cache is missing an epoch of the lookback window, restore the data dir or remove it to start tracking afresh", err.Error())
	} else {
		entry.Error(err.Error())
	}
	return errors.Wrap(err, name)
}
