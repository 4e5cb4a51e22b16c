package exporter

import (
	"github.com/migalabs/solana-exporter/pkg/metrics"
	"github.com/migalabs/solana-exporter/pkg/utils"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var modDetails = "general metrics about the poll loop"

type pollMetrics struct {
	pollDuration prometheus.Histogram
	stepDuration *prometheus.GaugeVec
	failures     *prometheus.CounterVec
	voteAccounts prometheus.Gauge
}

func newPollMetrics() *pollMetrics {
	return &pollMetrics{
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: utils.MetricsNamespace,
			Name:      "poll_duration_seconds",
			Help:      "Time spent on a full poll of the node",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		stepDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: utils.MetricsNamespace,
			Name:      "poll_step_duration_milliseconds",
			Help:      "Time spent on the last run of each poll step",
		}, []string{"step"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: utils.MetricsNamespace,
			Name:      "poll_failures_total",
			Help:      "Poll steps that ended in an error",
		}, []string{"step"}),
		voteAccounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: utils.MetricsNamespace,
			Name:      "tracked_vote_accounts",
			Help:      "Whitelisted vote accounts seen in the last poll",
		}),
	}
}

func (e *Exporter) GetPrometheusMetrics() *metrics.MetricsModule {
	metricsMod := metrics.NewMetricsModule(
		modName,
		modDetails,
	)
	metricsMod.AddIndvMetric(e.getPollMetrics())
	metricsMod.AddIndvMetric(e.getStepDurations())
	return metricsMod
}

func (e *Exporter) getPollMetrics() *metrics.IndvMetrics {
	initFn := func(reg prometheus.Registerer) error {
		for _, c := range []prometheus.Collector{e.metrics.pollDuration, e.metrics.failures, e.metrics.voteAccounts} {
			if err := reg.Register(c); err != nil {
				return err
			}
		}
		return nil
	}
	updateFn := func() (interface{}, error) {
		snapshot := e.monitor.Snapshot()
		return snapshot.Polls, nil
	}
	indvMetr, err := metrics.NewIndvMetrics("polls", initFn, updateFn)
	if err != nil {
		log.Error(errors.Wrap(err, "unable to init polls"))
		return nil
	}
	return indvMetr
}

func (e *Exporter) getStepDurations() *metrics.IndvMetrics {
	initFn := func(reg prometheus.Registerer) error {
		return reg.Register(e.metrics.stepDuration)
	}
	updateFn := func() (interface{}, error) {
		snapshot := e.monitor.Snapshot()
		for step, millis := range snapshot.StepTime {
			e.metrics.stepDuration.WithLabelValues(step).Set(millis)
		}
		return snapshot.StepTime, nil
	}
	indvMetr, err := metrics.NewIndvMetrics("step_duration", initFn, updateFn)
	if err != nil {
		log.Error(errors.Wrap(err, "unable to init step_duration"))
		return nil
	}
	return indvMetr
}
