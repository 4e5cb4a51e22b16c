package rewards

import (
	"strings"

	"github.com/migalabs/solana-exporter/pkg/metrics"
	"github.com/migalabs/solana-exporter/pkg/utils"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

type engineMetrics struct {
	lastEpoch     prometheus.Gauge
	voters        prometheus.Gauge
	epochDuration prometheus.Gauge
	failures      prometheus.Counter
	exports       prometheus.CounterFunc

	exported atomic.Uint64
}

func newEngineMetrics() *engineMetrics {
	subsystem := strings.ToLower(modName)
	m := &engineMetrics{
		lastEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: utils.MetricsNamespace,
			Subsystem: subsystem,
			Name:      "last_exported_epoch",
			Help:      "Last epoch whose rewards were exported",
		}),
		voters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: utils.MetricsNamespace,
			Subsystem: subsystem,
			Name:      "voters",
			Help:      "Voters with a staking yield in the lookback window",
		}),
		epochDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: utils.MetricsNamespace,
			Subsystem: subsystem,
			Name:      "current_epoch_duration_days",
			Help:      "Estimated length of the current epoch in days",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: utils.MetricsNamespace,
			Subsystem: subsystem,
			Name:      "failures_total",
			Help:      "Rewards computations that ended in an error",
		}),
	}
	m.exports = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: utils.MetricsNamespace,
		Subsystem: subsystem,
		Name:      "exports_total",
		Help:      "Rewards computations published to the gauges",
	}, func() float64 {
		return float64(m.exported.Load())
	})
	return m
}

func (m *engineMetrics) computed(out *Metrics) {
	m.lastEpoch.Set(float64(out.Epoch))
	m.voters.Set(float64(len(out.VoterApy)))
	m.exported.Inc()
}

func (e *Engine) GetPrometheusMetrics() *metrics.MetricsModule {
	metricsMod := metrics.NewMetricsModule(
		modName,
		"metrics about the staking rewards engine",
	)

	initFn := func(reg prometheus.Registerer) error {
		for _, c := range []prometheus.Collector{
			e.metrics.lastEpoch,
			e.metrics.voters,
			e.metrics.epochDuration,
			e.metrics.failures,
			e.metrics.exports,
		} {
			if err := reg.Register(c); err != nil {
				return err
			}
		}
		return nil
	}
	updateFn := func() (interface{}, error) {
		return e.metrics.exported.Load(), nil
	}
	indvMetr, err := metrics.NewIndvMetrics("exports", initFn, updateFn)
	if err != nil {
		log.Error(errors.Wrap(err, "unable to init rewards metrics"))
		return nil
	}
	metricsMod.AddIndvMetric(indvMetr)
	return metricsMod
}
