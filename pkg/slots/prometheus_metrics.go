package slots

import (
	"strings"

	"github.com/migalabs/solana-exporter/pkg/metrics"
	"github.com/migalabs/solana-exporter/pkg/utils"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type monitorMetrics struct {
	processed     prometheus.Counter
	lastSlotIndex prometheus.Gauge
	scheduled     prometheus.Gauge
}

func newMonitorMetrics() *monitorMetrics {
	subsystem := strings.ToLower(modName)
	return &monitorMetrics{
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: utils.MetricsNamespace,
			Subsystem: subsystem,
			Name:      "processed_total",
			Help:      "Slots walked by the skipped slot monitor",
		}),
		lastSlotIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: utils.MetricsNamespace,
			Subsystem: subsystem,
			Name:      "last_processed_slot_index",
			Help:      "Slot index within the epoch up to which slots are classified",
		}),
		scheduled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: utils.MetricsNamespace,
			Subsystem: subsystem,
			Name:      "scheduled_slots",
			Help:      "Slots of the current epoch assigned to whitelisted leaders",
		}),
	}
}

func (m *SkippedSlotMonitor) GetPrometheusMetrics() *metrics.MetricsModule {
	metricsMod := metrics.NewMetricsModule(
		modName,
		"metrics about the skipped slot monitor",
	)
	initFn := func(reg prometheus.Registerer) error {
		for _, c := range []prometheus.Collector{m.metrics.processed, m.metrics.lastSlotIndex, m.metrics.scheduled} {
			if err := reg.Register(c); err != nil {
				return err
			}
		}
		return nil
	}
	updateFn := func() (interface{}, error) {
		return nil, nil
	}
	indvMetr, err := metrics.NewIndvMetrics("progress", initFn, updateFn)
	if err != nil {
		log.Error(errors.Wrap(err, "unable to init slot metrics"))
		return nil
	}
	metricsMod.AddIndvMetric(indvMetr)
	return metricsMod
}
