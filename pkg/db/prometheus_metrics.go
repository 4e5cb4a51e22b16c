package db

import (
	"sync"

	"github.com/migalabs/solana-exporter/pkg/metrics"
	"github.com/migalabs/solana-exporter/pkg/utils"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	opRead  = "read"
	opWrite = "write"
	opMiss  = "miss"
)

type cacheMetrics struct {
	operations *prometheus.CounterVec

	mu     sync.Mutex
	writes map[string]uint64
}

func newCacheMetrics() *cacheMetrics {
	return &cacheMetrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: utils.MetricsNamespace,
				Subsystem: modName,
				Name:      "operations_total",
				Help:      "Epoch cache operations by partition and kind.",
			},
			[]string{"partition", "op"},
		),
		writes: make(map[string]uint64),
	}
}

func (m *cacheMetrics) observe(p partition, op string) {
	m.operations.WithLabelValues(p.name, op).Inc()
	if op != opWrite {
		return
	}
	m.mu.Lock()
	m.writes[p.name]++
	m.mu.Unlock()
}

func (m *cacheMetrics) writesSnapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.writes))
	for k, v := range m.writes {
		out[k] = v
	}
	return out
}

func (c *EpochCache) GetPrometheusMetrics() *metrics.MetricsModule {
	metricsMod := metrics.NewMetricsModule(
		modName,
		"metrics about the epoch cache",
	)

	initFn := func(reg prometheus.Registerer) error {
		return reg.Register(c.metrics.operations)
	}
	updateFn := func() (interface{}, error) {
		return c.metrics.writesSnapshot(), nil
	}
	indvMetr, err := metrics.NewIndvMetrics("operations", initFn, updateFn)
	if err != nil {
		log.Error(errors.Wrap(err, "unable to init cache metrics"))
		return nil
	}
	metricsMod.AddIndvMetric(indvMetr)
	return metricsMod
}
