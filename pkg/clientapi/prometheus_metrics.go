package clientapi

import (
	"sync"
	"time"

	"github.com/migalabs/solana-exporter/pkg/metrics"
	"github.com/migalabs/solana-exporter/pkg/utils"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	clientAPIMetricsName    = "clientapi"
	clientAPIMetricsDetails = "metrics about the json-rpc client"

	statusOK             = "ok"
	statusTransportError = "transport_error"
	statusHTTPError      = "http_error"
	statusRPCError       = "rpc_error"
	statusDecodeError    = "decode_error"
)

type requestMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec

	mu       sync.Mutex
	failures map[string]int64
}

func newRequestMetrics() *requestMetrics {
	return &requestMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: utils.MetricsNamespace,
				Subsystem: clientAPIMetricsName,
				Name:      "rpc_requests_total",
				Help:      "Total number of json-rpc requests by method and outcome.",
			},
			[]string{"method", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: utils.MetricsNamespace,
				Subsystem: clientAPIMetricsName,
				Name:      "rpc_request_duration_seconds",
				Help:      "Latency of json-rpc requests by method.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		failures: make(map[string]int64),
	}
}

func (m *requestMetrics) observe(method, status string, took time.Duration) {
	m.requests.WithLabelValues(method, status).Inc()
	m.latency.WithLabelValues(method).Observe(took.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	if status != statusOK {
		m.failures[method]++
	}
}

func (m *requestMetrics) snapshot() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int64, len(m.failures))
	for method, failures := range m.failures {
		out[method] = failures
	}
	return out
}

func (m *requestMetrics) getPrometheusMetrics() *metrics.MetricsModule {
	mod := metrics.NewMetricsModule(
		clientAPIMetricsName,
		clientAPIMetricsDetails,
	)

	initFn := func(reg prometheus.Registerer) error {
		if err := reg.Register(m.requests); err != nil {
			return err
		}
		return reg.Register(m.latency)
	}

	updateFn := func() (interface{}, error) {
		return m.snapshot(), nil
	}

	indvMetrics, err := metrics.NewIndvMetrics(
		"rpc_requests",
		initFn,
		updateFn,
	)
	if err != nil {
		log.Error(errors.Wrap(err, "unable to init rpc_requests metrics"))
		return nil
	}

	if err := mod.AddIndvMetric(indvMetrics); err != nil {
		log.Error(errors.Wrap(err, "unable to register rpc metrics module"))
		return nil
	}

	return mod
}
