package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/migalabs/solana-exporter/pkg/utils"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	modName = "metrics"
	log     = logrus.WithField(
		"module", modName,
	)
)

// PrometheusMetrics owns the registry served on the metrics endpoint and
// periodically refreshes the registered modules.
type PrometheusMetrics struct {
	ctx    context.Context
	cancel context.CancelFunc

	target         string
	updateInterval time.Duration
	registry       *prometheus.Registry
	server         *http.Server

	m       sync.Mutex
	modules []*MetricsModule

	wg sync.WaitGroup
}

func NewPrometheusMetrics(pCtx context.Context, target string, updateInterval time.Duration) *PrometheusMetrics {
	ctx, cancel := context.WithCancel(pCtx)
	return &PrometheusMetrics{
		ctx:            ctx,
		cancel:         cancel,
		target:         target,
		updateInterval: updateInterval,
		registry:       prometheus.NewRegistry(),
		modules:        make([]*MetricsModule, 0),
	}
}

// Registry is where the exported gauges are registered.
func (p *PrometheusMetrics) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusMetrics) AddMetricsModule(mod *MetricsModule) {
	if mod == nil {
		return
	}
	p.m.Lock()
	defer p.m.Unlock()
	p.modules = append(p.modules, mod)
}

// Start registers every module, serves the registry and launches the update loop.
func (p *PrometheusMetrics) Start() error {
	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p.m.Lock()
	for _, mod := range p.modules {
		if err := mod.Init(p.registry); err != nil {
			p.m.Unlock()
			return errors.Wrapf(err, "unable to init metrics module %s", mod.Name())
		}
		log.Debugf("metrics module %s initialized: %s", mod.Name(), mod.Details())
	}
	p.m.Unlock()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry}))
	p.server = &http.Server{
		Addr:              p.target,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		log.Infof("serving metrics at http://%s/metrics", p.target)
		if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics endpoint stopped: %s", err.Error())
		}
	}()
	go func() {
		defer p.wg.Done()
		p.updateLoop()
	}()
	return nil
}

func (p *PrometheusMetrics) updateLoop() {
	ticker := time.NewTicker(p.updateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.update()
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *PrometheusMetrics) update() {
	p.m.Lock()
	defer p.m.Unlock()
	for _, mod := range p.modules {
		summary := mod.Update()
		log.WithField("metrics-module", mod.Name()).Tracef("%+v", summary)
	}
}

func (p *PrometheusMetrics) Close() {
	p.cancel()
	if p.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), utils.RoutineFlushTimeout)
		defer cancel()
		if err := p.server.Shutdown(ctx); err != nil {
			log.Warnf("unable to shut down metrics endpoint: %s", err.Error())
		}
	}
	p.wg.Wait()
}
