package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsModule groups the individual metrics of one component of the exporter.
type MetricsModule struct {
	name        string
	details     string
	indvMetrics []*IndvMetrics
}

func NewMetricsModule(name, details string) *MetricsModule {
	return &MetricsModule{
		name:        name,
		details:     details,
		indvMetrics: make([]*IndvMetrics, 0),
	}
}

func (m *MetricsModule) Name() string {
	return m.name
}

func (m *MetricsModule) Details() string {
	return m.details
}

func (m *MetricsModule) AddIndvMetric(indvMetr *IndvMetrics) error {
	if indvMetr == nil {
		return errors.Errorf("no metric given to module %s", m.name)
	}
	m.indvMetrics = append(m.indvMetrics, indvMetr)
	return nil
}

func (m *MetricsModule) Init(reg prometheus.Registerer) error {
	for _, indvMetr := range m.indvMetrics {
		if err := indvMetr.Init(reg); err != nil {
			return errors.Wrapf(err, "unable to init metric %s of module %s", indvMetr.Name(), m.name)
		}
	}
	return nil
}

// Update refreshes every metric of the module, returning the collected
// summaries keyed by metric name.
func (m *MetricsModule) Update() map[string]interface{} {
	summary := make(map[string]interface{}, len(m.indvMetrics))
	for _, indvMetr := range m.indvMetrics {
		val, err := indvMetr.Update()
		if err != nil {
			log.Warnf("unable to update metric %s of module %s: %s", indvMetr.Name(), m.name, err.Error())
			continue
		}
		summary[indvMetr.Name()] = val
	}
	return summary
}

// IndvMetrics is a single metric (or group of series) with its registration
// and refresh hooks.
type IndvMetrics struct {
	name     string
	initFn   func(reg prometheus.Registerer) error
	updateFn func() (interface{}, error)
}

func NewIndvMetrics(
	name string,
	initFn func(reg prometheus.Registerer) error,
	updateFn func() (interface{}, error)) (*IndvMetrics, error) {

	if initFn == nil || updateFn == nil {
		return nil, errors.Errorf("metric %s needs both init and update functions", name)
	}
	return &IndvMetrics{
		name:     name,
		initFn:   initFn,
		updateFn: updateFn,
	}, nil
}

func (i *IndvMetrics) Name() string {
	return i.name
}

func (i *IndvMetrics) Init(reg prometheus.Registerer) error {
	return i.initFn(reg)
}

func (i *IndvMetrics) Update() (interface{}, error) {
	return i.updateFn()
}
