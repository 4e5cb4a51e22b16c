package metrics

import (
	"sync"
	"time"
)

// Monitor accumulates per-step timings and failures of the poll loop.
type Monitor struct {
	m        sync.Mutex
	Polls    uint64
	StepTime map[string]float64
	Failures map[string]uint64
	LastPoll time.Time
}

func NewMonitorMetrics() *Monitor {
	return &Monitor{
		StepTime: make(map[string]float64),
		Failures: make(map[string]uint64),
	}
}

func (p *Monitor) AddPoll(at time.Time) {
	p.m.Lock()
	p.Polls++
	p.LastPoll = at

	p.m.Unlock()
}

func (p *Monitor) AddStep(step string, executionTime float64) {
	p.m.Lock()
	p.StepTime[step] = executionTime

	p.m.Unlock()
}

func (p *Monitor) AddFailure(step string) {
	p.m.Lock()
	p.Failures[step]++

	p.m.Unlock()
}

type MonitorSnapshot struct {
	Polls    uint64
	StepTime map[string]float64
	Failures map[string]uint64
	LastPoll time.Time
}

// Snapshot returns a copy that can be read without holding the lock.
func (p *Monitor) Snapshot() MonitorSnapshot {
	p.m.Lock()
	defer p.m.Unlock()

	cp := MonitorSnapshot{
		Polls:    p.Polls,
		LastPoll: p.LastPoll,
		StepTime: make(map[string]float64, len(p.StepTime)),
		Failures: make(map[string]uint64, len(p.Failures)),
	}
	for k, v := range p.StepTime {
		cp.StepTime[k] = v
	}
	for k, v := range p.Failures {
		cp.Failures[k] = v
	}
	return cp
}
