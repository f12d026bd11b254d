package pipeline

import (
	"sync"
	"time"
)

// latencyMonitor measures per-tick processing duration against a
// threshold derived from the tick interval.
//
// Advisory telemetry only: Observe never blocks and never delays
// scheduling of the next tick. It also keeps a running mean/max so
// Stats() can expose degradation trends without a sample buffer.
type latencyMonitor struct {
	threshold time.Duration
	registry  *observerRegistry

	mu       sync.Mutex
	observed uint64
	exceeded uint64
	last     time.Duration
	max      time.Duration
	sum      time.Duration
}

func newLatencyMonitor(threshold time.Duration, registry *observerRegistry) *latencyMonitor {
	return &latencyMonitor{threshold: threshold, registry: registry}
}

// Observe records the capture+chain duration of one tick and notifies
// observers when it exceeds the threshold.
func (m *latencyMonitor) Observe(elapsed time.Duration) {
	m.mu.Lock()
	m.observed++
	m.last = elapsed
	m.sum += elapsed
	if elapsed > m.max {
		m.max = elapsed
	}
	tooHigh := m.threshold > 0 && elapsed > m.threshold
	if tooHigh {
		m.exceeded++
	}
	m.mu.Unlock()

	if tooHigh {
		m.registry.NotifyLatency(elapsed)
	}
}

// snapshot fills the duration-related fields of a Stats value.
func (m *latencyMonitor) snapshot(s *Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.LastTickDuration = m.last
	s.MaxTickDuration = m.max
	s.LatencyWarnings = m.exceeded
	if m.observed > 0 {
		s.MeanTickDuration = m.sum / time.Duration(m.observed)
	}
}
