package synthesis

import "sync"

// SuiteMetrics is the process-wide analysis counter. It is constructed at
// startup and injected into the Synthesizer rather than living as a package
// global, so tests can re-instantiate it per case. Single writer discipline:
// only the Synthesizer records, as its final step after fan-in, so the
// counters never reflect a partial analysis.
type SuiteMetrics struct {
	mu            sync.Mutex
	totalAnalyses int
	confidenceSum float64
	degraded      map[string]int
}

// MetricsSnapshot is a point-in-time copy of the suite counters.
type MetricsSnapshot struct {
	TotalAnalyses     int
	AverageConfidence float64
	DegradedByLayer   map[string]int
}

// NewSuiteMetrics returns zeroed suite metrics.
func NewSuiteMetrics() *SuiteMetrics {
	return &SuiteMetrics{degraded: make(map[string]int)}
}

// Record folds one completed analysis into the running counters.
func (m *SuiteMetrics) Record(overallScore float64, degradedLayers []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalAnalyses++
	m.confidenceSum += overallScore
	for _, layer := range degradedLayers {
		m.degraded[layer]++
	}
}

// Snapshot returns a copy of the current counters. Average confidence is 0
// before the first analysis.
func (m *SuiteMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	avg := 0.0
	if m.totalAnalyses > 0 {
		avg = m.confidenceSum / float64(m.totalAnalyses)
	}

	degraded := make(map[string]int, len(m.degraded))
	for k, v := range m.degraded {
		degraded[k] = v
	}

	return MetricsSnapshot{
		TotalAnalyses:     m.totalAnalyses,
		AverageConfidence: avg,
		DegradedByLayer:   degraded,
	}
}
