package synthesis

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuiteMetricsRunningAverage(t *testing.T) {
	m := NewSuiteMetrics()

	m.Record(0.8, nil)
	m.Record(0.4, nil)
	m.Record(0.6, []string{LayerPurpose})

	snap := m.Snapshot()
	require.Equal(t, 3, snap.TotalAnalyses)
	assert.InDelta(t, 0.6, snap.AverageConfidence, 1e-9)
	assert.Equal(t, 1, snap.DegradedByLayer[LayerPurpose])
	assert.Zero(t, snap.DegradedByLayer[LayerAnomaly])
}

func TestSuiteMetricsFreshSnapshot(t *testing.T) {
	snap := NewSuiteMetrics().Snapshot()

	assert.Zero(t, snap.TotalAnalyses)
	assert.Zero(t, snap.AverageConfidence)
	assert.Empty(t, snap.DegradedByLayer)
}

func TestSuiteMetricsSnapshotIsACopy(t *testing.T) {
	m := NewSuiteMetrics()
	m.Record(0.5, []string{LayerGoals})

	snap := m.Snapshot()
	snap.DegradedByLayer[LayerGoals] = 99

	assert.Equal(t, 1, m.Snapshot().DegradedByLayer[LayerGoals])
}

func TestSuiteMetricsConcurrentRecord(t *testing.T) {
	m := NewSuiteMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record(0.5, []string{LayerPrediction})
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	require.Equal(t, 50, snap.TotalAnalyses)
	assert.InDelta(t, 0.5, snap.AverageConfidence, 1e-9)
	assert.Equal(t, 50, snap.DegradedByLayer[LayerPrediction])
}
