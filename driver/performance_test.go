package driver

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformanceMonitor_RecordIteration(t *testing.T) {
	pm := NewPerformanceMonitor()

	pm.RecordIteration(10 * time.Millisecond)
	m := pm.GetPerformanceMetrics()
	assert.Equal(t, int64(1), m.TotalIterations)
	assert.Equal(t, 10*time.Millisecond, m.AvgIterationTime)
	assert.Equal(t, 10*time.Millisecond, m.PeakIterationTime)

	pm.RecordIteration(20 * time.Millisecond)
	m = pm.GetPerformanceMetrics()
	assert.Equal(t, int64(2), m.TotalIterations)
	assert.Equal(t, 11*time.Millisecond, m.AvgIterationTime)
	assert.Equal(t, 20*time.Millisecond, m.PeakIterationTime)

	pm.RecordIteration(time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, pm.GetPerformanceMetrics().PeakIterationTime)

	pm.ResetPerformanceMetrics()
	assert.Equal(t, PerformanceMetrics{}, pm.GetPerformanceMetrics())
}

func TestPerformanceMonitor_CPUProfiling(t *testing.T) {
	pm := NewPerformanceMonitor()
	var buf bytes.Buffer

	require.NoError(t, pm.StartCPUProfiling(&buf))
	assert.True(t, pm.IsProfilingEnabled())
	assert.True(t, pm.GetPerformanceMetrics().ProfilingActive)
	assert.ErrorIs(t, pm.StartCPUProfiling(&buf), ErrProfilingActive)

	pm.StopCPUProfiling()
	assert.False(t, pm.IsProfilingEnabled())
	assert.NotZero(t, buf.Len(), "stopping flushes the profile")

	pm.StopCPUProfiling()
}
