package driver

import (
	"errors"
	"io"
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrProfilingActive indicates a CPU profile is already being written.
var ErrProfilingActive = errors.New("cpu profiling already active")

// PerformanceMonitor measures the work done per preview tick or per export
// frame and optionally captures a CPU profile of the session.
//
// Counters are lock-free; the moving average and peak are guarded by a
// read-write lock so metrics can be read while a session runs.
type PerformanceMonitor struct {
	iterationCount int64
	profiling      int32

	avgIterationTime  time.Duration
	peakIterationTime time.Duration
	metricsLock       sync.RWMutex
}

// NewPerformanceMonitor creates a monitor with empty metrics.
func NewPerformanceMonitor() *PerformanceMonitor {
	logrus.WithFields(logrus.Fields{
		"function": "NewPerformanceMonitor",
	}).Debug("Creating performance monitor")

	return &PerformanceMonitor{}
}

// RecordIteration adds the duration of one tick or output frame.
func (pm *PerformanceMonitor) RecordIteration(iterationTime time.Duration) {
	atomic.AddInt64(&pm.iterationCount, 1)

	pm.metricsLock.Lock()
	defer pm.metricsLock.Unlock()

	// Exponential moving average with alpha = 0.1.
	if pm.avgIterationTime == 0 {
		pm.avgIterationTime = iterationTime
	} else {
		pm.avgIterationTime = time.Duration(
			float64(pm.avgIterationTime)*0.9 + float64(iterationTime)*0.1,
		)
	}

	if iterationTime > pm.peakIterationTime {
		pm.peakIterationTime = iterationTime
	}
}

// StartCPUProfiling writes a CPU profile to w until StopCPUProfiling.
// Only one profile can be active per process.
func (pm *PerformanceMonitor) StartCPUProfiling(w io.Writer) error {
	if !atomic.CompareAndSwapInt32(&pm.profiling, 0, 1) {
		return ErrProfilingActive
	}

	if err := pprof.StartCPUProfile(w); err != nil {
		atomic.StoreInt32(&pm.profiling, 0)
		logrus.WithFields(logrus.Fields{
			"function": "StartCPUProfiling",
			"error":    err.Error(),
		}).Error("Failed to start CPU profiling")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "StartCPUProfiling",
	}).Info("CPU profiling started")
	return nil
}

// StopCPUProfiling flushes and stops the active profile.
func (pm *PerformanceMonitor) StopCPUProfiling() {
	if !atomic.CompareAndSwapInt32(&pm.profiling, 1, 0) {
		return
	}
	pprof.StopCPUProfile()

	logrus.WithFields(logrus.Fields{
		"function": "StopCPUProfiling",
	}).Info("CPU profiling stopped")
}

// IsProfilingEnabled returns true if a CPU profile is being written.
func (pm *PerformanceMonitor) IsProfilingEnabled() bool {
	return atomic.LoadInt32(&pm.profiling) == 1
}

// GetPerformanceMetrics returns current performance statistics.
func (pm *PerformanceMonitor) GetPerformanceMetrics() PerformanceMetrics {
	pm.metricsLock.RLock()
	defer pm.metricsLock.RUnlock()

	return PerformanceMetrics{
		TotalIterations:   atomic.LoadInt64(&pm.iterationCount),
		AvgIterationTime:  pm.avgIterationTime,
		PeakIterationTime: pm.peakIterationTime,
		ProfilingActive:   pm.IsProfilingEnabled(),
	}
}

// ResetPerformanceMetrics clears the counters and timings.
func (pm *PerformanceMonitor) ResetPerformanceMetrics() {
	atomic.StoreInt64(&pm.iterationCount, 0)

	pm.metricsLock.Lock()
	pm.avgIterationTime = 0
	pm.peakIterationTime = 0
	pm.metricsLock.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "ResetPerformanceMetrics",
	}).Debug("Performance metrics reset")
}

// PerformanceMetrics contains per-iteration timing of a session.
type PerformanceMetrics struct {
	TotalIterations   int64         // Ticks or output frames measured
	AvgIterationTime  time.Duration // Exponential moving average of iteration time
	PeakIterationTime time.Duration // Maximum observed iteration time
	ProfilingActive   bool          // Whether CPU profiling is active
}
