package driver

import (
	"sync"
	"time"

	"github.com/opd-ai/crossfade/transition"
	"github.com/sirupsen/logrus"
)

// Stats summarizes one preview or export session.
type Stats struct {
	SessionID string
	Mode      string

	// Ticks counts preview refresh callbacks; RepeatedTicks those with no new
	// frame and BusyTicks those skipped because a composite was in flight.
	Ticks         int
	RepeatedTicks int
	BusyTicks     int

	FirstFrames  int
	SecondFrames int

	FramesComposited int
	FramesPresented  int
	FramesSubmitted  int

	MaxBlendWeight float64
	Phases         map[string]int

	// BlurIndices counts composites per blur kernel index; LastPlan is the
	// most recent compositor decision.
	BlurIndices map[int]int
	LastPlan    transition.Plan

	// AvgIterationTime and PeakIterationTime measure the work per preview
	// tick or per export frame.
	AvgIterationTime  time.Duration
	PeakIterationTime time.Duration

	Started time.Time
	Elapsed time.Duration
}

// statsCollector accumulates Stats for a running session.
type statsCollector struct {
	mu    sync.Mutex
	stats Stats
	perf  *PerformanceMonitor
}

func newStatsCollector(sessionID, mode string, started time.Time, perf *PerformanceMonitor) *statsCollector {
	return &statsCollector{perf: perf, stats: Stats{
		SessionID:   sessionID,
		Mode:        mode,
		Phases:      make(map[string]int),
		BlurIndices: make(map[int]int),
		Started:     started,
	}}
}

func (c *statsCollector) update(fn func(s *Stats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.stats)
}

func (c *statsCollector) recordPlan(p transition.Plan) {
	c.update(func(s *Stats) {
		s.FramesComposited++
		s.Phases[p.Phase.String()]++
		s.BlurIndices[p.BlurIndex]++
		s.LastPlan = p
		if p.Weight > s.MaxBlendWeight {
			s.MaxBlendWeight = p.Weight
		}
	})
}

func (c *statsCollector) finish(now time.Time) {
	c.update(func(s *Stats) {
		s.Elapsed = now.Sub(s.Started)
	})
}

// snapshot returns a copy safe to hand to callers.
func (c *statsCollector) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.stats
	out.Phases = make(map[string]int, len(c.stats.Phases))
	for k, v := range c.stats.Phases {
		out.Phases[k] = v
	}
	out.BlurIndices = make(map[int]int, len(c.stats.BlurIndices))
	for k, v := range c.stats.BlurIndices {
		out.BlurIndices[k] = v
	}
	if c.perf != nil {
		m := c.perf.GetPerformanceMetrics()
		out.AvgIterationTime = m.AvgIterationTime
		out.PeakIterationTime = m.PeakIterationTime
	}
	return out
}

func (c *statsCollector) log(function string) {
	s := c.snapshot()
	logrus.WithFields(logrus.Fields{
		"function":          function,
		"session_id":        s.SessionID,
		"mode":              s.Mode,
		"ticks":             s.Ticks,
		"repeated_ticks":    s.RepeatedTicks,
		"busy_ticks":        s.BusyTicks,
		"first_frames":      s.FirstFrames,
		"second_frames":     s.SecondFrames,
		"frames_composited": s.FramesComposited,
		"frames_presented":  s.FramesPresented,
		"frames_submitted":  s.FramesSubmitted,
		"max_blend_weight":  s.MaxBlendWeight,
		"max_blur_index":    s.MaxBlurIndex(),
		"avg_iteration":     s.AvgIterationTime,
		"peak_iteration":    s.PeakIterationTime,
		"elapsed":           s.Elapsed,
	}).Info("Session statistics")
}

// MaxBlurIndex returns the largest blur kernel index composited.
func (s Stats) MaxBlurIndex() int {
	maxIndex := 0
	for i := range s.BlurIndices {
		if i > maxIndex {
			maxIndex = i
		}
	}
	return maxIndex
}
