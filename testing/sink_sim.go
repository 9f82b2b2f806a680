package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/video"
	"github.com/sirupsen/logrus"
)

// Submission records one frame accepted by a SimulatedSink.
type Submission struct {
	PTS   float64
	Size  video.Size
	Pixel [4]byte // top-left pixel
	Frame *video.Frame
}

// SinkConfig configures a SimulatedSink.
type SinkConfig struct {
	// Name tags events in the log
	Name string
	// BusyPolls makes ReadyForMore report false this many times after each submission
	BusyPolls int
	// FailAt is the 1-based submission that fails to encode; 0 disables it
	FailAt int
	// FailFinish makes Finish return an error
	FailFinish bool
	// Log receives submit, wait and finish events; may be nil
	Log *EventLog
}

// SimulatedSink implements interfaces.FrameSink and records everything it receives.
type SimulatedSink struct {
	cfg SinkConfig

	mu          sync.Mutex
	submissions []Submission
	last        *video.Frame
	busy        int
	waits       int
	finishes    int
	finished    bool
}

// NewSimulatedSink creates a new simulated encoder.
func NewSimulatedSink(cfg SinkConfig) *SimulatedSink {
	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	logrus.WithFields(logrus.Fields{
		"function":   "NewSimulatedSink",
		"name":       cfg.Name,
		"busy_polls": cfg.BusyPolls,
	}).Info("Creating simulated frame sink for testing")

	return &SimulatedSink{cfg: cfg, submissions: make([]Submission, 0)}
}

// ReadyForMore implements interfaces.FrameSink.
func (s *SimulatedSink) ReadyForMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return false
	}
	if s.busy > 0 {
		s.busy--
		return false
	}
	return true
}

// WaitReady implements interfaces.FrameSink. It drains the simulated busy
// period at once.
func (s *SimulatedSink) WaitReady(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits++
	s.busy = 0
	s.cfg.Log.Record(s.cfg.Name, "wait", 0)
	return nil
}

// Submit implements interfaces.FrameSink.
func (s *SimulatedSink) Submit(frame *video.Frame, pts float64) error {
	if err := frame.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return interfaces.ErrSinkFinished
	}
	if n := len(s.submissions); n > 0 && pts <= s.submissions[n-1].PTS {
		return fmt.Errorf("%w: %.6f after %.6f", interfaces.ErrOutOfOrder, pts, s.submissions[n-1].PTS)
	}
	if s.cfg.FailAt > 0 && len(s.submissions) == s.cfg.FailAt-1 {
		return fmt.Errorf("%w: %s submission %d", ErrSimulatedFailure, s.cfg.Name, s.cfg.FailAt)
	}

	s.submissions = append(s.submissions, Submission{PTS: pts, Size: frame.Size(), Pixel: frame.PixelAt(0, 0), Frame: frame})
	s.last = frame
	s.busy = s.cfg.BusyPolls
	s.cfg.Log.Record(s.cfg.Name, "submit", pts)
	return nil
}

// Finish implements interfaces.FrameSink.
func (s *SimulatedSink) Finish() error {
	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.finishes++
	s.cfg.Log.Record(s.cfg.Name, "finish", 0)
	if s.cfg.FailFinish {
		return fmt.Errorf("%w: %s finish", ErrSimulatedFailure, s.cfg.Name)
	}
	s.finished = true

	logrus.WithFields(logrus.Fields{
		"function":    "SimulatedSink.Finish",
		"name":        s.cfg.Name,
		"submissions": len(s.submissions),
	}).Info("Simulated sink finished")
	return nil
}

// Submissions returns a copy of every accepted submission in order.
func (s *SimulatedSink) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Submission, len(s.submissions))
	copy(out, s.submissions)
	return out
}

// LastFrame returns the most recently accepted frame.
func (s *SimulatedSink) LastFrame() *video.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// FinishCount returns how many times Finish was called.
func (s *SimulatedSink) FinishCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishes
}

// WaitCount returns how many times WaitReady was called.
func (s *SimulatedSink) WaitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waits
}

var _ interfaces.FrameSink = (*SimulatedSink)(nil)
