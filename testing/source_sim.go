package testing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/video"
	"github.com/sirupsen/logrus"
)

// ErrSimulatedFailure is the error injected by simulations at their FailAt index.
var ErrSimulatedFailure = errors.New("simulated failure")

// Pattern selects the pixel layout of simulated frames.
type Pattern int

const (
	// PatternSolid fills every pixel with Color.
	PatternSolid Pattern = iota
	// PatternCheckerboard alternates Color and its inverse in square cells.
	PatternCheckerboard
	// PatternEdge paints the left half Color and the right half its inverse.
	PatternEdge
)

// DefaultCellSize is the checkerboard cell edge used when CellSize is zero.
const DefaultCellSize = 4

func (p Pattern) String() string {
	switch p {
	case PatternSolid:
		return "solid"
	case PatternCheckerboard:
		return "checkerboard"
	case PatternEdge:
		return "edge"
	default:
		return fmt.Sprintf("Pattern(%d)", int(p))
	}
}

// StreamConfig describes a synthetic stream of generated frames.
type StreamConfig struct {
	// Name tags events in the log
	Name string
	// Frames is the number of frames in the stream
	Frames int
	// Interval is the spacing between frame timestamps in seconds
	Interval float64
	// Size is the frame size
	Size video.Size
	// Color is the BGRA value of every pixel, or of the primary cells of a pattern
	Color [4]byte
	// Pattern is the pixel layout; the zero value is a solid frame
	Pattern Pattern
	// CellSize is the checkerboard cell edge in pixels
	CellSize int
	// FailAt is the 1-based position of the frame that fails to decode; 0 disables it
	FailAt int
	// Log receives pull, eos and copy events; may be nil
	Log *EventLog
}

// Duration is the stream length implied by the configuration.
func (c StreamConfig) Duration() float64 {
	return float64(c.Frames) * c.Interval
}

func (c StreamConfig) fails(i int) bool {
	return c.FailAt > 0 && i == c.FailAt-1
}

func (c StreamConfig) frame(i int) *video.Frame {
	f := video.NewSolidFrame(c.Size, video.PixelFormatBGRA, c.Color)
	if c.Pattern != PatternSolid {
		c.paint(f)
	}
	return f.WithTimestamp(float64(i) * c.Interval)
}

// paint overwrites the secondary cells of the pattern with the inverse color.
func (c StreamConfig) paint(f *video.Frame) {
	inv := [4]byte{255 - c.Color[0], 255 - c.Color[1], 255 - c.Color[2], c.Color[3]}
	cell := c.CellSize
	if cell <= 0 {
		cell = DefaultCellSize
	}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			var secondary bool
			switch c.Pattern {
			case PatternCheckerboard:
				secondary = (x/cell+y/cell)%2 == 1
			case PatternEdge:
				secondary = x >= f.Width/2
			}
			if secondary {
				copy(f.Pix[y*f.Stride+x*video.BytesPerPixel:], inv[:])
			}
		}
	}
}

// SimulatedSource implements interfaces.FrameSource over a synthetic stream.
type SimulatedSource struct {
	cfg    StreamConfig
	mu     sync.Mutex
	next   int
	pulls  int
	closed bool
}

// NewSimulatedSource creates a new simulated decoder.
func NewSimulatedSource(cfg StreamConfig) *SimulatedSource {
	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	logrus.WithFields(logrus.Fields{
		"function": "NewSimulatedSource",
		"name":     cfg.Name,
		"frames":   cfg.Frames,
		"interval": cfg.Interval,
	}).Info("Creating simulated frame source for testing")

	return &SimulatedSource{cfg: cfg}
}

// NextFrame implements interfaces.FrameSource.
func (s *SimulatedSource) NextFrame(ctx context.Context) (*video.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("source %s closed", s.cfg.Name)
	}
	s.pulls++
	if s.next >= s.cfg.Frames {
		s.cfg.Log.Record(s.cfg.Name, "eos", s.cfg.Duration())
		return nil, interfaces.ErrEndOfStream
	}
	if s.cfg.fails(s.next) {
		return nil, fmt.Errorf("%w: %s frame %d", ErrSimulatedFailure, s.cfg.Name, s.next)
	}

	f := s.cfg.frame(s.next)
	s.next++
	s.cfg.Log.Record(s.cfg.Name, "pull", f.Timestamp)
	return f, nil
}

// Duration implements interfaces.FrameSource.
func (s *SimulatedSource) Duration() float64 {
	return s.cfg.Duration()
}

// Close implements interfaces.FrameSource.
func (s *SimulatedSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Pulls returns the number of NextFrame calls, including the end-of-stream one.
func (s *SimulatedSource) Pulls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulls
}

// Closed reports whether Close was called.
func (s *SimulatedSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var _ interfaces.FrameSource = (*SimulatedSource)(nil)
