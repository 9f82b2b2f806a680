package transition

import (
	"fmt"
	"math"
)

// Remaining is a stream's time left in seconds, which may be unknown.
type Remaining struct {
	Seconds float64
	Known   bool
}

// Known returns a known remaining time.
func Known(seconds float64) Remaining {
	return Remaining{Seconds: seconds, Known: true}
}

// Unknown is the remaining time of a stream with no current frame.
var Unknown = Remaining{}

func (r Remaining) String() string {
	if !r.Known {
		return "unknown"
	}
	return fmt.Sprintf("%.3fs", r.Seconds)
}

// State is the time signal the compositor derives its phase and weights from.
type State struct {
	// OverlapDuration is the transition window in seconds.
	OverlapDuration float64
	// FirstRemaining is the first stream's duration minus its current time.
	FirstRemaining Remaining
	// SecondRemaining is tracked for logging; it does not affect composition.
	SecondRemaining Remaining
}

// InOverlap reports whether the first stream has entered the transition window.
// An unknown remaining time is never in the window.
func (s State) InOverlap() bool {
	return s.FirstRemaining.Known && s.FirstRemaining.Seconds <= s.overlap()
}

// BlendWeight returns clamp(1 - firstRemaining/overlap, 0, 1).
//
// With an unknown remaining time the weight is 0. A zero overlap is a hard
// cut: the weight jumps to 1 once the first stream has no time left.
func (s State) BlendWeight() float64 {
	if !s.FirstRemaining.Known || math.IsNaN(s.FirstRemaining.Seconds) {
		return 0
	}
	overlap := s.overlap()
	if overlap == 0 {
		if s.FirstRemaining.Seconds <= 0 {
			return 1
		}
		return 0
	}
	w := 1 - s.FirstRemaining.Seconds/overlap
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

func (s State) overlap() float64 {
	if s.OverlapDuration < 0 || math.IsNaN(s.OverlapDuration) {
		return 0
	}
	return s.OverlapDuration
}

// Phase is the composition mode selected for one output frame.
type Phase int

const (
	// PhaseBlank outputs an opaque black canvas; neither frame is present.
	PhaseBlank Phase = iota
	// PhaseFirstOnly passes the first frame through.
	PhaseFirstOnly
	// PhaseSecondOnly passes the second frame through.
	PhaseSecondOnly
	// PhasePreOverlap passes the first frame through while the second waits.
	PhasePreOverlap
	// PhaseOverlap cross-fades and blurs.
	PhaseOverlap
)

func (p Phase) String() string {
	switch p {
	case PhaseBlank:
		return "blank"
	case PhaseFirstOnly:
		return "first-only"
	case PhaseSecondOnly:
		return "second-only"
	case PhasePreOverlap:
		return "pre-overlap"
	case PhaseOverlap:
		return "overlap"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// PhaseFor selects the phase from frame presence and the first stream's
// remaining time. A missing first frame inside the window keeps the overlap
// phase and contributes opaque black to the blend.
func PhaseFor(hasFirst, hasSecond bool, s State) Phase {
	switch {
	case !hasFirst && !hasSecond:
		return PhaseBlank
	case !hasSecond:
		return PhaseFirstOnly
	case s.InOverlap():
		return PhaseOverlap
	case !hasFirst:
		return PhaseSecondOnly
	default:
		return PhasePreOverlap
	}
}
