package driver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/limits"
	"github.com/opd-ai/crossfade/render"
	"github.com/opd-ai/crossfade/transition"
	"github.com/opd-ai/crossfade/video"
	"github.com/sirupsen/logrus"
)

// ExportConfig configures an export session.
type ExportConfig struct {
	// Overlap is the transition window in seconds
	Overlap float64
	// FrameRate sets the output timestamps: frame n is stamped n/FrameRate
	FrameRate float64
}

// timedFrame is a decoded frame placed on the output timeline.
type timedFrame struct {
	frame *video.Frame
	at    float64
}

// ExportDriver composites two sequential sources into a sink as fast as the
// sink accepts frames.
//
// The first source is read from the start. Once it yields a frame within
// Overlap of its duration (or ends), a one-way latch opens the second source,
// whose timeline is anchored at that frame's timestamp. From then on the two
// streams are merged in timeline order: every decoded frame from either source
// yields exactly one output frame, composited with the latest frame of the
// other stream.
type ExportDriver struct {
	proc   *render.Processor
	first  interfaces.FrameSource
	second interfaces.FrameSource
	sink   interfaces.FrameSink
	cfg    ExportConfig

	sessionID    string
	timeProvider TimeProvider
	stats        *statsCollector
	perf         *PerformanceMonitor
	running      bool
}

// NewExportDriver creates an export session.
func NewExportDriver(proc *render.Processor, first, second interfaces.FrameSource, sink interfaces.FrameSink, cfg ExportConfig) (*ExportDriver, error) {
	if proc == nil || first == nil || second == nil || sink == nil {
		return nil, errors.New("export driver requires a processor, two sources and a sink")
	}
	// The configured maximum is enforced by config; drivers only need a
	// finite, non-negative window.
	if err := limits.ValidateOverlapDuration(cfg.Overlap, math.MaxFloat64); err != nil {
		return nil, err
	}
	if err := limits.ValidateFrameRate(cfg.FrameRate); err != nil {
		return nil, err
	}

	return &ExportDriver{
		proc:      proc,
		first:     first,
		second:    second,
		sink:      sink,
		cfg:       cfg,
		sessionID: uuid.NewString(),
		perf:      NewPerformanceMonitor(),
	}, nil
}

// SetTimeProvider sets the clock used for session statistics.
// If tp is nil, DefaultTimeProvider is used.
func (d *ExportDriver) SetTimeProvider(tp TimeProvider) {
	d.timeProvider = tp
}

// SessionID returns the unique ID of this session.
func (d *ExportDriver) SessionID() string {
	return d.sessionID
}

// Performance returns the per-frame timing monitor of this session.
func (d *ExportDriver) Performance() *PerformanceMonitor {
	return d.perf
}

// Stats returns the statistics collected so far.
func (d *ExportDriver) Stats() Stats {
	if d.stats == nil {
		return Stats{SessionID: d.sessionID, Mode: "export"}
	}
	return d.stats.snapshot()
}

// exportRun is the mutable state of one Run.
type exportRun struct {
	d *ExportDriver

	firstEOS, secondEOS bool
	latched             bool
	secondOffset        float64
	secondBase          float64
	haveSecondBase      bool
	firstIndex          int
	secondIndex         int

	pendingFirst, pendingSecond *timedFrame
	lastFirst, lastSecond       *timedFrame

	output int
}

// Run executes the session to completion. It blocks on the sink's readiness
// and on every composite, checks ctx once per output frame and calls Finish
// exactly once, after both sources have ended. Any failure aborts the session
// with a *SessionError and Finish is not called.
func (d *ExportDriver) Run(ctx context.Context) (Stats, error) {
	if d.running {
		return d.Stats(), ErrAlreadyRunning
	}
	d.running = true
	tp := getTimeProvider(d.timeProvider)
	d.stats = newStatsCollector(d.sessionID, "export", tp.Now(), d.perf)

	logrus.WithFields(logrus.Fields{
		"function":       "ExportDriver.Run",
		"session_id":     d.sessionID,
		"overlap":        d.cfg.Overlap,
		"frame_rate":     d.cfg.FrameRate,
		"first_duration": d.first.Duration(),
		"canvas":         d.proc.Canvas().String(),
	}).Info("Starting export session")

	r := &exportRun{d: d}
	err := r.loop(ctx)

	d.stats.finish(tp.Now())
	d.stats.log("ExportDriver.Run")

	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "ExportDriver.Run",
			"session_id": d.sessionID,
			"error":      err.Error(),
		}).Error("Export session failed")
		return d.Stats(), err
	}

	logrus.WithFields(logrus.Fields{
		"function":   "ExportDriver.Run",
		"session_id": d.sessionID,
		"frames":     r.output,
	}).Info("Export session finished")

	return d.Stats(), nil
}

func (r *exportRun) fail(op, stream string, err error) error {
	return &SessionError{Session: r.d.sessionID, Op: op, Stream: stream, Frame: r.output, Err: err}
}

func (r *exportRun) cancelled(ctx context.Context) error {
	return r.fail("cancel", "output", fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx)))
}

func (r *exportRun) loop(ctx context.Context) error {
	d := r.d
	tp := getTimeProvider(d.timeProvider)
	for {
		if ctx.Err() != nil {
			return r.cancelled(ctx)
		}
		frameStart := tp.Now()

		if err := r.refill(ctx); err != nil {
			return err
		}
		if r.pendingFirst == nil && r.pendingSecond == nil {
			break
		}

		first, second, state := r.advance()

		out, err := d.proc.Render(ctx, first, second, state)
		if err != nil {
			if ctx.Err() != nil {
				return r.cancelled(ctx)
			}
			return r.fail("render", "output", classify(ErrRender, err))
		}
		d.stats.recordPlan(d.proc.Plan(first != nil, second != nil, state))

		if err := d.sink.WaitReady(ctx); err != nil {
			if ctx.Err() != nil {
				return r.cancelled(ctx)
			}
			return r.fail("encode", "output", classify(ErrEncode, err))
		}
		pts := float64(r.output) / d.cfg.FrameRate
		if err := d.sink.Submit(out, pts); err != nil {
			return r.fail("encode", "output", classify(ErrEncode, err))
		}
		d.stats.update(func(s *Stats) { s.FramesSubmitted++ })

		logrus.WithFields(logrus.Fields{
			"function":     "ExportDriver.Run",
			"session_id":   d.sessionID,
			"frame_index":  r.output,
			"pts":          pts,
			"blend_weight": state.BlendWeight(),
			"first_left":   state.FirstRemaining.String(),
		}).Debug("Submitted frame")

		r.output++
		d.perf.RecordIteration(tp.Now().Sub(frameStart))
	}

	if err := d.sink.WaitReady(ctx); err != nil {
		if ctx.Err() != nil {
			return r.cancelled(ctx)
		}
		return r.fail("finish", "output", classify(ErrEncode, err))
	}
	if err := d.sink.Finish(); err != nil {
		return r.fail("finish", "output", classify(ErrEncode, err))
	}
	return nil
}

// refill pulls at most one frame into each empty lookahead slot.
func (r *exportRun) refill(ctx context.Context) error {
	d := r.d
	interval := 1 / d.cfg.FrameRate

	if r.pendingFirst == nil && !r.firstEOS {
		f, err := d.first.NextFrame(ctx)
		switch {
		case errors.Is(err, interfaces.ErrEndOfStream):
			r.firstEOS = true
			if !r.latched {
				r.latch(d.first.Duration(), "end of first stream")
			}
		case err != nil:
			if ctx.Err() != nil {
				return r.cancelled(ctx)
			}
			return r.fail("decode", "first", classify(ErrDecode, err))
		default:
			at := float64(r.firstIndex) * interval
			if f.HasTimestamp {
				at = f.Timestamp
			}
			r.firstIndex++
			r.pendingFirst = &timedFrame{frame: f, at: at}
			d.stats.update(func(s *Stats) { s.FirstFrames++ })
			if !r.latched && d.first.Duration()-at <= d.cfg.Overlap {
				r.latch(at, "first stream entered overlap")
			}
		}
	}

	if r.latched && r.pendingSecond == nil && !r.secondEOS {
		f, err := d.second.NextFrame(ctx)
		switch {
		case errors.Is(err, interfaces.ErrEndOfStream):
			r.secondEOS = true
		case err != nil:
			if ctx.Err() != nil {
				return r.cancelled(ctx)
			}
			return r.fail("decode", "second", classify(ErrDecode, err))
		default:
			ts := float64(r.secondIndex) * interval
			if f.HasTimestamp {
				ts = f.Timestamp
			}
			if !r.haveSecondBase {
				r.secondBase = ts
				r.haveSecondBase = true
			}
			r.secondIndex++
			r.pendingSecond = &timedFrame{frame: f, at: r.secondOffset + ts - r.secondBase}
			d.stats.update(func(s *Stats) { s.SecondFrames++ })
		}
	}
	return nil
}

func (r *exportRun) latch(at float64, reason string) {
	r.latched = true
	r.secondOffset = at
	logrus.WithFields(logrus.Fields{
		"function":   "ExportDriver.Run",
		"session_id": r.d.sessionID,
		"at":         at,
		"reason":     reason,
	}).Info("Opening second stream")
}

// advance emits the earlier lookahead frame (first wins ties) and returns the
// frame pair and state to composite for it.
func (r *exportRun) advance() (first, second *video.Frame, state transition.State) {
	var now float64
	if r.pendingSecond == nil || (r.pendingFirst != nil && r.pendingFirst.at <= r.pendingSecond.at) {
		r.lastFirst, r.pendingFirst = r.pendingFirst, nil
		now = r.lastFirst.at
	} else {
		r.lastSecond, r.pendingSecond = r.pendingSecond, nil
		now = r.lastSecond.at
	}

	duration := r.d.first.Duration()
	state = transition.State{
		OverlapDuration: r.d.cfg.Overlap,
		FirstRemaining:  transition.Known(max(duration-now, 0)),
		SecondRemaining: transition.Unknown,
	}
	if r.haveSecondBase {
		state.SecondRemaining = transition.Known(r.d.second.Duration() - (now - r.secondOffset))
	}

	firstGone := r.firstEOS && r.pendingFirst == nil && now >= duration
	if r.lastFirst != nil && !firstGone {
		first = r.lastFirst.frame
	}
	if r.lastSecond != nil {
		second = r.lastSecond.frame
	}
	return first, second, state
}
