package driver

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/limits"
	"github.com/opd-ai/crossfade/render"
	"github.com/opd-ai/crossfade/transition"
	"github.com/opd-ai/crossfade/video"
	"github.com/sirupsen/logrus"
)

// StartStream selects which stream a preview begins with.
type StartStream int

const (
	// StartFirst plays the first stream and hands over to the second.
	StartFirst StartStream = iota
	// StartSecond plays only the second stream.
	StartSecond
)

// PlaybackConfig configures a preview session.
type PlaybackConfig struct {
	// Overlap is the transition window in seconds
	Overlap float64
	// FrameRate is the display refresh rate driving Tick
	FrameRate float64
	// Start selects the initial stream
	Start StartStream
}

// PlaybackDriver is the real-time preview loop.
//
// Tick is called once per display refresh and never blocks: composites are
// submitted to the render context and presented on a later tick, once their
// fence has signaled. While a composite is in flight no new one is submitted.
type PlaybackDriver struct {
	proc    *render.Processor
	players [2]interfaces.Player
	display interfaces.Display
	cfg     PlaybackConfig

	sessionID    string
	timeProvider TimeProvider
	stats        *statsCollector

	mu            sync.Mutex
	started       bool
	stopped       bool
	err           error
	secondStarted bool
	firstEnded    bool
	frames        [2]*video.Frame
	remaining     [2]transition.Remaining
	fence         *render.Fence
	done          chan struct{}

	perf *PerformanceMonitor
}

// NewPlaybackDriver creates a preview session.
func NewPlaybackDriver(proc *render.Processor, first, second interfaces.Player, display interfaces.Display, cfg PlaybackConfig) (*PlaybackDriver, error) {
	if proc == nil || first == nil || second == nil || display == nil {
		return nil, errors.New("playback driver requires a processor, two players and a display")
	}
	if err := limits.ValidateOverlapDuration(cfg.Overlap, math.MaxFloat64); err != nil {
		return nil, err
	}
	if err := limits.ValidateFrameRate(cfg.FrameRate); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	perf := NewPerformanceMonitor()
	return &PlaybackDriver{
		proc:      proc,
		players:   [2]interfaces.Player{first, second},
		display:   display,
		cfg:       cfg,
		sessionID: id,
		stats:     newStatsCollector(id, "preview", time.Time{}, perf),
		done:      make(chan struct{}),
		perf:      perf,
	}, nil
}

// SetTimeProvider sets the host clock used by Run.
// If tp is nil, DefaultTimeProvider is used.
func (d *PlaybackDriver) SetTimeProvider(tp TimeProvider) {
	d.timeProvider = tp
}

// SessionID returns the unique ID of this session.
func (d *PlaybackDriver) SessionID() string {
	return d.sessionID
}

// IterationInterval returns the display refresh interval Tick should be called at.
func (d *PlaybackDriver) IterationInterval() time.Duration {
	return time.Duration(float64(time.Second) / d.cfg.FrameRate)
}

// Start begins playback of the initial stream at hostTime.
func (d *PlaybackDriver) Start(hostTime float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return ErrAlreadyRunning
	}
	d.started = true
	d.stats.update(func(s *Stats) { s.Started = getTimeProvider(d.timeProvider).Now() })

	slot := render.SlotFirst
	if d.cfg.Start == StartSecond {
		slot = render.SlotSecond
		d.secondStarted = true
	}
	d.players[slot].Play(hostTime)

	logrus.WithFields(logrus.Fields{
		"function":   "PlaybackDriver.Start",
		"session_id": d.sessionID,
		"stream":     slot.String(),
		"overlap":    d.cfg.Overlap,
		"host_time":  hostTime,
	}).Info("Preview started")

	return nil
}

// Tick runs one display refresh at hostTime. It returns true once the session
// has ended, together with the terminal error if it failed.
func (d *PlaybackDriver) Tick(hostTime float64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return true, d.err
	}
	if !d.started {
		return false, nil
	}
	tp := getTimeProvider(d.timeProvider)
	tickStart := tp.Now()
	defer func() { d.perf.RecordIteration(tp.Now().Sub(tickStart)) }()
	d.stats.update(func(s *Stats) { s.Ticks++ })

	if d.fence != nil && d.fence.Ready() {
		frame, err := d.fence.Result()
		d.fence = nil
		if err != nil {
			d.failLocked(hostTime, "render", "output", classify(ErrRender, err))
			return true, d.err
		}
		d.display.Present(frame)
		d.stats.update(func(s *Stats) { s.FramesPresented++ })
	}

	newFrame := d.pollLocked(render.SlotFirst, hostTime)
	if d.err != nil {
		return true, d.err
	}

	if !d.secondStarted && d.remaining[render.SlotFirst].Known &&
		d.remaining[render.SlotFirst].Seconds <= d.cfg.Overlap {
		d.secondStarted = true
		d.players[render.SlotSecond].Play(hostTime)
		logrus.WithFields(logrus.Fields{
			"function":   "PlaybackDriver.Tick",
			"session_id": d.sessionID,
			"first_left": d.remaining[render.SlotFirst].String(),
			"host_time":  hostTime,
		}).Info("Starting second stream")
	}

	if d.pollLocked(render.SlotSecond, hostTime) {
		newFrame = true
	}
	if d.err != nil {
		return true, d.err
	}

	first := d.players[render.SlotFirst]
	if first.Rate() != 0 && first.Exhausted(first.ItemTime(hostTime)) {
		first.Pause(hostTime)
		d.firstEnded = true
		d.frames[render.SlotFirst] = nil
		d.remaining[render.SlotFirst] = transition.Known(0)
		logrus.WithFields(logrus.Fields{
			"function":   "PlaybackDriver.Tick",
			"session_id": d.sessionID,
		}).Info("First stream exhausted")
	}

	second := d.players[render.SlotSecond]
	if second.Rate() != 0 && second.Exhausted(second.ItemTime(hostTime)) {
		d.stopLocked(hostTime)
		return true, nil
	}

	state := transition.State{
		OverlapDuration: d.cfg.Overlap,
		FirstRemaining:  d.remaining[render.SlotFirst],
		SecondRemaining: d.remaining[render.SlotSecond],
	}
	hasFirst, hasSecond := d.frames[render.SlotFirst] != nil, d.frames[render.SlotSecond] != nil

	switch {
	case !hasFirst && !hasSecond:
	case d.fence != nil:
		d.stats.update(func(s *Stats) { s.BusyTicks++ })
	case !newFrame && !state.InOverlap():
		d.stats.update(func(s *Stats) { s.RepeatedTicks++ })
	default:
		d.fence = d.proc.Encode(d.frames[render.SlotFirst], d.frames[render.SlotSecond], state)
		d.stats.recordPlan(d.proc.Plan(hasFirst, hasSecond, state))
	}

	return false, nil
}

// pollLocked refreshes the frame and remaining time of one stream and reports
// whether a new frame arrived. A stream that is not playing contributes no
// frame and an unknown remaining time, except a first stream that played to
// its end, which stays at zero remaining so the maximum blur holds.
func (d *PlaybackDriver) pollLocked(slot render.Slot, hostTime float64) bool {
	p := d.players[slot]
	if err := p.Err(); err != nil {
		d.failLocked(hostTime, "decode", slot.String(), classify(ErrDecode, err))
		return false
	}
	if p.Rate() == 0 {
		d.frames[slot] = nil
		d.remaining[slot] = transition.Unknown
		if slot == render.SlotFirst && d.firstEnded {
			d.remaining[slot] = transition.Known(0)
		}
		return false
	}

	t := p.ItemTime(hostTime)
	d.remaining[slot] = transition.Known(p.Duration() - t)
	if !p.HasNewFrame(t) {
		return false
	}
	frame := p.CopyFrame(t)
	if err := p.Err(); err != nil {
		d.failLocked(hostTime, "decode", slot.String(), classify(ErrDecode, err))
		return false
	}
	if frame == nil {
		return false
	}
	d.frames[slot] = frame
	d.stats.update(func(s *Stats) {
		if slot == render.SlotFirst {
			s.FirstFrames++
		} else {
			s.SecondFrames++
		}
	})
	return true
}

func (d *PlaybackDriver) failLocked(hostTime float64, op, stream string, err error) {
	frames := d.stats.snapshot().FramesComposited
	d.err = &SessionError{Session: d.sessionID, Op: op, Stream: stream, Frame: frames, Err: err}
	logrus.WithFields(logrus.Fields{
		"function":   "PlaybackDriver.Tick",
		"session_id": d.sessionID,
		"error":      d.err.Error(),
	}).Error("Preview failed")
	d.stopLocked(hostTime)
}

// stopLocked pauses both players and releases the held frames.
func (d *PlaybackDriver) stopLocked(hostTime float64) {
	if d.stopped {
		return
	}
	for _, p := range d.players {
		p.Pause(hostTime)
	}
	d.frames = [2]*video.Frame{}
	d.fence = nil
	d.stopped = true
	close(d.done)

	d.stats.finish(getTimeProvider(d.timeProvider).Now())
	d.stats.log("PlaybackDriver.Tick")
}

// Stop pauses the session immediately. Further ticks are no-ops.
func (d *PlaybackDriver) Stop(hostTime float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked(hostTime)
}

// Done returns a channel closed when the session ends.
func (d *PlaybackDriver) Done() <-chan struct{} {
	return d.done
}

// Err returns the terminal error of a failed session.
func (d *PlaybackDriver) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Performance returns the tick timing monitor of this session.
func (d *PlaybackDriver) Performance() *PerformanceMonitor {
	return d.perf
}

// Stats returns the statistics collected so far.
func (d *PlaybackDriver) Stats() Stats {
	return d.stats.snapshot()
}

// Run starts the session and ticks it at IterationInterval until it ends or
// ctx is done. Host time is measured from the call to Run.
func (d *PlaybackDriver) Run(ctx context.Context) (Stats, error) {
	tp := getTimeProvider(d.timeProvider)
	origin := tp.Now()
	host := func() float64 { return tp.Now().Sub(origin).Seconds() }

	if err := d.Start(host()); err != nil {
		return d.Stats(), err
	}

	ticker := tp.NewTicker(d.IterationInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.Stop(host())
			return d.Stats(), nil
		case <-ticker.C:
			if done, err := d.Tick(host()); done {
				return d.Stats(), err
			}
		}
	}
}
