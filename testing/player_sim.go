package testing

import (
	"fmt"
	"math"
	"sync"

	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/video"
	"github.com/sirupsen/logrus"
)

// SimulatedPlayer implements interfaces.Player over a synthetic stream with a
// purely arithmetic clock: frame i is due from item time i*Interval.
type SimulatedPlayer struct {
	cfg StreamConfig

	mu        sync.Mutex
	playing   bool
	startHost float64
	pausedAt  float64
	lastIndex int
	copies    int
	err       error
}

// NewSimulatedPlayer creates a new simulated player, initially paused at item time 0.
func NewSimulatedPlayer(cfg StreamConfig) *SimulatedPlayer {
	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	logrus.WithFields(logrus.Fields{
		"function": "NewSimulatedPlayer",
		"name":     cfg.Name,
		"frames":   cfg.Frames,
		"interval": cfg.Interval,
	}).Info("Creating simulated player for testing")

	return &SimulatedPlayer{cfg: cfg, lastIndex: -1}
}

// Play implements interfaces.Player.
func (p *SimulatedPlayer) Play(hostTime float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return
	}
	p.startHost = hostTime - p.pausedAt
	p.playing = true
	p.cfg.Log.Record(p.cfg.Name, "play", hostTime)
}

// Pause implements interfaces.Player.
func (p *SimulatedPlayer) Pause(hostTime float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.pausedAt = hostTime - p.startHost
	p.playing = false
	p.cfg.Log.Record(p.cfg.Name, "pause", hostTime)
}

// Rate implements interfaces.Player.
func (p *SimulatedPlayer) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return 1
	}
	return 0
}

// ItemTime implements interfaces.Player.
func (p *SimulatedPlayer) ItemTime(hostTime float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return hostTime - p.startHost
	}
	return p.pausedAt
}

func (p *SimulatedPlayer) indexAt(itemTime float64) int {
	if p.cfg.Interval <= 0 {
		return 0
	}
	i := int(math.Floor(itemTime/p.cfg.Interval + 1e-9))
	if i >= p.cfg.Frames {
		i = p.cfg.Frames - 1
	}
	return i
}

// HasNewFrame implements interfaces.Player.
func (p *SimulatedPlayer) HasNewFrame(itemTime float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexAt(itemTime)
	return i >= 0 && i != p.lastIndex && p.err == nil
}

// CopyFrame implements interfaces.Player.
func (p *SimulatedPlayer) CopyFrame(itemTime float64) *video.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexAt(itemTime)
	if i < 0 || p.err != nil {
		return nil
	}
	if p.cfg.fails(i) {
		p.err = fmt.Errorf("%w: %s frame %d", ErrSimulatedFailure, p.cfg.Name, i)
		return nil
	}
	p.lastIndex = i
	p.copies++
	p.cfg.Log.Record(p.cfg.Name, "copy", float64(i)*p.cfg.Interval)
	return p.cfg.frame(i)
}

// Duration implements interfaces.Player.
func (p *SimulatedPlayer) Duration() float64 {
	return p.cfg.Duration()
}

// Exhausted implements interfaces.Player.
func (p *SimulatedPlayer) Exhausted(itemTime float64) bool {
	return itemTime >= p.cfg.Duration()
}

// Err implements interfaces.Player.
func (p *SimulatedPlayer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Copies returns the number of frames handed out by CopyFrame.
func (p *SimulatedPlayer) Copies() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.copies
}

var _ interfaces.Player = (*SimulatedPlayer)(nil)
