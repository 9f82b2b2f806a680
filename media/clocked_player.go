package media

import (
	"context"
	"errors"
	"sync"

	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/video"
	"github.com/sirupsen/logrus"
)

type decoded struct {
	frame *video.Frame
	err   error
}

// ClockedPlayer adapts a FrameSource to the interfaces.Player contract.
//
// A goroutine decodes ahead into a queue of QueueDepth frames once Play is
// first called; the poll methods never block on it. Frames without a
// timestamp are spaced at the configured frame rate. A decode failure is
// sticky and reported by Err.
type ClockedPlayer struct {
	src      interfaces.FrameSource
	interval float64
	frames   chan decoded
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu        sync.Mutex
	decoding  bool
	playing   bool
	startHost float64
	pausedAt  float64
	decodedN  int
	latest    *video.Frame
	peek      *video.Frame
	copied    *video.Frame
	eos       bool
	err       error
	closed    bool
}

// NewClockedPlayer creates a paused player over src. The player owns src and
// closes it on Close.
func NewClockedPlayer(src interfaces.FrameSource, cfg interfaces.MediaConfig) *ClockedPlayer {
	return &ClockedPlayer{
		src:      src,
		interval: frameInterval(cfg),
		frames:   make(chan decoded, queueDepth(cfg)),
	}
}

func (p *ClockedPlayer) decode(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.frames)
	for {
		f, err := p.src.NextFrame(ctx)
		if errors.Is(err, interfaces.ErrEndOfStream) {
			return
		}
		if err != nil && ctx.Err() != nil {
			return
		}
		select {
		case p.frames <- decoded{frame: f, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// Play implements interfaces.Player.
func (p *ClockedPlayer) Play(hostTime float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing || p.closed {
		return
	}
	if !p.decoding {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		p.decoding = true
		p.wg.Add(1)
		go p.decode(ctx)
	}
	p.startHost = hostTime - p.pausedAt
	p.playing = true

	logrus.WithFields(logrus.Fields{
		"function":  "ClockedPlayer.Play",
		"host_time": hostTime,
		"item_time": p.pausedAt,
	}).Debug("Player started")
}

// Pause implements interfaces.Player.
func (p *ClockedPlayer) Pause(hostTime float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.pausedAt = hostTime - p.startHost
	p.playing = false
}

// Rate implements interfaces.Player.
func (p *ClockedPlayer) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return 1
	}
	return 0
}

// ItemTime implements interfaces.Player.
func (p *ClockedPlayer) ItemTime(hostTime float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return hostTime - p.startHost
	}
	return p.pausedAt
}

// advanceLocked moves latest forward to the newest decoded frame due at
// itemTime without waiting for the decoder.
func (p *ClockedPlayer) advanceLocked(itemTime float64) {
	for p.err == nil {
		if p.peek == nil {
			if p.eos {
				return
			}
			select {
			case d, ok := <-p.frames:
				if !ok {
					p.eos = true
					return
				}
				if d.err != nil {
					p.err = d.err
					logrus.WithFields(logrus.Fields{
						"function": "ClockedPlayer.advance",
						"frame":    p.decodedN,
						"error":    d.err.Error(),
					}).Error("Decode failed")
					return
				}
				if !d.frame.HasTimestamp {
					d.frame = d.frame.WithTimestamp(float64(p.decodedN) * p.interval)
				}
				p.decodedN++
				p.peek = d.frame
			default:
				return
			}
		}
		if p.peek.Timestamp > itemTime {
			return
		}
		p.latest, p.peek = p.peek, nil
	}
}

// HasNewFrame implements interfaces.Player.
func (p *ClockedPlayer) HasNewFrame(itemTime float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advanceLocked(itemTime)
	return p.err == nil && p.latest != nil && p.latest != p.copied
}

// CopyFrame implements interfaces.Player.
func (p *ClockedPlayer) CopyFrame(itemTime float64) *video.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advanceLocked(itemTime)
	if p.err != nil {
		return nil
	}
	p.copied = p.latest
	return p.latest
}

// Duration implements interfaces.Player.
func (p *ClockedPlayer) Duration() float64 {
	return p.src.Duration()
}

// Exhausted implements interfaces.Player.
func (p *ClockedPlayer) Exhausted(itemTime float64) bool {
	return itemTime >= p.src.Duration()
}

// Err implements interfaces.Player.
func (p *ClockedPlayer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Close stops the decoder and closes the source.
func (p *ClockedPlayer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.playing = false
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	return p.src.Close()
}

var _ interfaces.Player = (*ClockedPlayer)(nil)
