// Package render provides the explicitly owned render context and the
// per-frame processor that scales and composites on it.
//
// The processing pipeline for one output frame:
//
//	first, second → Scale to canvas → Composite → Effects → output frame
package render

import (
	"context"
	"fmt"
	"sync"

	"github.com/opd-ai/crossfade/kernel"
	"github.com/opd-ai/crossfade/limits"
	"github.com/opd-ai/crossfade/transition"
	"github.com/opd-ai/crossfade/video"
	"github.com/sirupsen/logrus"
)

// Slot identifies one of the two input streams.
type Slot int

const (
	// SlotFirst is the outgoing stream.
	SlotFirst Slot = iota
	// SlotSecond is the incoming stream.
	SlotSecond
)

func (s Slot) String() string {
	if s == SlotFirst {
		return "first"
	}
	return "second"
}

type scaledEntry struct {
	source *video.Frame
	scaled *video.Frame
}

// Processor turns a pair of decoded frames into one composited canvas frame.
//
// Scaled frames are remembered per slot by source pointer, so a frame that
// repeats across preview ticks is resampled once.
type Processor struct {
	rc         *Context
	scaler     *video.Scaler
	compositor *transition.Compositor
	effects    *video.EffectChain
	canvas     video.Size
	policy     video.FitPolicy

	mu     sync.Mutex
	scaled [2]scaledEntry
	format video.PixelFormat
}

// NewProcessor creates a processor issuing its work on rc.
func NewProcessor(rc *Context, table *kernel.Table, canvas video.Size, policy video.FitPolicy) (*Processor, error) {
	logrus.WithFields(logrus.Fields{
		"function": "NewProcessor",
		"canvas":   canvas.String(),
		"policy":   policy.String(),
	}).Info("Creating frame processor")

	if rc == nil {
		return nil, fmt.Errorf("%w: no render context", ErrDeviceUnavailable)
	}
	if err := limits.ValidateCanvas(canvas.Width, canvas.Height); err != nil {
		return nil, err
	}
	if _, err := video.ResolveScaleTransform(canvas, canvas, policy); err != nil {
		return nil, err
	}

	compositor, err := transition.NewCompositor(table, rc)
	if err != nil {
		return nil, err
	}

	scaler := video.NewScaler()
	scaler.SetRunner(rc)

	return &Processor{
		rc:         rc,
		scaler:     scaler,
		compositor: compositor,
		effects:    video.NewEffectChain(),
		canvas:     canvas,
		policy:     policy,
		format:     video.PixelFormatBGRA,
	}, nil
}

// Process scales, composites and applies post effects on the calling goroutine.
func (p *Processor) Process(first, second *video.Frame, state transition.State) (*video.Frame, error) {
	a, err := p.scaleSlot(SlotFirst, first)
	if err != nil {
		return nil, err
	}
	b, err := p.scaleSlot(SlotSecond, second)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	format := p.format
	p.mu.Unlock()

	out, err := p.compositor.WithFormat(format).Composite(a, b, state, p.canvas)
	if err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}

	out, err = p.effects.Apply(out)
	if err != nil {
		return nil, fmt.Errorf("post effects: %w", err)
	}
	return out, nil
}

// Encode submits the frame pair to the render context and returns at once.
func (p *Processor) Encode(first, second *video.Frame, state transition.State) *Fence {
	return p.rc.Submit("composite", func() (*video.Frame, error) {
		return p.Process(first, second, state)
	})
}

// Render submits the frame pair and waits for the result.
func (p *Processor) Render(ctx context.Context, first, second *video.Frame, state transition.State) (*video.Frame, error) {
	return p.Encode(first, second, state).Wait(ctx)
}

// scaleSlot resamples a source frame to canvas, reusing the previous result
// when the same frame is seen again.
func (p *Processor) scaleSlot(slot Slot, frame *video.Frame) (*video.Frame, error) {
	if frame == nil {
		return nil, nil
	}

	p.mu.Lock()
	entry := p.scaled[slot]
	p.format = frame.Format
	p.mu.Unlock()
	if entry.source == frame {
		return entry.scaled, nil
	}

	scaled, err := p.scaler.ScaleToCanvas(frame, p.canvas, p.policy)
	if err != nil {
		return nil, fmt.Errorf("scale %s frame: %w", slot, err)
	}

	p.mu.Lock()
	p.scaled[slot] = scaledEntry{source: frame, scaled: scaled}
	p.mu.Unlock()

	return scaled, nil
}

// Plan reports the compositor decision for a frame pair without rendering it.
func (p *Processor) Plan(hasFirst, hasSecond bool, state transition.State) transition.Plan {
	return p.compositor.Plan(hasFirst, hasSecond, state)
}

// SetPixelFormat sets the format of blank canvases emitted before any frame
// has been seen. Later frames replace it with their own format.
func (p *Processor) SetPixelFormat(format video.PixelFormat) {
	p.mu.Lock()
	p.format = format
	p.mu.Unlock()
}

// PixelFormat returns the format blank canvases are currently emitted in.
func (p *Processor) PixelFormat() video.PixelFormat {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.format
}

// Canvas returns the output size.
func (p *Processor) Canvas() video.Size {
	return p.canvas
}

// GetEffectChain returns the post-composite effect chain.
func (p *Processor) GetEffectChain() *video.EffectChain {
	return p.effects
}

// GetScaler returns the scaler.
func (p *Processor) GetScaler() *video.Scaler {
	return p.scaler
}
