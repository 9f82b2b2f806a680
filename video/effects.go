// Package video provides frame effects for the transition pipeline.
//
// This file implements the blend and Gaussian blur stages applied to
// canvas-sized frames during an overlap.
package video

import (
	"fmt"
	"math"

	"github.com/opd-ai/crossfade/kernel"
)

// Effect represents a per-frame effect.
type Effect interface {
	// Apply processes a frame and returns a new frame; the input is never modified
	Apply(frame *Frame) (*Frame, error)
	// GetName returns the effect name for identification
	GetName() string
}

// EffectChain manages multiple effects applied in sequence.
type EffectChain struct {
	effects []Effect
}

// NewEffectChain creates a new effect processing chain.
func NewEffectChain() *EffectChain {
	return &EffectChain{
		effects: make([]Effect, 0),
	}
}

// AddEffect adds an effect to the processing chain.
func (ec *EffectChain) AddEffect(effect Effect) {
	ec.effects = append(ec.effects, effect)
}

// Apply processes a frame through all effects in the chain.
// An empty chain returns the input frame itself.
func (ec *EffectChain) Apply(frame *Frame) (*Frame, error) {
	if frame == nil {
		return nil, ErrNilFrame
	}

	current := frame
	for i, effect := range ec.effects {
		result, err := effect.Apply(current)
		if err != nil {
			return nil, fmt.Errorf("effect %d (%s) failed: %w", i, effect.GetName(), err)
		}
		current = result
	}

	return current, nil
}

// GetEffectCount returns the number of effects in the chain.
func (ec *EffectChain) GetEffectCount() int {
	return len(ec.effects)
}

// Clear removes all effects from the chain.
func (ec *EffectChain) Clear() {
	ec.effects = ec.effects[:0]
}

// GaussianBlurEffect convolves every channel with a precomputed kernel.
//
// Samples outside the frame are clamped to the nearest edge pixel, so a
// uniform frame stays uniform. Accumulation is float64 and each channel is
// rounded to nearest once at the end.
type GaussianBlurEffect struct {
	kernel  kernel.Kernel
	profile []float64
	runner  RowRunner
}

// NewGaussianBlurEffect creates a blur effect for k. A nil runner runs serially.
func NewGaussianBlurEffect(k kernel.Kernel, runner RowRunner) *GaussianBlurEffect {
	return &GaussianBlurEffect{
		kernel:  k,
		profile: k.Profile(),
		runner:  runnerOrSerial(runner),
	}
}

// Apply blurs frame into a new frame of the same size.
// An identity kernel returns the input frame itself.
func (ge *GaussianBlurEffect) Apply(frame *Frame) (*Frame, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	if ge.kernel.IsIdentity() {
		return frame, nil
	}

	w, h := frame.Width, frame.Height
	half := ge.kernel.Size / 2
	rowLen := w * BytesPerPixel

	// Horizontal pass into a float buffer, then vertical pass into the output.
	tmp := make([]float64, rowLen*h)
	ge.runner.RunRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			src := frame.Pix[y*frame.Stride:]
			dst := tmp[y*rowLen : (y+1)*rowLen]
			for x := 0; x < w; x++ {
				var acc [BytesPerPixel]float64
				for i, wt := range ge.profile {
					o := clampIndex(x+i-half, w) * BytesPerPixel
					acc[0] += wt * float64(src[o])
					acc[1] += wt * float64(src[o+1])
					acc[2] += wt * float64(src[o+2])
					acc[3] += wt * float64(src[o+3])
				}
				copy(dst[x*BytesPerPixel:], acc[:])
			}
		}
	})

	out := NewFrame(frame.Size(), frame.Format)
	out.Timestamp = frame.Timestamp
	out.HasTimestamp = frame.HasTimestamp

	ge.runner.RunRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			dst := out.Pix[y*out.Stride:]
			for x := 0; x < rowLen; x++ {
				var acc float64
				for j, wt := range ge.profile {
					acc += wt * tmp[clampIndex(y+j-half, h)*rowLen+x]
				}
				dst[x] = toByte(acc)
			}
		}
	})

	return out, nil
}

// GetName returns the effect name.
func (ge *GaussianBlurEffect) GetName() string {
	return fmt.Sprintf("GaussianBlur(%.3f)", ge.kernel.Radius)
}

// Blend computes round(a*(1-weight) + b*weight) per channel into a new frame.
//
// Either input may be nil, in which case it contributes opaque black. Both
// non-nil inputs must share size and format. The output carries no timestamp.
func Blend(a, b *Frame, weight float64, runner RowRunner) (*Frame, error) {
	ref := a
	if ref == nil {
		ref = b
	}
	if ref == nil {
		return nil, ErrNilFrame
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if a != nil && b != nil {
		if err := b.Validate(); err != nil {
			return nil, err
		}
		if a.Size() != b.Size() {
			return nil, fmt.Errorf("%w: %s vs %s", ErrSizeMismatch, a.Size(), b.Size())
		}
		if a.Format != b.Format {
			return nil, fmt.Errorf("%w: %s vs %s", ErrFormatMismatch, a.Format, b.Format)
		}
	}

	if weight < 0 || math.IsNaN(weight) {
		weight = 0
	}
	if weight > 1 {
		weight = 1
	}

	out := NewFrame(ref.Size(), ref.Format)
	rowLen := ref.Width * BytesPerPixel
	black := [BytesPerPixel]float64{0, 0, 0, 255}

	runnerOrSerial(runner).RunRows(ref.Height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			dst := out.Pix[y*out.Stride : y*out.Stride+rowLen]
			for x := range dst {
				av := black[x%BytesPerPixel]
				if a != nil {
					av = float64(a.Pix[y*a.Stride+x])
				}
				bv := black[x%BytesPerPixel]
				if b != nil {
					bv = float64(b.Pix[y*b.Stride+x])
				}
				dst[x] = toByte(av*(1-weight) + bv*weight)
			}
		}
	})

	return out, nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func toByte(v float64) byte {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
