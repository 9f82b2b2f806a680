package transition

import (
	"errors"
	"fmt"

	"github.com/opd-ai/crossfade/kernel"
	"github.com/opd-ai/crossfade/video"
	"github.com/sirupsen/logrus"
)

// ErrNoKernelTable indicates a compositor was built without a kernel table.
var ErrNoKernelTable = errors.New("compositor requires a kernel table")

// Plan is the per-frame decision of the compositor.
type Plan struct {
	Phase     Phase
	Weight    float64
	BlurIndex int
}

// Compositor fades and blurs two canvas-sized frames into one.
//
// A Compositor holds only the immutable kernel table, a row runner and the
// pixel format of blank canvases, so it is safe for concurrent use and may be
// discarded and recreated freely.
type Compositor struct {
	table  *kernel.Table
	runner video.RowRunner
	format video.PixelFormat
}

// NewCompositor creates a compositor selecting blur kernels from table.
// A nil runner runs pixel work on the calling goroutine.
func NewCompositor(table *kernel.Table, runner video.RowRunner) (*Compositor, error) {
	if table == nil || table.Len() == 0 {
		return nil, ErrNoKernelTable
	}
	if runner == nil {
		runner = video.SerialRunner{}
	}
	return &Compositor{table: table, runner: runner, format: video.PixelFormatBGRA}, nil
}

// WithFormat returns a compositor producing blank canvases in format.
func (c *Compositor) WithFormat(format video.PixelFormat) *Compositor {
	if format == c.format {
		return c
	}
	cp := *c
	cp.format = format
	return &cp
}

// Format returns the pixel format of blank canvases.
func (c *Compositor) Format() video.PixelFormat {
	return c.format
}

// Table returns the kernel table.
func (c *Compositor) Table() *kernel.Table {
	return c.table
}

// Plan computes the phase, blend weight and blur kernel index for a frame pair.
func (c *Compositor) Plan(hasFirst, hasSecond bool, state State) Plan {
	phase := PhaseFor(hasFirst, hasSecond, state)
	if phase != PhaseOverlap {
		return Plan{Phase: phase}
	}
	w := state.BlendWeight()
	return Plan{Phase: phase, Weight: w, BlurIndex: c.table.IndexFor(w)}
}

// Composite produces the output frame for one instant.
//
// Present frames must already be scaled to canvas. Pass-through phases return
// the input frame itself. The overlap phase blends
// first*(1-w) + second*w over an opaque black background, then blurs the
// whole result with the kernel for w. The result carries no timestamp unless
// it is a passed-through input.
func (c *Compositor) Composite(first, second *video.Frame, state State, canvas video.Size) (*video.Frame, error) {
	if canvas.Empty() {
		return nil, fmt.Errorf("%w: canvas %s", video.ErrInvalidDimensions, canvas)
	}
	for _, f := range []*video.Frame{first, second} {
		if f == nil {
			continue
		}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if f.Size() != canvas {
			return nil, fmt.Errorf("%w: frame %s, canvas %s", video.ErrSizeMismatch, f.Size(), canvas)
		}
	}

	plan := c.Plan(first != nil, second != nil, state)

	logrus.WithFields(logrus.Fields{
		"function":     "Compositor.Composite",
		"phase":        plan.Phase.String(),
		"blend_weight": plan.Weight,
		"blur_index":   plan.BlurIndex,
		"first_left":   state.FirstRemaining.String(),
	}).Debug("Compositing frame")

	switch plan.Phase {
	case PhaseBlank:
		return video.NewOpaqueFrame(canvas, c.format), nil
	case PhaseFirstOnly, PhasePreOverlap:
		return first, nil
	case PhaseSecondOnly:
		return second, nil
	}

	blended, err := video.Blend(first, second, plan.Weight, c.runner)
	if err != nil {
		return nil, fmt.Errorf("blend: %w", err)
	}

	k := c.table.At(plan.BlurIndex)
	if k.IsIdentity() {
		return blended, nil
	}
	out, err := video.NewGaussianBlurEffect(k, c.runner).Apply(blended)
	if err != nil {
		return nil, fmt.Errorf("blur: %w", err)
	}
	return out, nil
}
