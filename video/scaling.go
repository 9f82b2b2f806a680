// Package video provides frame scaling for the transition pipeline.
//
// This file implements resampling of a source frame into a canvas-sized
// destination under a resolved ScaleTransform.
package video

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Scaler resamples frames into a destination size.
//
// Uses the Catmull-Rom cubic kernel from x/image/draw, which avoids the
// aliasing of bilinear sampling on downscale. Destination pixels outside the
// mapped source (letterbox bars) are opaque black.
type Scaler struct {
	kernel *draw.Kernel
	runner RowRunner
}

// NewScaler creates a new frame scaler running on the calling goroutine.
func NewScaler() *Scaler {
	return &Scaler{
		kernel: draw.CatmullRom,
		runner: SerialRunner{},
	}
}

// SetRunner sets the row runner used to split resampling work.
// If r is nil, SerialRunner is used.
func (s *Scaler) SetRunner(r RowRunner) {
	s.runner = runnerOrSerial(r)
}

// Scale resamples frame into a new frame of size dst using transform t.
//
// Blocks until the destination frame is complete. Allocates one destination
// buffer per call; buffers are never reused across calls.
//
// Parameters:
//   - frame: Source frame (any size)
//   - t: Source-to-destination mapping, usually from ResolveScaleTransform
//   - dst: Destination size
//
// Returns:
//   - *Frame: New frame of size dst carrying the source timestamp
//   - error: Any error that occurred during scaling
func (s *Scaler) Scale(frame *Frame, t ScaleTransform, dst Size) (*Frame, error) {
	if err := frame.Validate(); err != nil {
		return nil, fmt.Errorf("source frame: %w", err)
	}
	if dst.Empty() {
		return nil, fmt.Errorf("%w: target %s", ErrInvalidDimensions, dst)
	}

	out := NewOpaqueFrame(dst, frame.Format)
	out.Timestamp = frame.Timestamp
	out.HasTimestamp = frame.HasTimestamp

	src := frame.rgbaView()
	target := out.rgbaView()
	aff := t.Affine()

	s.runner.RunRows(dst.Height, func(y0, y1 int) {
		band := target.SubImage(image.Rect(0, y0, dst.Width, y1)).(*image.RGBA)
		s.kernel.Transform(band, aff, src, src.Bounds(), draw.Src, nil)
	})

	return out, nil
}

// ScaleToCanvas resolves the transform for policy and scales frame into canvas.
//
// If the source already matches the canvas, scaling is skipped and the source
// frame itself is returned.
func (s *Scaler) ScaleToCanvas(frame *Frame, canvas Size, policy FitPolicy) (*Frame, error) {
	if frame == nil {
		return nil, ErrNilFrame
	}
	if !IsScalingRequired(frame.Size(), canvas) {
		return frame, nil
	}

	t, err := ResolveScaleTransform(frame.Size(), canvas, policy)
	if err != nil {
		return nil, err
	}
	return s.Scale(frame, t, canvas)
}

// GetScaleFactors calculates the per-axis stretch factors for given sizes.
func (s *Scaler) GetScaleFactors(src, dst Size) (xFactor, yFactor float64) {
	xFactor = float64(dst.Width) / float64(src.Width)
	yFactor = float64(dst.Height) / float64(src.Height)
	return
}
