// Package limits provides centralized configuration bounds for the transition pipeline.
// This ensures invalid configuration is rejected once, before any session starts.
package limits

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MinOverlapDuration is the shortest transition window in seconds.
	// A zero overlap produces a hard cut with no cross-fade.
	MinOverlapDuration = 0.0

	// DefaultMaxOverlapDuration bounds the transition window in seconds.
	// The default blur table covers a 10 second window at 60 steps per second.
	DefaultMaxOverlapDuration = 10.0

	// DefaultOverlapDuration is used when no overlap is configured.
	DefaultOverlapDuration = 3.0

	// DefaultMaxBlurRadius is the largest Gaussian radius in the kernel table.
	DefaultMaxBlurRadius = 14.0

	// DefaultBlurTableSteps is the number of kernels in the table (10s * 60 steps/s).
	DefaultBlurTableSteps = 600

	// MaxBlurRadius caps the kernel radius; a 64 radius kernel is 129x129 taps.
	MaxBlurRadius = 64.0

	// MaxBlurTableSteps caps the table length to keep the persisted blob bounded.
	MaxBlurTableSteps = 10000

	// MaxCanvasDimension is the largest canvas side in pixels (8K UHD width).
	MaxCanvasDimension = 7680

	// MaxFrameRate bounds the output frame rate and preview tick rate.
	MaxFrameRate = 240.0
)

var (
	// ErrOverlapOutOfRange indicates the overlap duration is outside [0, max].
	ErrOverlapOutOfRange = errors.New("overlap duration out of range")

	// ErrInvalidCanvas indicates a zero, negative or oversized canvas.
	ErrInvalidCanvas = errors.New("invalid canvas size")

	// ErrInvalidFitPolicy indicates an unknown fit policy name.
	ErrInvalidFitPolicy = errors.New("invalid fit policy")

	// ErrInvalidKernelParams indicates unusable blur table generation parameters.
	ErrInvalidKernelParams = errors.New("invalid blur kernel parameters")

	// ErrInvalidFrameRate indicates a non-positive or excessive frame rate.
	ErrInvalidFrameRate = errors.New("invalid frame rate")
)

// ValidateOverlapDuration validates an overlap duration against [MinOverlapDuration, maxOverlap].
// Returns an error with context including the offending value and the bound.
func ValidateOverlapDuration(overlap, maxOverlap float64) error {
	if math.IsNaN(overlap) || math.IsNaN(maxOverlap) {
		return fmt.Errorf("%w: NaN", ErrOverlapOutOfRange)
	}
	if maxOverlap < MinOverlapDuration {
		return fmt.Errorf("%w: maximum %.2fs is negative", ErrOverlapOutOfRange, maxOverlap)
	}
	if overlap < MinOverlapDuration || overlap > maxOverlap {
		return fmt.Errorf("%w: %.2fs not in [%.2f, %.2f]", ErrOverlapOutOfRange, overlap, MinOverlapDuration, maxOverlap)
	}
	return nil
}

// RoundOverlap rounds an overlap duration to hundredths of a second, the
// resolution users pick transition lengths at.
func RoundOverlap(overlap float64) float64 {
	return math.Round(overlap*100) / 100
}

// ValidateCanvas validates canvas dimensions in pixels.
func ValidateCanvas(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidCanvas, width, height)
	}
	if width > MaxCanvasDimension || height > MaxCanvasDimension {
		return fmt.Errorf("%w: %dx%d exceeds %d", ErrInvalidCanvas, width, height, MaxCanvasDimension)
	}
	return nil
}

// ValidateKernelParams validates blur table generation parameters.
func ValidateKernelParams(maxRadius float64, steps int) error {
	if math.IsNaN(maxRadius) || maxRadius < 0 || maxRadius > MaxBlurRadius {
		return fmt.Errorf("%w: radius %.2f not in [0, %.0f]", ErrInvalidKernelParams, maxRadius, MaxBlurRadius)
	}
	if steps < 1 || steps > MaxBlurTableSteps {
		return fmt.Errorf("%w: steps %d not in [1, %d]", ErrInvalidKernelParams, steps, MaxBlurTableSteps)
	}
	return nil
}

// ValidateFrameRate validates a frames-per-second value.
func ValidateFrameRate(fps float64) error {
	if math.IsNaN(fps) || fps <= 0 || fps > MaxFrameRate {
		return fmt.Errorf("%w: %.2f", ErrInvalidFrameRate, fps)
	}
	return nil
}
