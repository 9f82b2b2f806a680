package interfaces

import (
	"context"
	"errors"
	"fmt"

	"github.com/opd-ai/crossfade/limits"
	"github.com/opd-ai/crossfade/video"
)

var (
	// ErrEndOfStream is returned by FrameSource.NextFrame once every frame has been read.
	ErrEndOfStream = errors.New("end of stream")

	// ErrOutOfOrder is returned by FrameSink.Submit for a timestamp that does not increase.
	ErrOutOfOrder = errors.New("presentation timestamp not strictly increasing")

	// ErrSinkFinished is returned by FrameSink.Submit after Finish.
	ErrSinkFinished = errors.New("sink already finished")
)

// FrameSource is a sequential decoder.
type FrameSource interface {
	// NextFrame returns the next decoded frame, or ErrEndOfStream
	NextFrame(ctx context.Context) (*video.Frame, error)
	// Duration returns the total stream length in seconds
	Duration() float64
	// Close releases decoder resources
	Close() error
}

// FrameSink is a sequential encoder with backpressure.
type FrameSink interface {
	// ReadyForMore reports without blocking whether Submit would be accepted now
	ReadyForMore() bool
	// WaitReady blocks until the sink can accept a frame or ctx is done
	WaitReady(ctx context.Context) error
	// Submit appends a frame; pts must be strictly greater than the previous one
	Submit(frame *video.Frame, pts float64) error
	// Finish flushes and closes the output; called exactly once
	Finish() error
}

// Player is a real-time, clock-driven stream used by the preview loop.
// Host and item times are seconds.
type Player interface {
	// Play starts or resumes the item clock at hostTime
	Play(hostTime float64)
	// Pause freezes the item clock at hostTime
	Pause(hostTime float64)
	// Rate returns 1 while playing and 0 while paused or stopped
	Rate() float64
	// ItemTime maps a host time onto the item timeline
	ItemTime(hostTime float64) float64
	// HasNewFrame reports whether a frame newer than the last copied one is due at itemTime
	HasNewFrame(itemTime float64) bool
	// CopyFrame returns the latest frame due at itemTime, or nil if none is available
	CopyFrame(itemTime float64) *video.Frame
	// Duration returns the item length in seconds
	Duration() float64
	// Exhausted reports whether the item has no frames left at itemTime
	Exhausted(itemTime float64) bool
	// Err returns the decode error that stopped the item, if any
	Err() error
}

// Display presents composited frames.
type Display interface {
	// Present shows a frame; it must not block the caller for long
	Present(frame *video.Frame)
	// Size returns the canvas size the display expects
	Size() video.Size
}

// MediaConfig holds configuration for source and sink implementations.
type MediaConfig struct {
	// UseSimulation selects the simulated implementations from the testing package
	UseSimulation bool

	// FrameSize is the decoded frame size for sources that cannot detect it
	FrameSize video.Size

	// FrameRate is the decoded frame rate for sources that cannot detect it
	FrameRate float64

	// QueueDepth bounds the frames buffered by asynchronous sinks
	QueueDepth int
}

// ErrInvalidQueueDepth indicates a queue depth below one.
var ErrInvalidQueueDepth = errors.New("queue depth must be at least 1")

// Validate checks the configuration for invalid values.
func (c *MediaConfig) Validate() error {
	if err := limits.ValidateCanvas(c.FrameSize.Width, c.FrameSize.Height); err != nil {
		return fmt.Errorf("frame size: %w", err)
	}
	if err := limits.ValidateFrameRate(c.FrameRate); err != nil {
		return err
	}
	if c.QueueDepth < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidQueueDepth, c.QueueDepth)
	}
	return nil
}
