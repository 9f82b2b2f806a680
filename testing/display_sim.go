package testing

import (
	"sync"

	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/video"
)

// RecordingDisplay implements interfaces.Display by keeping every presented frame.
type RecordingDisplay struct {
	size   video.Size
	mu     sync.Mutex
	frames []*video.Frame
}

// NewRecordingDisplay creates a display of the given canvas size.
func NewRecordingDisplay(size video.Size) *RecordingDisplay {
	return &RecordingDisplay{size: size, frames: make([]*video.Frame, 0)}
}

// Present implements interfaces.Display.
func (d *RecordingDisplay) Present(frame *video.Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames = append(d.frames, frame)
}

// Size implements interfaces.Display.
func (d *RecordingDisplay) Size() video.Size {
	return d.size
}

// Frames returns every presented frame in order.
func (d *RecordingDisplay) Frames() []*video.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*video.Frame, len(d.frames))
	copy(out, d.frames)
	return out
}

// Count returns the number of presented frames.
func (d *RecordingDisplay) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.frames)
}

var _ interfaces.Display = (*RecordingDisplay)(nil)
