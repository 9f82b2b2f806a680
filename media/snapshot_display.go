package media

import (
	"errors"
	"sync"

	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/video"
)

// SnapshotDisplay is a headless display: it counts presented frames and keeps
// the latest one, which SaveSnapshot writes as a PNG.
type SnapshotDisplay struct {
	size video.Size

	mu        sync.Mutex
	presented int
	last      *video.Frame
}

// NewSnapshotDisplay creates a display for a canvas of the given size.
func NewSnapshotDisplay(size video.Size) *SnapshotDisplay {
	return &SnapshotDisplay{size: size}
}

// Present implements interfaces.Display.
func (d *SnapshotDisplay) Present(frame *video.Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presented++
	d.last = frame
}

// Size implements interfaces.Display.
func (d *SnapshotDisplay) Size() video.Size {
	return d.size
}

// Presented returns the number of frames presented so far.
func (d *SnapshotDisplay) Presented() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presented
}

// Last returns the most recently presented frame.
func (d *SnapshotDisplay) Last() *video.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// SaveSnapshot writes the most recently presented frame to path.
func (d *SnapshotDisplay) SaveSnapshot(path string) error {
	last := d.Last()
	if last == nil {
		return errors.New("no frame presented yet")
	}
	return WritePNG(path, last)
}

var _ interfaces.Display = (*SnapshotDisplay)(nil)
