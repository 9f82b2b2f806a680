package media

import (
	"context"

	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/video"
)

func gradientFrame(w, h int, seed byte) *video.Frame {
	f := video.NewFrame(video.Size{Width: w, Height: h}, video.PixelFormatBGRA)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := y*f.Stride + x*video.BytesPerPixel
			f.Pix[o] = byte(x*16) + seed
			f.Pix[o+1] = byte(y*16) + seed
			f.Pix[o+2] = seed
			f.Pix[o+3] = 255
		}
	}
	return f
}

// sliceSource yields fixed frames without timestamps.
type sliceSource struct {
	frames   []*video.Frame
	duration float64
	next     int
	closed   bool
}

func (s *sliceSource) NextFrame(ctx context.Context) (*video.Frame, error) {
	if s.next >= len(s.frames) {
		return nil, interfaces.ErrEndOfStream
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

func (s *sliceSource) Duration() float64 { return s.duration }

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

func testConfig() interfaces.MediaConfig {
	cfg := DefaultConfig()
	cfg.FrameRate = 10
	cfg.QueueDepth = 2
	return cfg
}
