//go:build gst

package media

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/video"
	"github.com/sirupsen/logrus"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

func init() {
	RegisterDecoder(func(path string, cfg interfaces.MediaConfig) (interfaces.FrameSource, error) {
		return OpenGstSource(path, cfg)
	})
}

// GstSource decodes any container GStreamer can play into BGRA frames.
//
// Pipeline structure:
//
//	filesrc → decodebin → videoconvert → capsfilter(BGRA) → appsink
//
// NextFrame blocks inside the appsink until a sample or end of stream
// arrives; ctx is only checked between samples.
type GstSource struct {
	path     string
	pipeline *gst.Pipeline
	sink     *app.Sink
	interval float64
	duration float64

	mu      sync.Mutex
	pending *video.Frame
	pulled  int
	closed  bool
}

// OpenGstSource builds and starts a decoding pipeline for path. The first
// frame is decoded immediately so the stream duration can be queried.
func OpenGstSource(path string, cfg interfaces.MediaConfig) (*GstSource, error) {
	gst.Init(nil)

	desc := fmt.Sprintf(
		"filesrc location=%q ! decodebin ! videoconvert ! video/x-raw,format=BGRA ! appsink name=sink sync=false max-buffers=%d",
		path, queueDepth(cfg))
	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	elem, err := pipeline.GetElementByName("sink")
	if err != nil {
		return nil, fmt.Errorf("failed to find appsink: %w", err)
	}

	s := &GstSource{
		path:     path,
		pipeline: pipeline,
		sink:     app.SinkFromElement(elem),
		interval: frameInterval(cfg),
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return nil, fmt.Errorf("failed to start pipeline: %w", err)
	}

	first, err := s.pull()
	if err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("failed to preroll %s: %w", path, err)
	}
	s.pending = first

	if ok, ns := pipeline.QueryDuration(gst.FormatTime); ok && ns > 0 {
		s.duration = time.Duration(ns).Seconds()
	} else {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("%w: %s has no known duration", ErrUnsupported, path)
	}

	logrus.WithFields(logrus.Fields{
		"function": "OpenGstSource",
		"path":     path,
		"duration": s.duration,
		"size":     first.Size().String(),
	}).Info("Opened GStreamer decoder")

	return s, nil
}

// pull copies the next appsink sample into a frame.
func (s *GstSource) pull() (*video.Frame, error) {
	sample := s.sink.PullSample()
	if sample == nil {
		if s.sink.IsEOS() {
			return nil, interfaces.ErrEndOfStream
		}
		return nil, fmt.Errorf("appsink returned no sample for %s", s.path)
	}

	st := sample.GetCaps().GetStructureAt(0)
	width, err := capsInt(st, "width")
	if err != nil {
		return nil, err
	}
	height, err := capsInt(st, "height")
	if err != nil {
		return nil, err
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		return nil, fmt.Errorf("sample without buffer in %s", s.path)
	}
	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()

	frame := video.NewFrame(video.Size{Width: width, Height: height}, video.PixelFormatBGRA)
	if len(data) < len(frame.Pix) {
		buffer.Unmap()
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", video.ErrBufferTooSmall, len(data), width, height)
	}
	copy(frame.Pix, data)
	buffer.Unmap()

	ts := float64(s.pulled) * s.interval
	if pts := buffer.PresentationTimestamp(); pts >= 0 {
		ts = pts.Seconds()
	}
	s.pulled++
	return frame.WithTimestamp(ts), nil
}

func capsInt(st *gst.Structure, key string) (int, error) {
	v, err := st.GetValue(key)
	if err != nil {
		return 0, fmt.Errorf("caps field %s: %w", key, err)
	}
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("caps field %s has type %T", key, v)
	}
	return n, nil
}

// NextFrame implements interfaces.FrameSource.
func (s *GstSource) NextFrame(ctx context.Context) (*video.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.pending != nil {
		f := s.pending
		s.pending = nil
		return f, nil
	}
	return s.pull()
}

// Duration implements interfaces.FrameSource.
func (s *GstSource) Duration() float64 {
	return s.duration
}

// Close implements interfaces.FrameSource.
func (s *GstSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.pipeline.SetState(gst.StateNull)
}

var _ interfaces.FrameSource = (*GstSource)(nil)
