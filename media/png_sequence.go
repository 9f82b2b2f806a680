package media

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/video"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ManifestName is the file in a PNG sequence directory listing its frames.
const ManifestName = "manifest.yaml"

// Manifest describes a PNG sequence. Without one, every *.png file in the
// directory is a frame, in name order, spaced at the configured frame rate.
type Manifest struct {
	FrameRate float64         `yaml:"frame_rate"`
	Frames    []ManifestEntry `yaml:"frames"`
}

// ManifestEntry is one frame of a PNG sequence.
type ManifestEntry struct {
	File string  `yaml:"file"`
	PTS  float64 `yaml:"pts"`
}

// ReadManifest loads dir/manifest.yaml.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestName, err)
	}
	return &m, nil
}

// PNGSequenceSource decodes a directory of PNG files.
type PNGSequenceSource struct {
	dir      string
	entries  []ManifestEntry
	interval float64

	mu     sync.Mutex
	next   int
	closed bool
}

// OpenPNGSequence opens the sequence in dir.
func OpenPNGSequence(dir string, cfg interfaces.MediaConfig) (*PNGSequenceSource, error) {
	interval := frameInterval(cfg)

	m, err := ReadManifest(dir)
	switch {
	case err == nil:
		if m.FrameRate > 0 {
			interval = 1 / m.FrameRate
		}
	case errors.Is(err, os.ErrNotExist):
		m, err = scanSequence(dir, interval)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if len(m.Frames) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFrames, dir)
	}

	logrus.WithFields(logrus.Fields{
		"function": "OpenPNGSequence",
		"dir":      dir,
		"frames":   len(m.Frames),
		"interval": interval,
	}).Info("Opened PNG sequence")

	return &PNGSequenceSource{dir: dir, entries: m.Frames, interval: interval}, nil
}

func scanSequence(dir string, interval float64) (*Manifest, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	sort.Strings(files)

	m := &Manifest{Frames: make([]ManifestEntry, 0, len(files))}
	for i, f := range files {
		m.Frames = append(m.Frames, ManifestEntry{File: filepath.Base(f), PTS: float64(i) * interval})
	}
	return m, nil
}

// NextFrame implements interfaces.FrameSource.
func (s *PNGSequenceSource) NextFrame(ctx context.Context) (*video.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.next >= len(s.entries) {
		s.mu.Unlock()
		return nil, interfaces.ErrEndOfStream
	}
	entry := s.entries[s.next]
	s.next++
	s.mu.Unlock()

	frame, err := readPNG(filepath.Join(s.dir, entry.File))
	if err != nil {
		return nil, err
	}
	return frame.WithTimestamp(entry.PTS), nil
}

// Duration implements interfaces.FrameSource.
func (s *PNGSequenceSource) Duration() float64 {
	return s.entries[len(s.entries)-1].PTS + s.interval
}

// Close implements interfaces.FrameSource.
func (s *PNGSequenceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func readPNG(path string) (*video.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return video.FrameFromImage(img, video.PixelFormatBGRA), nil
}

// WritePNG saves frame as a PNG file at path.
func WritePNG(path string, frame *video.Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(f, frame.ToImage()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// PNGSequenceSink writes every submitted frame as a numbered PNG file and a
// manifest on Finish. Writes are synchronous, so it is always ready.
type PNGSequenceSink struct {
	dir       string
	frameRate float64

	mu       sync.Mutex
	frames   []ManifestEntry
	finished bool
}

// NewPNGSequenceSink creates dir if needed and returns a sink writing into it.
func NewPNGSequenceSink(dir string, cfg interfaces.MediaConfig) (*PNGSequenceSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &PNGSequenceSink{
		dir:       dir,
		frameRate: 1 / frameInterval(cfg),
		frames:    make([]ManifestEntry, 0),
	}, nil
}

// ReadyForMore implements interfaces.FrameSink.
func (s *PNGSequenceSink) ReadyForMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.finished
}

// WaitReady implements interfaces.FrameSink.
func (s *PNGSequenceSink) WaitReady(ctx context.Context) error {
	return ctx.Err()
}

// Submit implements interfaces.FrameSink.
func (s *PNGSequenceSink) Submit(frame *video.Frame, pts float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return interfaces.ErrSinkFinished
	}
	if n := len(s.frames); n > 0 && pts <= s.frames[n-1].PTS {
		return fmt.Errorf("%w: %.6f after %.6f", interfaces.ErrOutOfOrder, pts, s.frames[n-1].PTS)
	}

	name := fmt.Sprintf("frame_%06d.png", len(s.frames))
	if err := WritePNG(filepath.Join(s.dir, name), frame); err != nil {
		return err
	}
	s.frames = append(s.frames, ManifestEntry{File: name, PTS: pts})
	return nil
}

// Finish implements interfaces.FrameSink.
func (s *PNGSequenceSink) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return interfaces.ErrSinkFinished
	}
	s.finished = true

	data, err := yaml.Marshal(&Manifest{FrameRate: s.frameRate, Frames: s.frames})
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.dir, ManifestName), data, 0o644); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "PNGSequenceSink.Finish",
		"dir":      s.dir,
		"frames":   len(s.frames),
	}).Info("PNG sequence written")
	return nil
}

// Abort removes the directory and everything written to it. It is a no-op
// after Finish.
func (s *PNGSequenceSink) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return nil
	}
	s.finished = true

	logrus.WithFields(logrus.Fields{
		"function": "PNGSequenceSink.Abort",
		"dir":      s.dir,
		"frames":   len(s.frames),
	}).Warn("Discarding partial PNG sequence")
	return os.RemoveAll(s.dir)
}

var (
	_ interfaces.FrameSource = (*PNGSequenceSource)(nil)
	_ interfaces.FrameSink   = (*PNGSequenceSink)(nil)
)
