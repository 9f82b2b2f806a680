package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/video"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

// FrameStreamSource decodes a .cfs frame stream file.
type FrameStreamSource struct {
	path     string
	header   streamHeader
	frames   int
	duration float64

	mu     sync.Mutex
	file   *os.File
	reader *bufio.Reader
	closed bool
}

// OpenFrameStream opens path and indexes it to learn its duration.
func OpenFrameStream(path string) (*FrameStreamSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	s := &FrameStreamSource{path: path, file: f}
	if err := s.index(); err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := s.rewind(); err != nil {
		f.Close()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":   "OpenFrameStream",
		"path":       path,
		"frames":     s.frames,
		"duration":   s.duration,
		"frame_rate": s.header.FrameRate,
	}).Info("Opened frame stream")

	return s, nil
}

// index reads every record once, decoding only the timestamps.
func (s *FrameStreamSource) index() error {
	r := bufio.NewReader(s.file)
	h, err := readHeader(r)
	if err != nil {
		return err
	}
	s.header = h

	last := 0.0
	for {
		payload, err := readRecord(r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		var ts streamTimestamp
		if err := msgpack.Unmarshal(payload, &ts); err != nil {
			return fmt.Errorf("%w: frame %d: %w", ErrBadStream, s.frames, err)
		}
		last = ts.PTS
		s.frames++
	}
	if s.frames == 0 {
		return ErrNoFrames
	}
	s.duration = last + 1/h.FrameRate
	return nil
}

func (s *FrameStreamSource) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	s.reader = bufio.NewReader(s.file)
	_, err := readHeader(s.reader)
	return err
}

// NextFrame implements interfaces.FrameSource.
func (s *FrameStreamSource) NextFrame(ctx context.Context) (*video.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	payload, err := readRecord(s.reader)
	if errors.Is(err, io.EOF) {
		return nil, interfaces.ErrEndOfStream
	}
	if err != nil {
		return nil, err
	}

	var rec streamFrame
	if err := msgpack.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadStream, err)
	}
	return rec.toFrame()
}

// Duration implements interfaces.FrameSource.
func (s *FrameStreamSource) Duration() float64 {
	return s.duration
}

// FrameCount returns the number of frames in the file.
func (s *FrameStreamSource) FrameCount() int {
	return s.frames
}

// FrameRate returns the nominal frame rate recorded in the header.
func (s *FrameStreamSource) FrameRate() float64 {
	return s.header.FrameRate
}

// Close implements interfaces.FrameSource.
func (s *FrameStreamSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

var _ interfaces.FrameSource = (*FrameStreamSource)(nil)
