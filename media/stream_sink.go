package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/video"
	"github.com/sirupsen/logrus"
)

// FrameStreamSink writes a .cfs frame stream.
//
// Submit hands frames to a writer goroutine through a queue of QueueDepth
// slots. ReadyForMore reports whether a slot is free and WaitReady blocks
// until one is, reserving it for the next Submit.
type FrameStreamSink struct {
	path string
	file *os.File
	w    *bufio.Writer

	queue chan streamFrame
	slots chan struct{}
	done  chan struct{}

	mu       sync.Mutex
	reserved bool
	finished bool
	count    int
	lastPTS  float64
	err      error // first writer failure
}

// NewFrameStreamSink creates path and starts the writer goroutine.
func NewFrameStreamSink(path string, cfg interfaces.MediaConfig) (*FrameStreamSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := bufio.NewWriterSize(f, 1<<20)
	header := streamHeader{Magic: streamMagic, Version: streamVersion, FrameRate: 1 / frameInterval(cfg)}
	if err := writeRecord(w, header); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}

	depth := queueDepth(cfg)
	s := &FrameStreamSink{
		path:  path,
		file:  f,
		w:     w,
		queue: make(chan streamFrame, depth),
		slots: make(chan struct{}, depth),
		done:  make(chan struct{}),
	}
	go s.writer()

	logrus.WithFields(logrus.Fields{
		"function":    "NewFrameStreamSink",
		"path":        path,
		"queue_depth": depth,
		"frame_rate":  header.FrameRate,
	}).Info("Created frame stream sink")

	return s, nil
}

func (s *FrameStreamSink) writer() {
	defer close(s.done)
	for rec := range s.queue {
		if s.failure() == nil {
			if err := writeRecord(s.w, rec); err != nil {
				s.setFailure(err)
			}
		}
		<-s.slots
	}
	if s.failure() == nil {
		if err := s.w.Flush(); err != nil {
			s.setFailure(err)
		}
	}
}

func (s *FrameStreamSink) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *FrameStreamSink) setFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = fmt.Errorf("write %s: %w", s.path, err)
		logrus.WithFields(logrus.Fields{
			"function": "FrameStreamSink.writer",
			"path":     s.path,
			"error":    err.Error(),
		}).Error("Frame stream write failed")
	}
}

// ReadyForMore implements interfaces.FrameSink.
func (s *FrameStreamSink) ReadyForMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished || s.err != nil {
		return false
	}
	return s.reserved || len(s.slots) < cap(s.slots)
}

// WaitReady implements interfaces.FrameSink.
func (s *FrameStreamSink) WaitReady(ctx context.Context) error {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return interfaces.ErrSinkFinished
	}
	if s.err != nil || s.reserved {
		err := s.err
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	s.reserved = true
	s.mu.Unlock()
	return nil
}

// Submit implements interfaces.FrameSink. It blocks only when no slot is
// free and none was reserved by WaitReady.
func (s *FrameStreamSink) Submit(frame *video.Frame, pts float64) error {
	if err := frame.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return interfaces.ErrSinkFinished
	}
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return err
	}
	if s.count > 0 && pts <= s.lastPTS {
		s.mu.Unlock()
		return fmt.Errorf("%w: %.6f after %.6f", interfaces.ErrOutOfOrder, pts, s.lastPTS)
	}
	reserved := s.reserved
	s.reserved = false
	s.count++
	s.lastPTS = pts
	s.mu.Unlock()

	if !reserved {
		s.slots <- struct{}{}
	}
	s.queue <- newStreamFrame(frame, pts)
	return nil
}

// Finish implements interfaces.FrameSink. It drains the queue, flushes and
// closes the file.
func (s *FrameStreamSink) Finish() error {
	if err := s.stop(); err != nil {
		return err
	}
	if err := s.failure(); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "FrameStreamSink.Finish",
		"path":     s.path,
		"frames":   s.count,
	}).Info("Frame stream written")
	return nil
}

// Abort stops the writer and removes the partial file. It is a no-op after
// Finish.
func (s *FrameStreamSink) Abort() error {
	if errors.Is(s.stop(), interfaces.ErrSinkFinished) {
		return nil
	}
	logrus.WithFields(logrus.Fields{
		"function": "FrameStreamSink.Abort",
		"path":     s.path,
	}).Warn("Discarding partial frame stream")
	return os.Remove(s.path)
}

func (s *FrameStreamSink) stop() error {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return interfaces.ErrSinkFinished
	}
	s.finished = true
	if s.reserved {
		s.reserved = false
		<-s.slots
	}
	s.mu.Unlock()

	close(s.queue)
	<-s.done
	if err := s.file.Close(); err != nil {
		s.setFailure(err)
	}
	return nil
}

// Path returns the output file path.
func (s *FrameStreamSink) Path() string {
	return s.path
}

var _ interfaces.FrameSink = (*FrameStreamSink)(nil)
