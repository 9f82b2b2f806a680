package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/opd-ai/crossfade/video"
	"github.com/sirupsen/logrus"
)

var (
	// ErrDeviceUnavailable indicates the render context could not be created.
	ErrDeviceUnavailable = errors.New("render device unavailable")

	// ErrContextClosed indicates work was submitted to a closed render context.
	ErrContextClosed = errors.New("render context closed")

	// ErrFencePending indicates a fence result was read before it signaled.
	ErrFencePending = errors.New("fence not yet signaled")
)

// Options configure a render context.
type Options struct {
	// Workers is the number of goroutines pixel work is split across.
	Workers int
	// QueueDepth bounds the number of submitted, unstarted commands.
	QueueDepth int
}

// Fence signals completion of one submitted command.
type Fence struct {
	label string
	done  chan struct{}
	frame *video.Frame
	err   error
}

func newFence(label string) *Fence {
	return &Fence{label: label, done: make(chan struct{})}
}

func failedFence(label string, err error) *Fence {
	f := newFence(label)
	f.signal(nil, err)
	return f
}

func (f *Fence) signal(frame *video.Frame, err error) {
	f.frame = frame
	f.err = err
	close(f.done)
}

// Label returns the name the command was submitted under.
func (f *Fence) Label() string {
	return f.label
}

// Done returns a channel closed when the command has completed.
func (f *Fence) Done() <-chan struct{} {
	return f.done
}

// Ready reports without blocking whether the command has completed.
func (f *Fence) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the command output, or ErrFencePending if it has not completed.
func (f *Fence) Result() (*video.Frame, error) {
	if !f.Ready() {
		return nil, ErrFencePending
	}
	return f.frame, f.err
}

// Wait blocks until the command completes or ctx is done.
func (f *Fence) Wait(ctx context.Context) (*video.Frame, error) {
	select {
	case <-f.done:
		return f.frame, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type command struct {
	fn    func() (*video.Frame, error)
	fence *Fence
}

// Context is an explicitly owned CPU render device.
//
// Commands submitted to a Context run one at a time, in submission order, on
// its queue goroutine; each command may split its pixel work across the worker
// goroutines through RunRows. A Context is created once per session and closed
// when the session ends.
type Context struct {
	workers int

	mu     sync.RWMutex
	closed bool
	queue  chan command
	wg     sync.WaitGroup

	submitted atomic.Uint64
	completed atomic.Uint64
}

// NewContext creates a render context and starts its command queue.
func NewContext(opts Options) (*Context, error) {
	logrus.WithFields(logrus.Fields{
		"function":    "NewContext",
		"workers":     opts.Workers,
		"queue_depth": opts.QueueDepth,
	}).Debug("Creating render context")

	if opts.Workers < 1 {
		return nil, fmt.Errorf("%w: %d workers", ErrDeviceUnavailable, opts.Workers)
	}
	if opts.QueueDepth < 1 {
		opts.QueueDepth = 1
	}

	c := &Context{
		workers: opts.Workers,
		queue:   make(chan command, opts.QueueDepth),
	}
	c.wg.Add(1)
	go c.run()

	logrus.WithFields(logrus.Fields{
		"function": "NewContext",
		"workers":  c.workers,
	}).Info("Render context created")

	return c, nil
}

func (c *Context) run() {
	defer c.wg.Done()
	for cmd := range c.queue {
		frame, err := execute(cmd)
		c.completed.Add(1)
		cmd.fence.signal(frame, err)
	}
}

func execute(cmd command) (frame *video.Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			frame = nil
			err = fmt.Errorf("command %s panicked: %v", cmd.fence.label, r)
		}
	}()
	return cmd.fn()
}

// Submit queues fn and returns its fence without waiting for it to run.
//
// Submit blocks only while the queue is full. After Close the returned fence
// has already failed with ErrContextClosed.
func (c *Context) Submit(label string, fn func() (*video.Frame, error)) *Fence {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return failedFence(label, ErrContextClosed)
	}

	f := newFence(label)
	c.submitted.Add(1)
	c.queue <- command{fn: fn, fence: f}
	return f
}

// RunRows splits rows into one contiguous band per worker and runs the bands
// concurrently, returning once all have finished.
func (c *Context) RunRows(rows int, fn func(y0, y1 int)) {
	if rows <= 0 {
		return
	}
	bands := c.workers
	if bands > rows {
		bands = rows
	}
	if bands == 1 {
		fn(0, rows)
		return
	}

	var wg sync.WaitGroup
	step := (rows + bands - 1) / bands
	for y0 := 0; y0 < rows; y0 += step {
		y1 := y0 + step
		if y1 > rows {
			y1 = rows
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			fn(y0, y1)
		}(y0, y1)
	}
	wg.Wait()
}

// Workers returns the number of pixel workers.
func (c *Context) Workers() int {
	return c.workers
}

// Stats returns the number of submitted and completed commands.
func (c *Context) Stats() (submitted, completed uint64) {
	return c.submitted.Load(), c.completed.Load()
}

// Close drains queued commands and stops the queue goroutine.
// Closing twice is a no-op.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.queue)
	c.mu.Unlock()

	c.wg.Wait()

	submitted, completed := c.Stats()
	logrus.WithFields(logrus.Fields{
		"function":  "Context.Close",
		"submitted": submitted,
		"completed": completed,
	}).Info("Render context closed")

	return nil
}

var _ video.RowRunner = (*Context)(nil)
