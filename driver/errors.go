package driver

import (
	"errors"
	"fmt"
)

// Sentinel errors for driver sessions.
// These errors enable reliable error classification using errors.Is().

// Session failure classes.
var (
	// ErrDecode indicates a frame source failed to produce a frame.
	ErrDecode = errors.New("decode failed")

	// ErrEncode indicates the frame sink rejected a frame or failed to finish.
	ErrEncode = errors.New("encode failed")

	// ErrRender indicates the scale or composite stage failed.
	ErrRender = errors.New("render failed")

	// ErrCancelled indicates the session was cancelled between frames.
	ErrCancelled = errors.New("session cancelled")
)

// Driver state errors.
var (
	// ErrAlreadyRunning indicates a driver was started twice.
	ErrAlreadyRunning = errors.New("driver is already running")

	// ErrSessionStopped indicates a tick was issued after the session ended.
	ErrSessionStopped = errors.New("session already stopped")
)

// SessionError is the single terminal failure of a preview or export session.
type SessionError struct {
	Session string // session ID
	Op      string // "decode", "encode", "render", "finish" or "cancel"
	Stream  string // "first", "second" or "output"
	Frame   int    // output frame index at the time of failure
	Err     error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s of %s stream failed at frame %d: %v", e.Op, e.Stream, e.Frame, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// classify wraps err with the sentinel for op unless it already carries one.
func classify(kind error, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
