package media

import "errors"

var (
	// ErrNoFrames indicates a source with nothing to decode.
	ErrNoFrames = errors.New("source contains no frames")

	// ErrBadStream indicates a malformed frame stream file.
	ErrBadStream = errors.New("malformed frame stream")

	// ErrUnsupported indicates a media type this build cannot decode.
	ErrUnsupported = errors.New("unsupported media type")

	// ErrClosed indicates use of a source, sink or player after Close.
	ErrClosed = errors.New("media closed")
)
