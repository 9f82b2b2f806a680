package media

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/opd-ai/crossfade/limits"
	"github.com/opd-ai/crossfade/video"
	"github.com/vmihailenco/msgpack/v5"
)

// StreamExtension is the file extension of frame stream files.
const StreamExtension = ".cfs"

const (
	streamMagic   = "crossfade-stream"
	streamVersion = 1

	// maxRecordSize bounds a single record: one maximal BGRA frame plus slack.
	maxRecordSize = limits.MaxCanvasDimension*limits.MaxCanvasDimension*video.BytesPerPixel + 4096
)

// A frame stream is a header record followed by one record per frame. Each
// record is a big-endian uint32 length and a msgpack payload.
type streamHeader struct {
	Magic     string  `msgpack:"magic"`
	Version   int     `msgpack:"version"`
	FrameRate float64 `msgpack:"frame_rate"`
}

type streamFrame struct {
	PTS    float64 `msgpack:"pts"`
	Width  int     `msgpack:"width"`
	Height int     `msgpack:"height"`
	Format uint8   `msgpack:"format"`
	Pix    []byte  `msgpack:"pix"`
}

// streamTimestamp decodes only the timestamp of a frame record.
type streamTimestamp struct {
	PTS float64 `msgpack:"pts"`
}

func newStreamFrame(frame *video.Frame, pts float64) streamFrame {
	rowLen := frame.Width * video.BytesPerPixel
	pix := make([]byte, rowLen*frame.Height)
	for y := 0; y < frame.Height; y++ {
		copy(pix[y*rowLen:(y+1)*rowLen], frame.Pix[y*frame.Stride:])
	}
	return streamFrame{
		PTS:    pts,
		Width:  frame.Width,
		Height: frame.Height,
		Format: uint8(frame.Format),
		Pix:    pix,
	}
}

func (r streamFrame) toFrame() (*video.Frame, error) {
	f := &video.Frame{
		Width:  r.Width,
		Height: r.Height,
		Stride: r.Width * video.BytesPerPixel,
		Format: video.PixelFormat(r.Format),
		Pix:    r.Pix,
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadStream, err)
	}
	return f.WithTimestamp(r.PTS), nil
}

func writeRecord(w io.Writer, v interface{}) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// readRecord returns io.EOF only at a record boundary.
func readRecord(r *bufio.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: truncated record length", ErrBadStream)
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if n == 0 || n > maxRecordSize {
		return nil, fmt.Errorf("%w: record length %d", ErrBadStream, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: truncated record", ErrBadStream)
	}
	return payload, nil
}

func readHeader(r *bufio.Reader) (streamHeader, error) {
	var h streamHeader
	payload, err := readRecord(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return h, fmt.Errorf("%w: empty file", ErrBadStream)
		}
		return h, err
	}
	if err := msgpack.Unmarshal(payload, &h); err != nil {
		return h, fmt.Errorf("%w: header: %w", ErrBadStream, err)
	}
	if h.Magic != streamMagic {
		return h, fmt.Errorf("%w: not a frame stream", ErrBadStream)
	}
	if h.Version != streamVersion {
		return h, fmt.Errorf("%w: version %d", ErrBadStream, h.Version)
	}
	if h.FrameRate <= 0 {
		return h, fmt.Errorf("%w: frame rate %.2f", ErrBadStream, h.FrameRate)
	}
	return h, nil
}
