package media

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/opd-ai/crossfade/interfaces"
)

// DecoderFunc opens a container file as a frame source.
type DecoderFunc func(path string, cfg interfaces.MediaConfig) (interfaces.FrameSource, error)

var (
	decoderMu sync.RWMutex
	decoder   DecoderFunc
)

// RegisterDecoder installs the decoder used by OpenDecoder. Builds with the
// gst tag register the GStreamer decoder at init.
func RegisterDecoder(fn DecoderFunc) {
	decoderMu.Lock()
	defer decoderMu.Unlock()
	decoder = fn
}

// HasDecoder reports whether a container decoder is available.
func HasDecoder() bool {
	decoderMu.RLock()
	defer decoderMu.RUnlock()
	return decoder != nil
}

// OpenDecoder opens a container file with the registered decoder.
func OpenDecoder(path string, cfg interfaces.MediaConfig) (interfaces.FrameSource, error) {
	decoderMu.RLock()
	fn := decoder
	decoderMu.RUnlock()

	if fn == nil {
		return nil, fmt.Errorf("%w: %s (rebuild with -tags gst)", ErrUnsupported, filepath.Ext(path))
	}
	return fn(path, cfg)
}
