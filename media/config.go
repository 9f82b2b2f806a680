package media

import (
	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/video"
)

// Default media settings.
const (
	DefaultFrameRate  = 30.0
	DefaultQueueDepth = 4
)

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() interfaces.MediaConfig {
	return interfaces.MediaConfig{
		FrameSize:  video.Size{Width: 1280, Height: 720},
		FrameRate:  DefaultFrameRate,
		QueueDepth: DefaultQueueDepth,
	}
}

func frameInterval(cfg interfaces.MediaConfig) float64 {
	if cfg.FrameRate <= 0 {
		return 1 / DefaultFrameRate
	}
	return 1 / cfg.FrameRate
}

func queueDepth(cfg interfaces.MediaConfig) int {
	if cfg.QueueDepth < 1 {
		return DefaultQueueDepth
	}
	return cfg.QueueDepth
}
