package factory

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/limits"
	"github.com/opd-ai/crossfade/media"
	"github.com/opd-ai/crossfade/testing"
	"github.com/sirupsen/logrus"
)

// Validation constants for configuration bounds checking.
const (
	// MinQueueDepth is the smallest sink or player queue.
	MinQueueDepth = 1
	// MaxQueueDepth is the largest sink or player queue.
	MaxQueueDepth = 64

	// SimulationPrefix marks a synthetic source path.
	SimulationPrefix = "sim:"

	// defaultSimulatedSeconds is the length of a simulated source without one.
	defaultSimulatedSeconds = 5.0
)

// Format selects the on-disk export format.
type Format int

const (
	// FormatStream writes a single .cfs frame stream file.
	FormatStream Format = iota
	// FormatPNG writes a directory of PNG files with a manifest.
	FormatPNG
)

func (f Format) String() string {
	switch f {
	case FormatStream:
		return "stream"
	case FormatPNG:
		return "png"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat parses "stream" or "png".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stream", "cfs":
		return FormatStream, nil
	case "png":
		return FormatPNG, nil
	default:
		return 0, fmt.Errorf("unknown export format %q", s)
	}
}

// MediaFactory creates media implementations based on configuration.
// It is safe for concurrent use; all methods are protected by an internal mutex.
type MediaFactory struct {
	mu            sync.RWMutex
	defaultConfig *interfaces.MediaConfig
}

// NewMediaFactory creates a new factory with default configuration and
// CROSSFADE_* environment overrides applied.
func NewMediaFactory() *MediaFactory {
	defaultConfig := createDefaultConfig()
	applyEnvironmentOverrides(defaultConfig)
	logConfigurationInfo(defaultConfig)

	return &MediaFactory{
		defaultConfig: defaultConfig,
	}
}

// NewMediaFactoryWithConfig creates a factory from an explicit configuration,
// typically the one loaded by the config package. Environment overrides still
// apply on top of it.
func NewMediaFactoryWithConfig(cfg interfaces.MediaConfig) *MediaFactory {
	c := cfg
	applyEnvironmentOverrides(&c)
	logConfigurationInfo(&c)
	return &MediaFactory{defaultConfig: &c}
}

// createDefaultConfig initializes the default media configuration.
func createDefaultConfig() *interfaces.MediaConfig {
	cfg := media.DefaultConfig()
	return &cfg
}

// applyEnvironmentOverrides updates configuration based on environment variables.
// It checks for CROSSFADE_* environment variables and overrides values if valid ones are found.
func applyEnvironmentOverrides(config *interfaces.MediaConfig) {
	parseSimulationSetting(config)
	parseFrameRateSetting(config)
	parseQueueDepthSetting(config)
}

// parseSimulationSetting updates UseSimulation from CROSSFADE_USE_SIMULATION.
func parseSimulationSetting(config *interfaces.MediaConfig) {
	if useSimStr := os.Getenv("CROSSFADE_USE_SIMULATION"); useSimStr != "" {
		useSim, err := strconv.ParseBool(useSimStr)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":    "parseSimulationSetting",
				"env_var":     "CROSSFADE_USE_SIMULATION",
				"value":       useSimStr,
				"error":       err.Error(),
				"using_value": config.UseSimulation,
			}).Warn("Failed to parse CROSSFADE_USE_SIMULATION environment variable, using default")
			return
		}
		config.UseSimulation = useSim
	}
}

// parseFrameRateSetting updates FrameRate from CROSSFADE_FRAME_RATE. Only
// values accepted by limits.ValidateFrameRate are applied.
func parseFrameRateSetting(config *interfaces.MediaConfig) {
	if rateStr := os.Getenv("CROSSFADE_FRAME_RATE"); rateStr != "" {
		rate, err := strconv.ParseFloat(rateStr, 64)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":    "parseFrameRateSetting",
				"env_var":     "CROSSFADE_FRAME_RATE",
				"value":       rateStr,
				"error":       err.Error(),
				"using_value": config.FrameRate,
			}).Warn("Failed to parse CROSSFADE_FRAME_RATE environment variable, using default")
			return
		}
		if err := limits.ValidateFrameRate(rate); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":    "parseFrameRateSetting",
				"env_var":     "CROSSFADE_FRAME_RATE",
				"value":       rate,
				"max":         limits.MaxFrameRate,
				"using_value": config.FrameRate,
			}).Warn("CROSSFADE_FRAME_RATE value out of bounds, using default")
			return
		}
		config.FrameRate = rate
	}
}

// parseQueueDepthSetting updates QueueDepth from CROSSFADE_QUEUE_DEPTH within
// [MinQueueDepth, MaxQueueDepth].
func parseQueueDepthSetting(config *interfaces.MediaConfig) {
	if depthStr := os.Getenv("CROSSFADE_QUEUE_DEPTH"); depthStr != "" {
		depth, err := strconv.Atoi(depthStr)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":    "parseQueueDepthSetting",
				"env_var":     "CROSSFADE_QUEUE_DEPTH",
				"value":       depthStr,
				"error":       err.Error(),
				"using_value": config.QueueDepth,
			}).Warn("Failed to parse CROSSFADE_QUEUE_DEPTH environment variable, using default")
			return
		}
		if depth < MinQueueDepth || depth > MaxQueueDepth {
			logrus.WithFields(logrus.Fields{
				"function":    "parseQueueDepthSetting",
				"env_var":     "CROSSFADE_QUEUE_DEPTH",
				"value":       depth,
				"min":         MinQueueDepth,
				"max":         MaxQueueDepth,
				"using_value": config.QueueDepth,
			}).Warn("CROSSFADE_QUEUE_DEPTH value out of bounds, using default")
			return
		}
		config.QueueDepth = depth
	}
}

// logConfigurationInfo logs the final configuration settings for debugging purposes.
func logConfigurationInfo(config *interfaces.MediaConfig) {
	logrus.WithFields(logrus.Fields{
		"function":       "NewMediaFactory",
		"use_simulation": config.UseSimulation,
		"frame_rate":     config.FrameRate,
		"queue_depth":    config.QueueDepth,
		"frame_size":     config.FrameSize.String(),
	}).Info("Created media factory with configuration")
}

// OpenSource opens the frame source named by path.
func (f *MediaFactory) OpenSource(path string) (interfaces.FrameSource, error) {
	config := f.GetCurrentConfig()

	if config.UseSimulation || strings.HasPrefix(path, SimulationPrefix) {
		streamCfg, err := simulatedStream(path, config)
		if err != nil {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{
			"function": "OpenSource",
			"path":     path,
			"type":     "simulation",
			"frames":   streamCfg.Frames,
		}).Info("Creating simulated frame source")
		return testing.NewSimulatedSource(streamCfg), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var kind string
	var src interfaces.FrameSource
	switch {
	case info.IsDir():
		kind = "png"
		src, err = media.OpenPNGSequence(path, *config)
	case strings.EqualFold(filepath.Ext(path), media.StreamExtension):
		kind = "stream"
		src, err = media.OpenFrameStream(path)
	default:
		kind = "decoder"
		src, err = media.OpenDecoder(path, *config)
	}
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "OpenSource",
		"path":     path,
		"type":     kind,
		"duration": src.Duration(),
	}).Info("Opened frame source")
	return src, nil
}

// OpenPlayer opens the source named by path behind a clocked player. Closing
// the player closes the source.
func (f *MediaFactory) OpenPlayer(path string) (*media.ClockedPlayer, error) {
	src, err := f.OpenSource(path)
	if err != nil {
		return nil, err
	}
	return media.NewClockedPlayer(src, *f.GetCurrentConfig()), nil
}

// CreateSink creates an export sink writing to path in the given format.
func (f *MediaFactory) CreateSink(path string, format Format) (interfaces.FrameSink, error) {
	config := f.GetCurrentConfig()

	logrus.WithFields(logrus.Fields{
		"function":       "CreateSink",
		"path":           path,
		"format":         format.String(),
		"use_simulation": config.UseSimulation,
	}).Info("Creating frame sink")

	if config.UseSimulation {
		return testing.NewSimulatedSink(testing.SinkConfig{Name: path}), nil
	}

	switch format {
	case FormatStream:
		sink, err := media.NewFrameStreamSink(path, *config)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case FormatPNG:
		sink, err := media.NewPNGSequenceSink(path, *config)
		if err != nil {
			return nil, err
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unknown export format %v", format)
	}
}

// simulatedStream parses "sim:<seconds>[:<gray level>]".
func simulatedStream(path string, config *interfaces.MediaConfig) (testing.StreamConfig, error) {
	seconds := defaultSimulatedSeconds
	level := uint64(128)

	args := strings.TrimPrefix(path, SimulationPrefix)
	if args != path && args != "" {
		parts := strings.SplitN(args, ":", 2)
		s, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || s <= 0 {
			return testing.StreamConfig{}, fmt.Errorf("invalid simulated source %q: length must be positive seconds", path)
		}
		seconds = s
		if len(parts) == 2 {
			level, err = strconv.ParseUint(parts[1], 10, 8)
			if err != nil {
				return testing.StreamConfig{}, fmt.Errorf("invalid simulated source %q: %w", path, err)
			}
		}
	}

	g := byte(level)
	return testing.StreamConfig{
		Name:     path,
		Frames:   int(math.Round(seconds * config.FrameRate)),
		Interval: 1 / config.FrameRate,
		Size:     config.FrameSize,
		Color:    [4]byte{g, g, g, 255},
	}, nil
}

// SwitchToSimulation switches the configuration to use simulation
func (f *MediaFactory) SwitchToSimulation() {
	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "SwitchToSimulation",
		"previous": f.defaultConfig.UseSimulation,
	}).Info("Switching factory to simulation mode")

	f.defaultConfig.UseSimulation = true
}

// SwitchToReal switches the configuration to use on-disk media
func (f *MediaFactory) SwitchToReal() {
	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "SwitchToReal",
		"previous": f.defaultConfig.UseSimulation,
	}).Info("Switching factory to real mode")

	f.defaultConfig.UseSimulation = false
}

// GetCurrentConfig returns a copy of the current default configuration
func (f *MediaFactory) GetCurrentConfig() *interfaces.MediaConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()

	c := *f.defaultConfig
	return &c
}

// IsUsingSimulation returns true if the factory is configured for simulation
func (f *MediaFactory) IsUsingSimulation() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.defaultConfig.UseSimulation
}

// UpdateConfig validates and stores a copy of config as the factory default.
func (f *MediaFactory) UpdateConfig(config *interfaces.MediaConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":       "UpdateConfig",
		"old_simulation": f.defaultConfig.UseSimulation,
		"new_simulation": config.UseSimulation,
		"old_frame_rate": f.defaultConfig.FrameRate,
		"new_frame_rate": config.FrameRate,
	}).Info("Updating factory configuration")

	c := *config
	f.defaultConfig = &c
	return nil
}
