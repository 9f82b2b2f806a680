// Package config loads crossfade settings from defaults, an optional YAML
// file, CROSSFADE_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/kernel"
	"github.com/opd-ai/crossfade/limits"
	"github.com/opd-ai/crossfade/video"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. CROSSFADE_OVERLAP_DURATION.
const EnvPrefix = "CROSSFADE"

// Configuration keys.
const (
	KeyOverlapDuration    = "overlap_duration"
	KeyMaxOverlapDuration = "max_overlap_duration"
	KeyFitPolicy          = "fit_policy"
	KeyCanvasWidth        = "canvas.width"
	KeyCanvasHeight       = "canvas.height"
	KeyMaxBlurRadius      = "max_blur_radius"
	KeyBlurTableSteps     = "blur_table_steps"
	KeyKernelCachePath    = "kernel_cache_path"
	KeyOutputDir          = "output_dir"
	KeyFrameRate          = "frame_rate"
	KeyRenderWorkers      = "render_workers"
	KeyQueueDepth         = "queue_depth"
	KeyLogLevel           = "log_level"
)

// Canvas is the output size in pixels.
type Canvas struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// Config is the effective configuration of a crossfade run.
type Config struct {
	OverlapDuration    float64 `mapstructure:"overlap_duration" yaml:"overlap_duration"`
	MaxOverlapDuration float64 `mapstructure:"max_overlap_duration" yaml:"max_overlap_duration"`
	FitPolicy          string  `mapstructure:"fit_policy" yaml:"fit_policy"`
	Canvas             Canvas  `mapstructure:"canvas" yaml:"canvas"`
	MaxBlurRadius      float64 `mapstructure:"max_blur_radius" yaml:"max_blur_radius"`
	BlurTableSteps     int     `mapstructure:"blur_table_steps" yaml:"blur_table_steps"`
	KernelCachePath    string  `mapstructure:"kernel_cache_path" yaml:"kernel_cache_path"`
	OutputDir          string  `mapstructure:"output_dir" yaml:"output_dir"`
	FrameRate          float64 `mapstructure:"frame_rate" yaml:"frame_rate"`
	RenderWorkers      int     `mapstructure:"render_workers" yaml:"render_workers"`
	QueueDepth         int     `mapstructure:"queue_depth" yaml:"queue_depth"`
	LogLevel           string  `mapstructure:"log_level" yaml:"log_level"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	cachePath, err := kernel.DefaultPath()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "SetDefaults",
			"error":    err.Error(),
		}).Warn("No user cache directory, kernel table will not be persisted")
		cachePath = ""
	}

	v.SetDefault(KeyOverlapDuration, limits.DefaultOverlapDuration)
	v.SetDefault(KeyMaxOverlapDuration, limits.DefaultMaxOverlapDuration)
	v.SetDefault(KeyFitPolicy, video.FitPolicyFit.String())
	v.SetDefault(KeyCanvasWidth, 1280)
	v.SetDefault(KeyCanvasHeight, 720)
	v.SetDefault(KeyMaxBlurRadius, limits.DefaultMaxBlurRadius)
	v.SetDefault(KeyBlurTableSteps, limits.DefaultBlurTableSteps)
	v.SetDefault(KeyKernelCachePath, cachePath)
	v.SetDefault(KeyOutputDir, filepath.Join(os.TempDir(), "crossfade"))
	v.SetDefault(KeyFrameRate, 60.0)
	v.SetDefault(KeyRenderWorkers, runtime.GOMAXPROCS(0))
	v.SetDefault(KeyQueueDepth, 4)
	v.SetDefault(KeyLogLevel, logrus.InfoLevel.String())
}

// NewViper returns a viper instance with defaults and environment overrides
// registered.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration file at path, or crossfade.yaml from the
// working directory or $HOME/.config/crossfade when path is empty, and
// returns the validated result. A missing default file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("crossfade")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "crossfade"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.OverlapDuration = limits.RoundOverlap(cfg.OverlapDuration)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Load",
		"config_file": v.ConfigFileUsed(),
		"overlap":     cfg.OverlapDuration,
		"canvas":      cfg.CanvasSize().String(),
		"fit_policy":  cfg.FitPolicy,
		"frame_rate":  cfg.FrameRate,
	}).Debug("Configuration loaded")

	return &cfg, nil
}

// Validate checks every value against limits.
func (c *Config) Validate() error {
	if err := limits.ValidateOverlapDuration(c.OverlapDuration, c.MaxOverlapDuration); err != nil {
		return err
	}
	if _, err := video.ParseFitPolicy(c.FitPolicy); err != nil {
		return err
	}
	if err := limits.ValidateCanvas(c.Canvas.Width, c.Canvas.Height); err != nil {
		return err
	}
	if err := limits.ValidateKernelParams(c.MaxBlurRadius, c.BlurTableSteps); err != nil {
		return err
	}
	if err := limits.ValidateFrameRate(c.FrameRate); err != nil {
		return err
	}
	if c.RenderWorkers < 1 {
		return fmt.Errorf("render_workers must be at least 1, got %d", c.RenderWorkers)
	}
	if c.QueueDepth < 1 {
		return fmt.Errorf("%w: %d", interfaces.ErrInvalidQueueDepth, c.QueueDepth)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Policy returns the parsed fit policy.
func (c *Config) Policy() video.FitPolicy {
	p, err := video.ParseFitPolicy(c.FitPolicy)
	if err != nil {
		return video.FitPolicyFit
	}
	return p
}

// CanvasSize returns the canvas as a video.Size.
func (c *Config) CanvasSize() video.Size {
	return video.Size{Width: c.Canvas.Width, Height: c.Canvas.Height}
}

// KernelParams returns the blur table generation parameters.
func (c *Config) KernelParams() kernel.Params {
	return kernel.Params{MaxRadius: float32(c.MaxBlurRadius), Steps: c.BlurTableSteps}
}

// MediaConfig returns the settings handed to sources and sinks.
func (c *Config) MediaConfig() interfaces.MediaConfig {
	return interfaces.MediaConfig{
		FrameSize:  c.CanvasSize(),
		FrameRate:  c.FrameRate,
		QueueDepth: c.QueueDepth,
	}
}

// YAML renders the configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Write saves the configuration as YAML at path.
func (c *Config) Write(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ConfigureLogging sets the global logrus level and formatter.
func ConfigureLogging(level string, json bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	if json {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
