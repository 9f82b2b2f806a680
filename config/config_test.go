package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/limits"
	"github.com/opd-ai/crossfade/video"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty working and home directory so no
// crossfade.yaml on the machine is picked up.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, 3.0, cfg.OverlapDuration)
	assert.Equal(t, 10.0, cfg.MaxOverlapDuration)
	assert.Equal(t, video.FitPolicyFit, cfg.Policy())
	assert.Equal(t, video.Size{Width: 1280, Height: 720}, cfg.CanvasSize())
	assert.Equal(t, float32(14), cfg.KernelParams().MaxRadius)
	assert.Equal(t, 600, cfg.KernelParams().Steps)
	assert.Equal(t, 60.0, cfg.FrameRate)
	assert.GreaterOrEqual(t, cfg.RenderWorkers, 1)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
overlap_duration: 4.567
fit_policy: fill
canvas:
  width: 640
  height: 360
`), 0o644))

	t.Setenv("CROSSFADE_CANVAS_HEIGHT", "480")
	t.Setenv("CROSSFADE_FRAME_RATE", "25")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, 4.57, cfg.OverlapDuration, "overlap is rounded to two decimals")
	assert.Equal(t, video.FitPolicyFill, cfg.Policy())
	assert.Equal(t, 640, cfg.Canvas.Width)
	assert.Equal(t, 480, cfg.Canvas.Height, "environment overrides the file")
	assert.Equal(t, 25.0, cfg.FrameRate)

	media := cfg.MediaConfig()
	assert.Equal(t, video.Size{Width: 640, Height: 480}, media.FrameSize)
	assert.NoError(t, media.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit file must exist")

	t.Setenv("CROSSFADE_OVERLAP_DURATION", "12")
	isolate(t)
	_, err = Load(NewViper(), "")
	assert.ErrorIs(t, err, limits.ErrOverlapOutOfRange)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			OverlapDuration:    3,
			MaxOverlapDuration: 10,
			FitPolicy:          "fit",
			Canvas:             Canvas{Width: 1280, Height: 720},
			MaxBlurRadius:      14,
			BlurTableSteps:     600,
			FrameRate:          60,
			RenderWorkers:      2,
			QueueDepth:         4,
			LogLevel:           "debug",
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "negative overlap", mutate: func(c *Config) { c.OverlapDuration = -1 }, wantErr: limits.ErrOverlapOutOfRange},
		{name: "overlap above max", mutate: func(c *Config) { c.MaxOverlapDuration = 2 }, wantErr: limits.ErrOverlapOutOfRange},
		{name: "fit policy", mutate: func(c *Config) { c.FitPolicy = "zoom" }, wantErr: limits.ErrInvalidFitPolicy},
		{name: "canvas", mutate: func(c *Config) { c.Canvas.Width = 0 }, wantErr: limits.ErrInvalidCanvas},
		{name: "kernel steps", mutate: func(c *Config) { c.BlurTableSteps = 0 }, wantErr: limits.ErrInvalidKernelParams},
		{name: "frame rate", mutate: func(c *Config) { c.FrameRate = 0 }, wantErr: limits.ErrInvalidFrameRate},
		{name: "queue depth", mutate: func(c *Config) { c.QueueDepth = 0 }, wantErr: interfaces.ErrInvalidQueueDepth},
		{name: "workers", mutate: func(c *Config) { c.RenderWorkers = 0 }},
		{name: "log level", mutate: func(c *Config) { c.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestConfig_WriteRoundTrip(t *testing.T) {
	isolate(t)
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	cfg.OverlapDuration = 5.5
	cfg.Canvas = Canvas{Width: 320, Height: 240}

	path := filepath.Join(t.TempDir(), "nested", "crossfade.yaml")
	require.NoError(t, cfg.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "overlap_duration: 5.5")
	assert.Contains(t, string(data), "width: 320")

	back, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestConfigureLogging(t *testing.T) {
	saved := logrus.GetLevel()
	t.Cleanup(func() {
		logrus.SetLevel(saved)
		logrus.SetFormatter(&logrus.TextFormatter{})
	})

	require.NoError(t, ConfigureLogging("warn", true))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	assert.Error(t, ConfigureLogging("loud", false))
}
