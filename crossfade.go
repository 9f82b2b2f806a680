package crossfade

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/opd-ai/crossfade/config"
	"github.com/opd-ai/crossfade/driver"
	"github.com/opd-ai/crossfade/factory"
	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/kernel"
	"github.com/opd-ai/crossfade/media"
	"github.com/opd-ai/crossfade/render"
	"github.com/sirupsen/logrus"
)

// ErrStudioClosed is returned by sessions started after Close.
var ErrStudioClosed = errors.New("studio is closed")

// Options contains configuration options for creating a Studio.
type Options struct {
	// Config is the validated configuration. Nil loads the defaults, the
	// optional crossfade.yaml and CROSSFADE_* environment overrides.
	Config *config.Config

	// Factory builds sources, players and sinks. Nil creates one from Config.
	Factory *factory.MediaFactory

	// TimeProvider drives preview ticks and session statistics. Nil uses the
	// system clock.
	TimeProvider driver.TimeProvider

	// CPUProfile receives a pprof CPU profile of every session when set.
	CPUProfile io.Writer
}

// NewOptions returns options that load the default configuration.
func NewOptions() *Options {
	return &Options{}
}

// Studio runs preview and export sessions over a shared kernel table.
//
// Every session creates its own render context and tears it down when it
// ends, so a Studio holds no goroutines between sessions.
type Studio struct {
	cfg          config.Config
	factory      *factory.MediaFactory
	table        *kernel.Table
	origin       kernel.Origin
	timeProvider driver.TimeProvider
	cpuProfile   io.Writer

	mu     sync.Mutex
	closed bool
}

// New creates a Studio, loading or generating the blur kernel table.
func New(options *Options) (*Studio, error) {
	if options == nil {
		options = NewOptions()
	}

	cfg := options.Config
	if cfg == nil {
		loaded, err := config.Load(config.NewViper(), "")
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f := options.Factory
	if f == nil {
		f = factory.NewMediaFactoryWithConfig(cfg.MediaConfig())
	}

	table, origin, err := LoadKernels(cfg, false)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":     "New",
		"overlap":      cfg.OverlapDuration,
		"canvas":       cfg.CanvasSize().String(),
		"fit_policy":   cfg.FitPolicy,
		"kernel_steps": table.Len(),
		"kernel_from":  origin.String(),
	}).Info("Created crossfade studio")

	return &Studio{
		cfg:          *cfg,
		factory:      f,
		table:        table,
		origin:       origin,
		timeProvider: options.TimeProvider,
		cpuProfile:   options.CPUProfile,
	}, nil
}

// LoadKernels returns the blur kernel table for cfg. With force set, the
// persisted blob is discarded first so the table is regenerated.
func LoadKernels(cfg *config.Config, force bool) (*kernel.Table, kernel.Origin, error) {
	cache := kernel.NewCache(cfg.KernelCachePath)
	if force && cache.Path() != "" {
		if err := os.Remove(cache.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, kernel.OriginGenerated, fmt.Errorf("discard kernel cache: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "LoadKernels",
			"path":     cache.Path(),
		}).Info("Discarded persisted kernel table")
	}
	return cache.GenerateOrLoad(cfg.KernelParams())
}

// Config returns a copy of the effective configuration.
func (s *Studio) Config() config.Config {
	return s.cfg
}

// KernelTable returns the blur kernel table and where it came from.
func (s *Studio) KernelTable() (*kernel.Table, kernel.Origin) {
	return s.table, s.origin
}

// Factory returns the media factory used by sessions.
func (s *Studio) Factory() *factory.MediaFactory {
	return s.factory
}

// Close marks the studio closed. Sessions already running finish normally.
func (s *Studio) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	logrus.WithFields(logrus.Fields{
		"function": "Studio.Close",
	}).Debug("Studio closed")
	return nil
}

func (s *Studio) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStudioClosed
	}
	return nil
}

// newPipeline creates the render context and processor for one session.
// The caller closes the context.
func (s *Studio) newPipeline() (*render.Processor, *render.Context, error) {
	rc, err := render.NewContext(render.Options{
		Workers:    s.cfg.RenderWorkers,
		QueueDepth: s.cfg.QueueDepth,
	})
	if err != nil {
		return nil, nil, err
	}

	proc, err := render.NewProcessor(rc, s.table, s.cfg.CanvasSize(), s.cfg.Policy())
	if err != nil {
		rc.Close()
		return nil, nil, err
	}
	return proc, rc, nil
}

func (s *Studio) startProfiling(pm *driver.PerformanceMonitor) error {
	if s.cpuProfile == nil {
		return nil
	}
	return pm.StartCPUProfiling(s.cpuProfile)
}

// PreviewRequest describes a preview session.
type PreviewRequest struct {
	// First and Second are source paths understood by the factory
	First  string
	Second string
	// Start selects the stream playback begins with
	Start driver.StartStream
	// Display receives composited frames; nil keeps only the last frame
	Display interfaces.Display
}

// Preview plays both streams in real time and presents the composited frames.
// It returns when the second stream ends, the session fails or ctx is done.
func (s *Studio) Preview(ctx context.Context, req PreviewRequest) (driver.Stats, error) {
	if err := s.checkOpen(); err != nil {
		return driver.Stats{}, err
	}

	first, err := s.factory.OpenPlayer(req.First)
	if err != nil {
		return driver.Stats{}, fmt.Errorf("open first stream: %w", err)
	}
	defer first.Close()

	second, err := s.factory.OpenPlayer(req.Second)
	if err != nil {
		return driver.Stats{}, fmt.Errorf("open second stream: %w", err)
	}
	defer second.Close()

	display := req.Display
	if display == nil {
		display = media.NewSnapshotDisplay(s.cfg.CanvasSize())
	}

	proc, rc, err := s.newPipeline()
	if err != nil {
		return driver.Stats{}, err
	}
	defer rc.Close()

	d, err := driver.NewPlaybackDriver(proc, first, second, display, driver.PlaybackConfig{
		Overlap:   s.cfg.OverlapDuration,
		FrameRate: s.cfg.FrameRate,
		Start:     req.Start,
	})
	if err != nil {
		return driver.Stats{}, err
	}
	d.SetTimeProvider(s.timeProvider)

	logrus.WithFields(logrus.Fields{
		"function":   "Studio.Preview",
		"session_id": d.SessionID(),
		"first":      req.First,
		"second":     req.Second,
	}).Info("Starting preview")

	if err := s.startProfiling(d.Performance()); err != nil {
		return driver.Stats{}, err
	}
	defer d.Performance().StopCPUProfiling()

	return d.Run(ctx)
}

// ExportRequest describes an export session.
type ExportRequest struct {
	// First and Second are source paths understood by the factory
	First  string
	Second string
	// Out is the output path; empty names a new export in the output directory
	Out string
	// Format selects the output container
	Format factory.Format
}

// ExportResult describes a finished export.
type ExportResult struct {
	Path   string
	Format factory.Format
	Stats  driver.Stats
}

type aborter interface {
	Abort() error
}

// Export composites both streams into a new output. A failed export leaves
// no partial output behind.
func (s *Studio) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	first, err := s.factory.OpenSource(req.First)
	if err != nil {
		return nil, fmt.Errorf("open first stream: %w", err)
	}
	defer first.Close()

	second, err := s.factory.OpenSource(req.Second)
	if err != nil {
		return nil, fmt.Errorf("open second stream: %w", err)
	}
	defer second.Close()

	path := req.Out
	if path == "" {
		path, err = NextExportPath(s.cfg.OutputDir, req.Format, s.now())
		if err != nil {
			return nil, err
		}
	}

	sink, err := s.factory.CreateSink(path, req.Format)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}

	proc, rc, err := s.newPipeline()
	if err != nil {
		discard(sink, path)
		return nil, err
	}
	defer rc.Close()

	d, err := driver.NewExportDriver(proc, first, second, sink, driver.ExportConfig{
		Overlap:   s.cfg.OverlapDuration,
		FrameRate: s.cfg.FrameRate,
	})
	if err != nil {
		discard(sink, path)
		return nil, err
	}
	d.SetTimeProvider(s.timeProvider)

	logrus.WithFields(logrus.Fields{
		"function":   "Studio.Export",
		"session_id": d.SessionID(),
		"first":      req.First,
		"second":     req.Second,
		"output":     path,
		"format":     req.Format.String(),
	}).Info("Starting export")

	if err := s.startProfiling(d.Performance()); err != nil {
		discard(sink, path)
		return nil, err
	}
	stats, err := d.Run(ctx)
	d.Performance().StopCPUProfiling()
	if err != nil {
		discard(sink, path)
		return nil, err
	}

	return &ExportResult{Path: path, Format: req.Format, Stats: stats}, nil
}

// discard aborts a sink and removes whatever it wrote.
func discard(sink interfaces.FrameSink, path string) {
	a, ok := sink.(aborter)
	if !ok {
		return
	}
	if err := a.Abort(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "discard",
			"path":     path,
			"error":    err.Error(),
		}).Warn("Failed to abort output")
	}
	if err := os.RemoveAll(path); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "discard",
			"path":     path,
			"error":    err.Error(),
		}).Warn("Failed to remove partial output")
	}
}
