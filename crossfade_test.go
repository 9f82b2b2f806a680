package crossfade

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opd-ai/crossfade/config"
	"github.com/opd-ai/crossfade/driver"
	"github.com/opd-ai/crossfade/factory"
	"github.com/opd-ai/crossfade/interfaces"
	"github.com/opd-ai/crossfade/kernel"
	"github.com/opd-ai/crossfade/limits"
	"github.com/opd-ai/crossfade/media"
	"github.com/opd-ai/crossfade/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	for _, key := range []string{"CROSSFADE_USE_SIMULATION", "CROSSFADE_FRAME_RATE", "CROSSFADE_QUEUE_DEPTH"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	return &config.Config{
		OverlapDuration:    0.5,
		MaxOverlapDuration: 10,
		FitPolicy:          "fit",
		Canvas:             config.Canvas{Width: 16, Height: 16},
		MaxBlurRadius:      4,
		BlurTableSteps:     41,
		KernelCachePath:    filepath.Join(dir, "cache", "weights"),
		OutputDir:          filepath.Join(dir, "exports"),
		FrameRate:          10,
		RenderWorkers:      2,
		QueueDepth:         2,
		LogLevel:           "info",
	}
}

func newTestStudio(t *testing.T, cfg *config.Config) *Studio {
	t.Helper()
	s, err := New(&Options{Config: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time                         { return c.now }
func (c fixedClock) NewTicker(d time.Duration) *time.Ticker { return time.NewTicker(d) }

func TestNew_PersistsKernelTable(t *testing.T) {
	cfg := testConfig(t)

	s := newTestStudio(t, cfg)
	table, origin := s.KernelTable()
	assert.Equal(t, kernel.OriginGenerated, origin)
	assert.Equal(t, 41, table.Len())
	assert.FileExists(t, cfg.KernelCachePath)

	again := newTestStudio(t, cfg)
	reloaded, origin := again.KernelTable()
	assert.Equal(t, kernel.OriginLoaded, origin)
	assert.True(t, table.Equal(reloaded))
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.OverlapDuration = 12

	_, err := New(&Options{Config: cfg})
	assert.ErrorIs(t, err, limits.ErrOverlapOutOfRange)
}

func TestLoadKernels_Force(t *testing.T) {
	cfg := testConfig(t)

	_, origin, err := LoadKernels(cfg, false)
	require.NoError(t, err)
	assert.Equal(t, kernel.OriginGenerated, origin)

	_, origin, err = LoadKernels(cfg, false)
	require.NoError(t, err)
	assert.Equal(t, kernel.OriginLoaded, origin)

	_, origin, err = LoadKernels(cfg, true)
	require.NoError(t, err)
	assert.Equal(t, kernel.OriginGenerated, origin)
}

func TestExport_CrossFadesIntoFrameStream(t *testing.T) {
	cfg := testConfig(t)
	s := newTestStudio(t, cfg)

	result, err := s.Export(context.Background(), ExportRequest{
		First:  "sim:1:0",
		Second: "sim:1:255",
		Format: factory.FormatStream,
	})
	require.NoError(t, err)

	assert.Equal(t, cfg.OutputDir, filepath.Dir(result.Path))
	assert.Equal(t, media.StreamExtension, filepath.Ext(result.Path))
	assert.Equal(t, 20, result.Stats.FramesSubmitted)
	assert.Equal(t, 10, result.Stats.FirstFrames)
	assert.Equal(t, 10, result.Stats.SecondFrames)

	src, err := media.OpenFrameStream(result.Path)
	require.NoError(t, err)
	defer src.Close()
	require.Equal(t, 20, src.FrameCount())
	assert.Equal(t, cfg.FrameRate, src.FrameRate())

	var frames []*video.Frame
	for {
		f, err := src.NextFrame(context.Background())
		if errors.Is(err, interfaces.ErrEndOfStream) {
			break
		}
		require.NoError(t, err)
		frames = append(frames, f)
	}
	require.Len(t, frames, 20)
	assert.Equal(t, [4]byte{0, 0, 0, 255}, frames[0].PixelAt(8, 8))
	assert.Equal(t, [4]byte{255, 255, 255, 255}, frames[19].PixelAt(8, 8))
	for i, f := range frames {
		assert.InDelta(t, float64(i)/cfg.FrameRate, f.Timestamp, 1e-9)
	}

	exports, err := ListExports(cfg.OutputDir)
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Equal(t, result.Path, exports[0].Path)
	assert.Equal(t, factory.FormatStream, exports[0].Format)
}

func TestExport_PNGSequence(t *testing.T) {
	cfg := testConfig(t)
	s := newTestStudio(t, cfg)

	out := filepath.Join(t.TempDir(), "frames")
	result, err := s.Export(context.Background(), ExportRequest{
		First:  "sim:0.5:0",
		Second: "sim:0.5:255",
		Out:    out,
		Format: factory.FormatPNG,
	})
	require.NoError(t, err)
	assert.Equal(t, out, result.Path)

	m, err := media.ReadManifest(out)
	require.NoError(t, err)
	assert.Len(t, m.Frames, result.Stats.FramesSubmitted)
}

func TestExport_CancelledLeavesNoOutput(t *testing.T) {
	cfg := testConfig(t)
	s := newTestStudio(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Export(ctx, ExportRequest{First: "sim:1", Second: "sim:1", Format: factory.FormatStream})
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrCancelled)

	var sessionErr *driver.SessionError
	require.True(t, errors.As(err, &sessionErr))
	assert.Equal(t, "cancel", sessionErr.Op)

	exports, err := ListExports(cfg.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, exports)
}

func TestExport_BadSource(t *testing.T) {
	cfg := testConfig(t)
	s := newTestStudio(t, cfg)

	_, err := s.Export(context.Background(), ExportRequest{First: "sim:1", Second: "sim:nope"})
	assert.ErrorContains(t, err, "open second stream")

	_, err = s.Export(context.Background(), ExportRequest{First: filepath.Join(t.TempDir(), "missing.cfs"), Second: "sim:1"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPreview_PlaysThroughToSecondStream(t *testing.T) {
	cfg := testConfig(t)
	cfg.FrameRate = 60
	cfg.OverlapDuration = 0.25
	s := newTestStudio(t, cfg)

	display := media.NewSnapshotDisplay(cfg.CanvasSize())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := s.Preview(ctx, PreviewRequest{
		First:   "sim:0.5:0",
		Second:  "sim:0.5:255",
		Display: display,
	})
	require.NoError(t, err)
	require.NoError(t, ctx.Err(), "preview should end with the second stream")

	assert.Greater(t, stats.FramesPresented, 0)
	assert.Equal(t, stats.FramesPresented, display.Presented())
	assert.Greater(t, stats.SecondFrames, 0)

	last := display.Last()
	require.NotNil(t, last)
	assert.Equal(t, [4]byte{255, 255, 255, 255}, last.PixelAt(8, 8))
}

func TestStudio_Closed(t *testing.T) {
	s := newTestStudio(t, testConfig(t))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Export(context.Background(), ExportRequest{First: "sim:1", Second: "sim:1"})
	assert.ErrorIs(t, err, ErrStudioClosed)

	_, err = s.Preview(context.Background(), PreviewRequest{First: "sim:1", Second: "sim:1"})
	assert.ErrorIs(t, err, ErrStudioClosed)
}

func TestNextExportPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.FixedZone("CET", 3600))

	path, err := NextExportPath(dir, factory.FormatStream, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-03-09T13-05-07Z.cfs"), path)

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	again, err := NextExportPath(dir, factory.FormatStream, now)
	require.NoError(t, err)
	assert.NotEqual(t, path, again)
	assert.Contains(t, filepath.Base(again), "2024-03-09T13-05-07Z-")

	pngPath, err := NextExportPath(dir, factory.FormatPNG, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-03-09T13-05-07Z"), pngPath)
}

func TestExport_UsesStudioClockForNaming(t *testing.T) {
	cfg := testConfig(t)
	clock := fixedClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	s, err := New(&Options{Config: cfg, TimeProvider: clock})
	require.NoError(t, err)
	defer s.Close()

	result, err := s.Export(context.Background(), ExportRequest{First: "sim:0.3", Second: "sim:0.3", Format: factory.FormatStream})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-02T03-04-05Z.cfs", filepath.Base(result.Path))
}

func TestListExports(t *testing.T) {
	dir := t.TempDir()

	older := filepath.Join(dir, "2024-01-01T00-00-00Z.cfs")
	require.NoError(t, os.WriteFile(older, []byte("x"), 0o644))

	newer := filepath.Join(dir, "2024-06-01T00-00-00Z")
	require.NoError(t, os.MkdirAll(newer, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(newer, media.ManifestName), []byte("frame_rate: 10\n"), 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "not-an-export"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))

	exports, err := ListExports(dir)
	require.NoError(t, err)
	require.Len(t, exports, 2)
	assert.Equal(t, newer, exports[0].Path)
	assert.Equal(t, factory.FormatPNG, exports[0].Format)
	assert.Equal(t, older, exports[1].Path)
	assert.Equal(t, int64(1), exports[1].Size)

	missing, err := ListExports(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestExport_WritesCPUProfile(t *testing.T) {
	cfg := testConfig(t)
	var profile bytes.Buffer
	s, err := New(&Options{Config: cfg, CPUProfile: &profile})
	require.NoError(t, err)
	defer s.Close()

	result, err := s.Export(context.Background(), ExportRequest{First: "sim:0.5", Second: "sim:0.5", Format: factory.FormatStream})
	require.NoError(t, err)
	assert.NotZero(t, profile.Len())
	assert.GreaterOrEqual(t, result.Stats.PeakIterationTime, result.Stats.AvgIterationTime)
}
