package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/opd-ai/crossfade/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPNGSequence_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink, err := NewPNGSequenceSink(dir, testConfig())
	require.NoError(t, err)

	frames := []float64{0, 0.1, 0.25}
	for i, pts := range frames {
		require.NoError(t, sink.WaitReady(context.Background()))
		require.NoError(t, sink.Submit(gradientFrame(6, 4, byte(i*40)), pts))
	}
	assert.ErrorIs(t, sink.Submit(gradientFrame(6, 4, 0), 0.25), interfaces.ErrOutOfOrder)
	require.NoError(t, sink.Finish())
	assert.False(t, sink.ReadyForMore())
	assert.ErrorIs(t, sink.Submit(gradientFrame(6, 4, 0), 1), interfaces.ErrSinkFinished)

	m, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, 10.0, m.FrameRate)
	require.Len(t, m.Frames, 3)
	assert.Equal(t, "frame_000001.png", m.Frames[1].File)

	src, err := OpenPNGSequence(dir, DefaultConfig())
	require.NoError(t, err)
	defer src.Close()
	assert.InDelta(t, 0.35, src.Duration(), 1e-9)

	for i, pts := range frames {
		f, err := src.NextFrame(context.Background())
		require.NoError(t, err)
		assert.Equal(t, pts, f.Timestamp)
		assert.True(t, f.SamePixels(gradientFrame(6, 4, byte(i*40))), "frame %d", i)
	}
	_, err = src.NextFrame(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrEndOfStream)
}

func TestPNGSequence_WithoutManifest(t *testing.T) {
	dir := t.TempDir()
	for i, name := range []string{"b.png", "a.png", "c.png"} {
		require.NoError(t, WritePNG(filepath.Join(dir, name), gradientFrame(3, 3, byte(i))))
	}

	src, err := OpenPNGSequence(dir, testConfig())
	require.NoError(t, err)
	assert.InDelta(t, 0.3, src.Duration(), 1e-9)

	first, err := src.NextFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, first.Timestamp)
	assert.True(t, first.SamePixels(gradientFrame(3, 3, 1)), "files are read in name order")

	second, err := src.NextFrame(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.1, second.Timestamp, 1e-12)

	require.NoError(t, src.Close())
	_, err = src.NextFrame(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenPNGSequence_Errors(t *testing.T) {
	_, err := OpenPNGSequence(t.TempDir(), testConfig())
	assert.ErrorIs(t, err, ErrNoFrames)

	_, err = OpenPNGSequence(filepath.Join(t.TempDir(), "missing"), testConfig())
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bad, ManifestName), []byte("frames: [oops"), 0o644))
	_, err = OpenPNGSequence(bad, testConfig())
	assert.Error(t, err)
}

func TestPNGSequenceSource_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("not a png"), 0o644))

	src, err := OpenPNGSequence(dir, testConfig())
	require.NoError(t, err)
	_, err = src.NextFrame(context.Background())
	assert.ErrorContains(t, err, "a.png")
}

func TestPNGSequenceSink_Abort(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "partial")
	sink, err := NewPNGSequenceSink(dir, testConfig())
	require.NoError(t, err)
	require.NoError(t, sink.Submit(gradientFrame(4, 4, 0), 0))

	require.NoError(t, sink.Abort())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, sink.Submit(gradientFrame(4, 4, 0), 1), interfaces.ErrSinkFinished)

	kept := filepath.Join(t.TempDir(), "kept")
	done, err := NewPNGSequenceSink(kept, testConfig())
	require.NoError(t, err)
	require.NoError(t, done.Submit(gradientFrame(4, 4, 0), 0))
	require.NoError(t, done.Finish())
	require.NoError(t, done.Abort())
	_, err = os.Stat(filepath.Join(kept, ManifestName))
	assert.NoError(t, err)
}
