package media

import (
	"path/filepath"
	"testing"

	"github.com/opd-ai/crossfade/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotDisplay(t *testing.T) {
	d := NewSnapshotDisplay(video.Size{Width: 5, Height: 3})
	assert.Equal(t, video.Size{Width: 5, Height: 3}, d.Size())

	path := filepath.Join(t.TempDir(), "snap.png")
	assert.Error(t, d.SaveSnapshot(path), "nothing presented yet")

	d.Present(gradientFrame(5, 3, 1))
	last := gradientFrame(5, 3, 9)
	d.Present(last)

	assert.Equal(t, 2, d.Presented())
	assert.Same(t, last, d.Last())

	require.NoError(t, d.SaveSnapshot(path))
	back, err := readPNG(path)
	require.NoError(t, err)
	assert.True(t, back.SamePixels(last))
}
