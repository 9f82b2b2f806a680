package driver

import (
	"testing"

	"github.com/opd-ai/crossfade/kernel"
	"github.com/opd-ai/crossfade/render"
	testsim "github.com/opd-ai/crossfade/testing"
	"github.com/opd-ai/crossfade/video"
	"github.com/stretchr/testify/require"
)

var (
	testCanvas = video.Size{Width: 16, Height: 16}
	black      = [4]byte{0, 0, 0, 255}
	white      = [4]byte{255, 255, 255, 255}
	gray       = [4]byte{128, 128, 128, 255}
)

func newTestProcessor(t *testing.T) *render.Processor {
	t.Helper()
	p, _ := newTestPipeline(t)
	return p
}

func newTestPipeline(t *testing.T) (*render.Processor, *render.Context) {
	t.Helper()
	table, err := kernel.Generate(kernel.Params{MaxRadius: 4, Steps: 41})
	require.NoError(t, err)
	rc, err := render.NewContext(render.Options{Workers: 2, QueueDepth: 2})
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })
	p, err := render.NewProcessor(rc, table, testCanvas, video.FitPolicyFit)
	require.NoError(t, err)
	return p, rc
}

func stream(name string, frames int, interval float64, color [4]byte, log *testsim.EventLog) testsim.StreamConfig {
	return testsim.StreamConfig{
		Name:     name,
		Frames:   frames,
		Interval: interval,
		Size:     testCanvas,
		Color:    color,
		Log:      log,
	}
}
