package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScaler(t *testing.T) {
	scaler := NewScaler()
	assert.NotNil(t, scaler)
}

func TestScaler_ScaleToCanvas_SameSizeSkips(t *testing.T) {
	scaler := NewScaler()
	src := createTestFrame(64, 48)

	out, err := scaler.ScaleToCanvas(src, Size{Width: 64, Height: 48}, FitPolicyFill)
	require.NoError(t, err)
	assert.Same(t, src, out)
}

func TestScaler_Scale_UniformStaysUniform(t *testing.T) {
	scaler := NewScaler()
	src := NewSolidFrame(Size{Width: 50, Height: 30}, PixelFormatBGRA, [4]byte{90, 120, 150, 255}).WithTimestamp(0.25)

	out, err := scaler.ScaleToCanvas(src, Size{Width: 100, Height: 60}, FitPolicyStretch)
	require.NoError(t, err)
	require.Equal(t, Size{Width: 100, Height: 60}, out.Size())
	assert.Equal(t, 0.25, out.Timestamp)
	assert.True(t, out.HasTimestamp)

	for _, pt := range [][2]int{{0, 0}, {50, 30}, {99, 59}} {
		px := out.PixelAt(pt[0], pt[1])
		assert.InDelta(t, 90, int(px[0]), 1)
		assert.InDelta(t, 120, int(px[1]), 1)
		assert.InDelta(t, 150, int(px[2]), 1)
		assert.Equal(t, byte(255), px[3])
	}
}

func TestScaler_Scale_FitLetterboxesWithOpaqueBlack(t *testing.T) {
	scaler := NewScaler()
	src := NewSolidFrame(Size{Width: 200, Height: 100}, PixelFormatBGRA, [4]byte{255, 255, 255, 255})

	out, err := scaler.ScaleToCanvas(src, Size{Width: 100, Height: 100}, FitPolicyFit)
	require.NoError(t, err)

	assert.Equal(t, [4]byte{0, 0, 0, 255}, out.PixelAt(50, 5), "top bar")
	assert.Equal(t, [4]byte{0, 0, 0, 255}, out.PixelAt(50, 94), "bottom bar")

	mid := out.PixelAt(50, 50)
	assert.InDelta(t, 255, int(mid[0]), 1)
	assert.Equal(t, byte(255), mid[3])
}

func TestScaler_Scale_FillCoversCanvas(t *testing.T) {
	scaler := NewScaler()
	src := NewSolidFrame(Size{Width: 200, Height: 100}, PixelFormatBGRA, [4]byte{200, 200, 200, 255})

	out, err := scaler.ScaleToCanvas(src, Size{Width: 100, Height: 100}, FitPolicyFill)
	require.NoError(t, err)

	for _, pt := range [][2]int{{0, 0}, {99, 0}, {0, 99}, {99, 99}} {
		px := out.PixelAt(pt[0], pt[1])
		assert.InDelta(t, 200, int(px[0]), 1)
	}
}

func TestScaler_Scale_RunnerSplitDoesNotChangeResult(t *testing.T) {
	src := createTestFrame(37, 23)
	dst := Size{Width: 64, Height: 41}
	tr, err := ResolveScaleTransform(src.Size(), dst, FitPolicyFit)
	require.NoError(t, err)

	serial, err := NewScaler().Scale(src, tr, dst)
	require.NoError(t, err)

	banded := NewScaler()
	runner := &bandRunner{band: 6}
	banded.SetRunner(runner)
	split, err := banded.Scale(src, tr, dst)
	require.NoError(t, err)

	assert.Greater(t, runner.calls, 1)
	assert.True(t, serial.SamePixels(split))
}

func TestScaler_Scale_ErrorCases(t *testing.T) {
	scaler := NewScaler()
	src := createTestFrame(16, 16)

	tests := []struct {
		name    string
		frame   *Frame
		dst     Size
		wantErr error
	}{
		{name: "nil frame", frame: nil, dst: Size{Width: 8, Height: 8}, wantErr: ErrNilFrame},
		{name: "empty target", frame: src, dst: Size{Width: 0, Height: 8}, wantErr: ErrInvalidDimensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scaler.Scale(tt.frame, IdentityTransform, tt.dst)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestScaler_GetScaleFactors(t *testing.T) {
	x, y := NewScaler().GetScaleFactors(Size{Width: 320, Height: 240}, Size{Width: 640, Height: 120})
	assert.Equal(t, 2.0, x)
	assert.Equal(t, 0.5, y)
}
