package video

import (
	"errors"
	"testing"

	"github.com/opd-ai/crossfade/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlend_HalfwayBetweenBlackAndWhite(t *testing.T) {
	size := Size{Width: 100, Height: 100}
	black := NewSolidFrame(size, PixelFormatBGRA, [4]byte{0, 0, 0, 255})
	white := NewSolidFrame(size, PixelFormatBGRA, [4]byte{255, 255, 255, 255})

	out, err := Blend(black, white, 0.5, nil)
	require.NoError(t, err)

	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			require.Equal(t, [4]byte{128, 128, 128, 255}, out.PixelAt(x, y))
		}
	}
}

func TestBlend_Endpoints(t *testing.T) {
	a := createTestFrame(10, 10)
	b := NewSolidFrame(a.Size(), PixelFormatBGRA, [4]byte{9, 8, 7, 255})

	zero, err := Blend(a, b, 0, nil)
	require.NoError(t, err)
	assert.True(t, zero.SamePixels(a))

	one, err := Blend(a, b, 1, nil)
	require.NoError(t, err)
	assert.True(t, one.SamePixels(b))

	clamped, err := Blend(a, b, 3, nil)
	require.NoError(t, err)
	assert.True(t, clamped.SamePixels(b))
}

func TestBlend_NilSideIsOpaqueBlack(t *testing.T) {
	b := NewSolidFrame(Size{Width: 4, Height: 4}, PixelFormatBGRA, [4]byte{200, 100, 50, 255})

	out, err := Blend(nil, b, 0.5, nil)
	require.NoError(t, err)
	assert.Equal(t, [4]byte{100, 50, 25, 255}, out.PixelAt(2, 2))

	_, err = Blend(nil, nil, 0.5, nil)
	assert.ErrorIs(t, err, ErrNilFrame)
}

func TestBlend_Mismatch(t *testing.T) {
	a := createTestFrame(4, 4)

	_, err := Blend(a, createTestFrame(5, 4), 0.5, nil)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	rgba := createTestFrame(4, 4)
	rgba.Format = PixelFormatRGBA
	_, err = Blend(a, rgba, 0.5, nil)
	assert.ErrorIs(t, err, ErrFormatMismatch)
}

func TestGaussianBlurEffect_UniformStaysUniform(t *testing.T) {
	k, err := kernel.New(14)
	require.NoError(t, err)

	src := NewSolidFrame(Size{Width: 40, Height: 30}, PixelFormatBGRA, [4]byte{128, 128, 128, 255})
	out, err := NewGaussianBlurEffect(k, nil).Apply(src)
	require.NoError(t, err)

	assert.True(t, out.SamePixels(src))
}

func TestGaussianBlurEffect_IdentityKernelReturnsInput(t *testing.T) {
	k, err := kernel.New(0)
	require.NoError(t, err)

	src := createTestFrame(8, 8)
	out, err := NewGaussianBlurEffect(k, nil).Apply(src)
	require.NoError(t, err)
	assert.Same(t, src, out)
}

func TestGaussianBlurEffect_SmoothsEdge(t *testing.T) {
	k, err := kernel.New(3)
	require.NoError(t, err)

	src := NewSolidFrame(Size{Width: 20, Height: 4}, PixelFormatBGRA, [4]byte{0, 0, 0, 255})
	for y := 0; y < 4; y++ {
		for x := 10; x < 20; x++ {
			copy(src.Pix[y*src.Stride+x*BytesPerPixel:], []byte{255, 255, 255, 255})
		}
	}

	out, err := NewGaussianBlurEffect(k, nil).Apply(src)
	require.NoError(t, err)

	prev := -1
	for x := 0; x < 20; x++ {
		v := int(out.PixelAt(x, 2)[0])
		assert.GreaterOrEqual(t, v, prev, "column %d", x)
		prev = v
	}
	assert.Greater(t, out.PixelAt(9, 2)[0], byte(0))
	assert.Less(t, out.PixelAt(10, 2)[0], byte(255))
	assert.Equal(t, byte(0), out.PixelAt(0, 2)[0])
	assert.Equal(t, byte(255), out.PixelAt(19, 2)[0])
}

func TestGaussianBlurEffect_RunnerSplitDoesNotChangeResult(t *testing.T) {
	k, err := kernel.New(5.5)
	require.NoError(t, err)
	src := createTestFrame(33, 29)

	serial, err := NewGaussianBlurEffect(k, nil).Apply(src)
	require.NoError(t, err)

	runner := &bandRunner{band: 4}
	split, err := NewGaussianBlurEffect(k, runner).Apply(src)
	require.NoError(t, err)

	assert.Greater(t, runner.calls, 2)
	assert.True(t, serial.SamePixels(split))
}

type failingEffect struct{}

func (failingEffect) Apply(*Frame) (*Frame, error) { return nil, errors.New("boom") }
func (failingEffect) GetName() string             { return "Failing" }

func TestEffectChain(t *testing.T) {
	chain := NewEffectChain()
	src := createTestFrame(6, 6)

	out, err := chain.Apply(src)
	require.NoError(t, err)
	assert.Same(t, src, out, "empty chain passes the frame through")

	k, err := kernel.New(1)
	require.NoError(t, err)
	chain.AddEffect(NewGaussianBlurEffect(k, nil))
	assert.Equal(t, 1, chain.GetEffectCount())

	out, err = chain.Apply(src)
	require.NoError(t, err)
	assert.NotSame(t, src, out)

	chain.AddEffect(failingEffect{})
	_, err = chain.Apply(src)
	assert.ErrorContains(t, err, "Failing")

	chain.Clear()
	assert.Equal(t, 0, chain.GetEffectCount())

	_, err = chain.Apply(nil)
	assert.ErrorIs(t, err, ErrNilFrame)
}
