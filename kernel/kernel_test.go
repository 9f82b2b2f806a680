package kernel

import (
	"math"
	"testing"

	"github.com/opd-ai/crossfade/limits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WeightsSumToOne(t *testing.T) {
	for _, r := range []float32{0, 0.2, 0.5, 1, 2.49, 2.5, 7.013, 14, 40} {
		k, err := New(r)
		require.NoError(t, err)

		assert.Equal(t, int(math.Round(float64(r)))*2+1, k.Size, "radius %v", r)
		assert.Len(t, k.Weights, k.Size*k.Size)
		assert.InDelta(t, 1.0, k.Sum(), 1e-5, "radius %v", r)
		for _, w := range k.Weights {
			assert.GreaterOrEqual(t, w, float32(0))
		}
	}
}

func TestNew_ZeroRadiusIsUnitWeight(t *testing.T) {
	k, err := New(0)
	require.NoError(t, err)

	assert.Equal(t, 1, k.Size)
	assert.Equal(t, []float32{1}, k.Weights)
	assert.True(t, k.IsIdentity())
}

func TestNew_SubHalfRadiusIsUnitWeight(t *testing.T) {
	k, err := New(0.3)
	require.NoError(t, err)

	assert.Equal(t, 1, k.Size)
	assert.True(t, k.IsIdentity())
}

func TestNew_SymmetricAndPeaked(t *testing.T) {
	k, err := New(3)
	require.NoError(t, err)
	require.Equal(t, 7, k.Size)

	c := k.Size / 2
	for j := 0; j < k.Size; j++ {
		for i := 0; i < k.Size; i++ {
			assert.InDelta(t, k.At(i, j), k.At(k.Size-1-i, j), 1e-9)
			assert.Equal(t, k.At(i, j), k.At(j, i))
			assert.LessOrEqual(t, k.At(i, j), k.At(c, c))
		}
	}
}

func TestNew_InvalidRadius(t *testing.T) {
	for _, r := range []float32{-1, float32(math.NaN()), float32(math.Inf(1))} {
		_, err := New(r)
		assert.ErrorIs(t, err, limits.ErrInvalidKernelParams)
	}
}

func TestKernel_ProfileReproducesKernel(t *testing.T) {
	k, err := New(4.5)
	require.NoError(t, err)

	p := k.Profile()
	require.Len(t, p, k.Size)

	var sum float64
	for _, v := range p {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-5)

	for j := 0; j < k.Size; j++ {
		for i := 0; i < k.Size; i++ {
			assert.InDelta(t, float64(k.At(i, j)), p[i]*p[j], 1e-6)
		}
	}
}
