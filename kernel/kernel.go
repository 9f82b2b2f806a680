package kernel

import (
	"fmt"
	"math"

	"github.com/opd-ai/crossfade/limits"
)

// Kernel is a square matrix of normalized Gaussian weights.
//
// Weights are stored row-major: the weight for column i of row j is
// Weights[j*Size+i]. Size is always odd and equals 2*round(Radius)+1.
type Kernel struct {
	Radius  float32   `msgpack:"radius"`
	Size    int       `msgpack:"size"`
	Weights []float32 `msgpack:"weights"`
}

// New generates the kernel for a radius.
//
// sigma is radius/2 and samples are spaced evenly across [-radius, radius] on
// both axes. Radii below 0.5 degenerate to a single unit weight.
func New(radius float32) (Kernel, error) {
	r := float64(radius)
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
		return Kernel{}, fmt.Errorf("%w: radius %v", limits.ErrInvalidKernelParams, radius)
	}

	size := int(math.Round(r))*2 + 1
	if size == 1 {
		return Kernel{Radius: radius, Size: 1, Weights: []float32{1}}, nil
	}

	sigma := r / 2
	delta := (2 * r) / float64(size-1)
	expScale := -1 / (2 * sigma * sigma)

	raw := make([]float64, size*size)
	var sum float64
	for j := 0; j < size; j++ {
		y := -r + float64(j)*delta
		for i := 0; i < size; i++ {
			x := -r + float64(i)*delta
			w := math.Exp((x*x + y*y) * expScale)
			raw[j*size+i] = w
			sum += w
		}
	}

	weights := make([]float32, size*size)
	for i, w := range raw {
		weights[i] = float32(w / sum)
	}

	return Kernel{Radius: radius, Size: size, Weights: weights}, nil
}

// At returns the weight at column i, row j.
func (k Kernel) At(i, j int) float32 {
	return k.Weights[j*k.Size+i]
}

// Sum returns the total of all weights.
func (k Kernel) Sum() float64 {
	var s float64
	for _, w := range k.Weights {
		s += float64(w)
	}
	return s
}

// Profile returns the row sums of the kernel as float64.
//
// Generated kernels are the outer product of one normalized Gaussian with
// itself, so Profile is also the column marginal and convolving rows then
// columns with it reproduces the 2D kernel.
func (k Kernel) Profile() []float64 {
	p := make([]float64, k.Size)
	for j := 0; j < k.Size; j++ {
		var s float64
		for i := 0; i < k.Size; i++ {
			s += float64(k.Weights[j*k.Size+i])
		}
		p[j] = s
	}
	return p
}

// IsIdentity reports whether convolving with k leaves every pixel unchanged.
func (k Kernel) IsIdentity() bool {
	return k.Size == 1 && len(k.Weights) == 1 && k.Weights[0] == 1
}

// equal compares radius, size and weights bit for bit.
func (k Kernel) equal(o Kernel) bool {
	if math.Float32bits(k.Radius) != math.Float32bits(o.Radius) || k.Size != o.Size || len(k.Weights) != len(o.Weights) {
		return false
	}
	for i := range k.Weights {
		if math.Float32bits(k.Weights[i]) != math.Float32bits(o.Weights[i]) {
			return false
		}
	}
	return true
}

// validate checks the structural invariants of a decoded kernel.
func (k Kernel) validate() error {
	r := float64(k.Radius)
	if math.IsNaN(r) || r < 0 {
		return fmt.Errorf("negative radius %v", k.Radius)
	}
	if want := int(math.Round(r))*2 + 1; k.Size != want {
		return fmt.Errorf("radius %v has size %d, want %d", k.Radius, k.Size, want)
	}
	if len(k.Weights) != k.Size*k.Size {
		return fmt.Errorf("radius %v has %d weights, want %d", k.Radius, len(k.Weights), k.Size*k.Size)
	}
	for _, w := range k.Weights {
		if w < 0 || math.IsNaN(float64(w)) {
			return fmt.Errorf("radius %v has invalid weight %v", k.Radius, w)
		}
	}
	return nil
}
