package kernel

import (
	"fmt"
	"math"

	"github.com/opd-ai/crossfade/limits"
	"github.com/sirupsen/logrus"
)

// Params are the generation parameters of a table.
type Params struct {
	MaxRadius float32
	Steps     int
}

// DefaultParams returns a 600 step table up to radius 14.
func DefaultParams() Params {
	return Params{MaxRadius: limits.DefaultMaxBlurRadius, Steps: limits.DefaultBlurTableSteps}
}

// Validate checks the parameters against limits.
func (p Params) Validate() error {
	return limits.ValidateKernelParams(float64(p.MaxRadius), p.Steps)
}

// RadiusAt returns the radius of step i, linearly spaced over [0, MaxRadius].
func (p Params) RadiusAt(i int) float32 {
	if p.Steps <= 1 {
		return 0
	}
	return float32(i) / float32(p.Steps-1) * p.MaxRadius
}

// Table is an immutable, radius-ordered sequence of kernels.
//
// A Table is safe to share between goroutines once built; nothing mutates it.
type Table struct {
	params  Params
	kernels []Kernel
}

// Generate builds every kernel of the table.
func Generate(p Params) (*Table, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Generate",
		"max_radius": p.MaxRadius,
		"steps":      p.Steps,
	}).Info("Generating blur kernel table")

	kernels := make([]Kernel, p.Steps)
	for i := range kernels {
		k, err := New(p.RadiusAt(i))
		if err != nil {
			return nil, fmt.Errorf("kernel %d: %w", i, err)
		}
		kernels[i] = k
	}

	return &Table{params: p, kernels: kernels}, nil
}

// newTable validates decoded kernels against params and wraps them.
func newTable(p Params, kernels []Kernel) (*Table, error) {
	if len(kernels) != p.Steps {
		return nil, fmt.Errorf("table has %d kernels, want %d", len(kernels), p.Steps)
	}
	for i, k := range kernels {
		if err := k.validate(); err != nil {
			return nil, fmt.Errorf("kernel %d: %v", i, err)
		}
		if i > 0 && k.Radius < kernels[i-1].Radius {
			return nil, fmt.Errorf("kernel %d radius %v decreases", i, k.Radius)
		}
	}
	return &Table{params: p, kernels: kernels}, nil
}

// Params returns the generation parameters.
func (t *Table) Params() Params {
	return t.params
}

// Len returns the number of kernels.
func (t *Table) Len() int {
	return len(t.kernels)
}

// At returns kernel i, clamped to the table bounds.
func (t *Table) At(i int) Kernel {
	if i < 0 {
		i = 0
	}
	if i >= len(t.kernels) {
		i = len(t.kernels) - 1
	}
	return t.kernels[i]
}

// IndexFor maps a blend weight in [0, 1] to round(weight*(Len-1)).
func (t *Table) IndexFor(weight float64) int {
	if math.IsNaN(weight) || weight <= 0 {
		return 0
	}
	if weight >= 1 {
		return len(t.kernels) - 1
	}
	return int(math.Round(weight * float64(len(t.kernels)-1)))
}

// ForWeight returns the kernel selected by IndexFor.
func (t *Table) ForWeight(weight float64) Kernel {
	return t.At(t.IndexFor(weight))
}

// Equal compares two tables bit for bit.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.params != o.params || len(t.kernels) != len(o.kernels) {
		return false
	}
	for i := range t.kernels {
		if !t.kernels[i].equal(o.kernels[i]) {
			return false
		}
	}
	return true
}
