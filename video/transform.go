package video

import (
	"fmt"
	"strings"

	"github.com/opd-ai/crossfade/limits"
	"golang.org/x/image/math/f64"
)

// FitPolicy selects how a source rectangle is mapped into a destination rectangle.
type FitPolicy int

const (
	// FitPolicyFit letterboxes: the whole source is visible, bars fill the rest.
	FitPolicyFit FitPolicy = iota
	// FitPolicyFill crops: the destination is covered, the source overflow is cut.
	FitPolicyFill
	// FitPolicyStretch scales each axis independently to the destination.
	FitPolicyStretch
)

func (p FitPolicy) String() string {
	switch p {
	case FitPolicyFit:
		return "fit"
	case FitPolicyFill:
		return "fill"
	case FitPolicyStretch:
		return "stretch"
	default:
		return fmt.Sprintf("FitPolicy(%d)", int(p))
	}
}

// ParseFitPolicy parses "fit", "fill" or "stretch" (case insensitive).
func ParseFitPolicy(name string) (FitPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fit":
		return FitPolicyFit, nil
	case "fill":
		return FitPolicyFill, nil
	case "stretch":
		return FitPolicyStretch, nil
	default:
		return 0, fmt.Errorf("%w: %q (want fit, fill or stretch)", limits.ErrInvalidFitPolicy, name)
	}
}

// ScaleTransform maps source pixel space into destination pixel space:
//
//	dstX = srcX*ScaleX + TranslateX
//	dstY = srcY*ScaleY + TranslateY
type ScaleTransform struct {
	ScaleX     float64
	ScaleY     float64
	TranslateX float64
	TranslateY float64
}

// IdentityTransform leaves coordinates unchanged.
var IdentityTransform = ScaleTransform{ScaleX: 1, ScaleY: 1}

// ResolveScaleTransform computes the centered scale and translation that maps
// src into dst under policy. For fit and fill the scale is uniform.
func ResolveScaleTransform(src, dst Size, policy FitPolicy) (ScaleTransform, error) {
	if src.Empty() || dst.Empty() {
		return ScaleTransform{}, fmt.Errorf("%w: %s -> %s", ErrInvalidDimensions, src, dst)
	}

	scaleX := float64(dst.Width) / float64(src.Width)
	scaleY := float64(dst.Height) / float64(src.Height)

	switch policy {
	case FitPolicyStretch:
	case FitPolicyFill:
		if scaleX > scaleY {
			scaleY = scaleX
		} else {
			scaleX = scaleY
		}
	case FitPolicyFit:
		if scaleX > scaleY {
			scaleX = scaleY
		} else {
			scaleY = scaleX
		}
	default:
		return ScaleTransform{}, fmt.Errorf("%w: %s", limits.ErrInvalidFitPolicy, policy)
	}

	return ScaleTransform{
		ScaleX:     scaleX,
		ScaleY:     scaleY,
		TranslateX: (float64(dst.Width) - float64(src.Width)*scaleX) / 2,
		TranslateY: (float64(dst.Height) - float64(src.Height)*scaleY) / 2,
	}, nil
}

// Affine returns the source-to-destination matrix in the layout x/image/draw expects.
func (t ScaleTransform) Affine() f64.Aff3 {
	return f64.Aff3{
		t.ScaleX, 0, t.TranslateX,
		0, t.ScaleY, t.TranslateY,
	}
}

// IsIdentity reports whether the transform leaves every pixel in place.
func (t ScaleTransform) IsIdentity() bool {
	return t == IdentityTransform
}

// IsScalingRequired checks if a source of size src must be resampled to fill dst.
func IsScalingRequired(src, dst Size) bool {
	return src.Width != dst.Width || src.Height != dst.Height
}
