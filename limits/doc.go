// Package limits provides centralized configuration bounds and validation functions
// for the transition pipeline. Configuration is checked against these bounds once,
// when it is loaded, so render and driver code never re-validate on the hot path.
//
// # Bounds
//
//   - Overlap duration: [MinOverlapDuration, max], where max defaults to
//     DefaultMaxOverlapDuration (10s) and is itself configurable.
//   - Canvas: both sides in (0, MaxCanvasDimension].
//   - Blur table: radius in [0, MaxBlurRadius], steps in [1, MaxBlurTableSteps].
//   - Frame rate: (0, MaxFrameRate].
//
// # Validation Functions
//
//	if err := limits.ValidateOverlapDuration(3.0, limits.DefaultMaxOverlapDuration); err != nil {
//	    // errors.Is(err, limits.ErrOverlapOutOfRange)
//	}
//
// Every validation error wraps one of the package sentinels so callers can classify
// failures with errors.Is.
package limits
