// Package kernel precomputes and persists the Gaussian blur kernels used by
// the transition compositor.
//
// A Table holds one normalized 2D kernel per radius step, with radii spaced
// linearly from 0 to Params.MaxRadius. The compositor selects a kernel by blend
// weight, so no kernel is ever computed on the render path:
//
//	cache := kernel.NewCache(path)
//	table, origin, err := cache.GenerateOrLoad(kernel.DefaultParams())
//	k := table.ForWeight(0.5)
//
// The persisted blob is msgpack encoded and carries a BLAKE2b key of the
// generation parameters plus a checksum of the payload. A missing, stale or
// corrupt blob is regenerated and overwritten; a failed write only logs.
package kernel
