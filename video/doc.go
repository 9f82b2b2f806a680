// Package video provides the frame model and the pixel stages of the
// transition pipeline.
//
// # Frames
//
// A Frame is a packed 8-bit, four channel buffer (BGRA from decoders, RGBA
// for images) with an optional presentation timestamp. Stages never write into
// a frame they did not allocate, so frames are shared freely by pointer.
//
// # Scaling
//
// ResolveScaleTransform maps a source size into a canvas under a FitPolicy
// (fit letterboxes, fill crops, stretch distorts), always centered. Scaler
// applies the transform with the Catmull-Rom kernel from x/image/draw:
//
//	scaler := video.NewScaler()
//	canvasFrame, err := scaler.ScaleToCanvas(frame, video.Size{Width: 1280, Height: 720}, video.FitPolicyFit)
//
// # Effects
//
// Blend mixes two canvas frames by weight and GaussianBlurEffect convolves a
// frame with a kernel.Kernel. Both split their work into row bands through a
// RowRunner; the result never depends on how the rows are split.
package video
