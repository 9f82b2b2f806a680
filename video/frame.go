package video

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
)

// BytesPerPixel is the size of one packed 8-bit BGRA or RGBA pixel.
const BytesPerPixel = 4

// Sentinel errors for frame validation.
var (
	// ErrNilFrame indicates a nil frame was passed where one is required.
	ErrNilFrame = errors.New("frame cannot be nil")

	// ErrInvalidDimensions indicates a zero or negative width or height.
	ErrInvalidDimensions = errors.New("invalid frame dimensions")

	// ErrBufferTooSmall indicates the pixel buffer cannot hold the frame.
	ErrBufferTooSmall = errors.New("pixel buffer too small")

	// ErrSizeMismatch indicates two frames that must share a size do not.
	ErrSizeMismatch = errors.New("frame size mismatch")

	// ErrFormatMismatch indicates two frames that must share a pixel format do not.
	ErrFormatMismatch = errors.New("pixel format mismatch")
)

// PixelFormat identifies the channel order of a packed 8-bit frame.
type PixelFormat int

const (
	// PixelFormatBGRA is packed blue, green, red, alpha (the decoder interchange format).
	PixelFormatBGRA PixelFormat = iota
	// PixelFormatRGBA is packed red, green, blue, alpha.
	PixelFormatRGBA
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatBGRA:
		return "BGRA"
	case PixelFormatRGBA:
		return "RGBA"
	default:
		return "Unknown"
	}
}

// Size is a width and height in pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Empty reports whether either side is zero or negative.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Frame is an immutable rectangular pixel buffer with an optional presentation timestamp.
//
// Pipeline stages never write into a frame they did not allocate; every stage
// produces a new destination frame. Frames may therefore be shared by pointer.
type Frame struct {
	Width  int
	Height int
	Format PixelFormat
	Stride int    // Bytes per row
	Pix    []byte // Packed pixels, Stride*Height bytes

	// Timestamp is the presentation time in seconds when HasTimestamp is set.
	Timestamp    float64
	HasTimestamp bool
}

// NewFrame allocates a zeroed (transparent black) frame.
func NewFrame(size Size, format PixelFormat) *Frame {
	stride := size.Width * BytesPerPixel
	return &Frame{
		Width:  size.Width,
		Height: size.Height,
		Format: format,
		Stride: stride,
		Pix:    make([]byte, stride*size.Height),
	}
}

// NewSolidFrame allocates a frame filled with a single pixel value given in
// the frame's own channel order.
func NewSolidFrame(size Size, format PixelFormat, pixel [4]byte) *Frame {
	f := NewFrame(size, format)
	for i := 0; i < len(f.Pix); i += BytesPerPixel {
		copy(f.Pix[i:i+BytesPerPixel], pixel[:])
	}
	return f
}

// NewOpaqueFrame allocates an opaque black frame, the background of every canvas.
func NewOpaqueFrame(size Size, format PixelFormat) *Frame {
	return NewSolidFrame(size, format, [4]byte{0, 0, 0, 255})
}

// Size returns the frame dimensions.
func (f *Frame) Size() Size {
	return Size{Width: f.Width, Height: f.Height}
}

// Validate checks dimensions and buffer length.
func (f *Frame) Validate() error {
	if f == nil {
		return ErrNilFrame
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, f.Width, f.Height)
	}
	if f.Stride < f.Width*BytesPerPixel {
		return fmt.Errorf("%w: stride %d < %d", ErrBufferTooSmall, f.Stride, f.Width*BytesPerPixel)
	}
	if need := f.Stride*(f.Height-1) + f.Width*BytesPerPixel; len(f.Pix) < need {
		return fmt.Errorf("%w: got %d, expected %d", ErrBufferTooSmall, len(f.Pix), need)
	}
	return nil
}

// Clone returns a deep copy with a tightly packed buffer.
func (f *Frame) Clone() *Frame {
	out := NewFrame(f.Size(), f.Format)
	rowBytes := f.Width * BytesPerPixel
	for y := 0; y < f.Height; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+rowBytes], f.Pix[y*f.Stride:y*f.Stride+rowBytes])
	}
	out.Timestamp = f.Timestamp
	out.HasTimestamp = f.HasTimestamp
	return out
}

// WithTimestamp returns a frame sharing the same pixels with a new timestamp.
func (f *Frame) WithTimestamp(ts float64) *Frame {
	out := *f
	out.Timestamp = ts
	out.HasTimestamp = true
	return &out
}

// PixelAt returns the four channel bytes at (x, y) in the frame's channel order.
func (f *Frame) PixelAt(x, y int) [4]byte {
	var p [4]byte
	o := y*f.Stride + x*BytesPerPixel
	copy(p[:], f.Pix[o:o+BytesPerPixel])
	return p
}

// SamePixels reports whether two frames have identical size, format and pixel bytes.
// Timestamps are ignored.
func (f *Frame) SamePixels(other *Frame) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.Width != other.Width || f.Height != other.Height || f.Format != other.Format {
		return false
	}
	rowBytes := f.Width * BytesPerPixel
	for y := 0; y < f.Height; y++ {
		if !bytes.Equal(f.Pix[y*f.Stride:y*f.Stride+rowBytes], other.Pix[y*other.Stride:y*other.Stride+rowBytes]) {
			return false
		}
	}
	return true
}

// rgbaView exposes the frame buffer as an image.RGBA without copying.
// The channel order is not swizzled; resampling treats channels independently.
func (f *Frame) rgbaView() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Stride,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// ToImage converts the frame into a new image.RGBA in RGBA channel order.
func (f *Frame) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	rowBytes := f.Width * BytesPerPixel
	for y := 0; y < f.Height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+rowBytes], f.Pix[y*f.Stride:y*f.Stride+rowBytes])
	}
	if f.Format == PixelFormatBGRA {
		swapRedBlue(img.Pix)
	}
	return img
}

// FrameFromImage converts any image into a new frame of the given format.
func FrameFromImage(img image.Image, format PixelFormat) *Frame {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	if format == PixelFormatBGRA {
		swapRedBlue(rgba.Pix)
	}
	return &Frame{
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: format,
		Stride: rgba.Stride,
		Pix:    rgba.Pix,
	}
}

func swapRedBlue(pix []byte) {
	for i := 0; i+3 < len(pix); i += BytesPerPixel {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}
