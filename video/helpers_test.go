package video

// createTestFrame creates a BGRA frame with a deterministic gradient.
func createTestFrame(width, height int) *Frame {
	f := NewFrame(Size{Width: width, Height: height}, PixelFormatBGRA)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := y*f.Stride + x*BytesPerPixel
			f.Pix[o] = byte((x * 7) % 256)
			f.Pix[o+1] = byte((y * 5) % 256)
			f.Pix[o+2] = byte((x + y) % 256)
			f.Pix[o+3] = 255
		}
	}
	return f
}

// bandRunner splits rows into fixed-height bands, run sequentially.
type bandRunner struct {
	band  int
	calls int
}

func (r *bandRunner) RunRows(rows int, fn func(y0, y1 int)) {
	for y := 0; y < rows; y += r.band {
		end := y + r.band
		if end > rows {
			end = rows
		}
		r.calls++
		fn(y, end)
	}
}
