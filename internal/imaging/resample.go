package imaging

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

// MaxPixels is the hard ceiling on pixels in any single raster this
// package will allocate. At four bytes per pixel this bounds a buffer at
// roughly 1.2 GB.
const MaxPixels = 300_000_000

// ErrTooLarge reports a requested raster that exceeds MaxPixels.
type ErrTooLarge struct {
	Width  int
	Height int
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("imaging: %dx%d exceeds pixel ceiling %d", e.Width, e.Height, MaxPixels)
}

// Resample scales src to width x height using Catmull-Rom interpolation.
// The target size is checked against MaxPixels before allocation.
func Resample(src *image.RGBA, width, height int) (*image.RGBA, error) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if int64(width)*int64(height) > MaxPixels {
		return nil, &ErrTooLarge{Width: width, Height: height}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}
