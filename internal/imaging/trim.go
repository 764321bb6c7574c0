package imaging

import (
	"image"
	"image/color"
	"image/draw"
)

// Trimming parameters shared by the tiling pipeline and the trim-offset
// detector. Both must run the identical foreground detection, so these are
// fixed constants rather than per-call configuration.
const (
	// DefaultTolerance is the 0-255 luminance-difference threshold above
	// which a pixel counts as foreground.
	DefaultTolerance uint8 = 10

	// DefaultPadding is the margin, in pixels at full render scale, kept
	// around the detected content box.
	DefaultPadding = 20
)

// DefaultBackground is the margin color trimmed away from floor plans.
var DefaultBackground = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// ContentBounds returns the minimal bounding box containing every pixel
// whose luminance difference from bg exceeds tolerance, and whether any
// such pixel exists. The difference is taken per channel in 8-bit space
// and collapsed to a Rec.601 luminance magnitude.
func ContentBounds(img *image.RGBA, bg color.RGBA, tolerance uint8) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			i := (x - b.Min.X) * 4
			if lumaDiff(row[i], row[i+1], row[i+2], bg) <= tolerance {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if maxX < minX || maxY < minY {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// Trim crops uniform-background margins from img, keeping padding pixels
// around the detected content box. Trimming is best effort: when no
// foreground exists, or the padded box covers the whole image, the input
// is returned unchanged.
func Trim(img *image.RGBA, bg color.RGBA, tolerance uint8, padding int) *image.RGBA {
	if img == nil {
		return img
	}

	box, ok := ContentBounds(img, bg, tolerance)
	if !ok {
		return img
	}

	box = Expand(box, padding).Intersect(img.Bounds())
	if box == img.Bounds() {
		return img
	}

	return Crop(img, box)
}

// Expand grows r by n pixels on every side.
func Expand(r image.Rectangle, n int) image.Rectangle {
	return image.Rect(r.Min.X-n, r.Min.Y-n, r.Max.X+n, r.Max.Y+n)
}

// Crop copies the region r of img into a fresh zero-origin buffer, so the
// source raster can be released independently.
func Crop(img *image.RGBA, r image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// ToRGBA returns img as *image.RGBA, converting only when necessary.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// lumaDiff is the Rec.601 luminance of the per-channel absolute difference
// between a pixel and bg, matching PIL's difference-then-grayscale idiom.
func lumaDiff(r, g, b uint8, bg color.RGBA) uint8 {
	dr := absDiff(r, bg.R)
	dg := absDiff(g, bg.G)
	db := absDiff(b, bg.B)
	return uint8((299*uint32(dr) + 587*uint32(dg) + 114*uint32(db)) / 1000)
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
