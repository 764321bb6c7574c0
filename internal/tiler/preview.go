package tiler

import (
	"image"

	"github.com/blockshq/floortiler/internal/imaging"
)

const (
	// PreviewMaxWidth bounds the thumbnail written next to each tile set.
	PreviewMaxWidth = 800

	// PreviewJPEGQuality is the encoder quality for the thumbnail.
	PreviewJPEGQuality = 75
)

// Preview downscales src to at most PreviewMaxWidth wide, preserving
// aspect ratio. Images already narrow enough are returned as-is.
func Preview(src *image.RGBA) (*image.RGBA, error) {
	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	if w <= PreviewMaxWidth {
		return src, nil
	}
	scaled := PreviewMaxWidth * h / w
	return imaging.Resample(src, PreviewMaxWidth, scaled)
}
