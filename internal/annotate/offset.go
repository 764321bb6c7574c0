package annotate

import (
	"image"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/blockshq/floortiler/internal/imaging"
	"github.com/blockshq/floortiler/pkg/tile"
)

// DetectScale is the cheap rasterization scale used to reconstruct the
// trim offset. Detection only needs the content bounding box, not a
// print-quality raster.
const DetectScale = 2.0

// Rasterizer renders the first page of a PDF, mirroring the render step
// of the tiling pipeline, and reports the page's point size.
type Rasterizer interface {
	PageSize(pdfBytes []byte) (width, height float64, err error)
	Render(pdfBytes []byte, scale float64, maxDimension int) (*image.RGBA, float64, error)
}

// Detector reconstructs the whitespace trim applied while tiling, so
// viewer coordinates can be mapped back onto the untrimmed PDF page.
type Detector struct {
	raster       Rasterizer
	maxDimension int
	log          *logrus.Logger
}

func NewDetector(r Rasterizer, maxDimension int, log *logrus.Logger) *Detector {
	return &Detector{raster: r, maxDimension: maxDimension, log: log}
}

// DetectOffset re-runs the pipeline's content detection at DetectScale
// and returns the trim origin in pixels at renderScale. trimmedW and
// trimmedH are the persisted post-trim raster dimensions. Detection is
// best effort: any condition under which the pipeline would not have
// trimmed yields a zero offset.
func (d *Detector) DetectOffset(pdfBytes []byte, renderScale float64, trimmedW, trimmedH int) (tile.TrimOffset, error) {
	pageW, pageH, err := d.raster.PageSize(pdfBytes)
	if err != nil {
		return tile.TrimOffset{}, err
	}

	// Persisted dimensions within a pixel of the full-page render mean
	// no trim ever happened; skip the detection render entirely.
	if math.Abs(pageW*renderScale-float64(trimmedW)) <= 1 &&
		math.Abs(pageH*renderScale-float64(trimmedH)) <= 1 {
		return tile.TrimOffset{}, nil
	}

	img, scale, err := d.raster.Render(pdfBytes, DetectScale, d.maxDimension)
	if err != nil {
		return tile.TrimOffset{}, err
	}

	box, ok := imaging.ContentBounds(img, imaging.DefaultBackground, imaging.DefaultTolerance)
	if !ok {
		d.log.Warn("no foreground content found, assuming untrimmed page")
		return tile.TrimOffset{}, nil
	}

	// The pipeline pads in full-scale pixels; convert to detection
	// pixels before expanding.
	detectPadding := int(math.Round(imaging.DefaultPadding * scale / renderScale))
	padded := imaging.Expand(box, detectPadding).Intersect(img.Bounds())

	// Within a pixel of the full raster means the pipeline's trim was a
	// no-op.
	if padded.Dx() >= img.Bounds().Dx()-1 && padded.Dy() >= img.Bounds().Dy()-1 {
		return tile.TrimOffset{}, nil
	}

	ratio := renderScale / scale
	return tile.TrimOffset{
		Left: float64(padded.Min.X) * ratio,
		Top:  float64(padded.Min.Y) * ratio,
	}, nil
}
