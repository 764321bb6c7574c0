package pdf

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/gen2brain/go-fitz"
	"github.com/sirupsen/logrus"

	"github.com/blockshq/floortiler/internal/imaging"
)

// ErrNoPages is returned for documents without a single page.
var ErrNoPages = errors.New("pdf: document has no pages")

// Renderer rasterizes the first page of a PDF. Floor plans are
// single-page by convention; extra pages are ignored with a warning.
type Renderer struct {
	log *logrus.Logger
}

func NewRenderer(log *logrus.Logger) *Renderer {
	return &Renderer{log: log}
}

// PageSize returns the first page's media box size in points.
func (r *Renderer) PageSize(pdfBytes []byte) (width, height float64, err error) {
	doc, err := fitz.NewFromMemory(pdfBytes)
	if err != nil {
		return 0, 0, fmt.Errorf("pdf: open document: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return 0, 0, ErrNoPages
	}
	bound, err := doc.Bound(0)
	if err != nil {
		return 0, 0, fmt.Errorf("pdf: page bounds: %w", err)
	}
	return float64(bound.Dx()), float64(bound.Dy()), nil
}

// Render rasterizes page one at the requested scale (multiples of the
// document's 72 DPI point size) and returns the raster together with
// the scale actually used. The scale is reduced when the raster would
// exceed maxDimension on either side or the global pixel ceiling.
func (r *Renderer) Render(pdfBytes []byte, scale float64, maxDimension int) (img *image.RGBA, effectiveScale float64, err error) {
	doc, err := fitz.NewFromMemory(pdfBytes)
	if err != nil {
		return nil, 0, fmt.Errorf("pdf: open document: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages == 0 {
		return nil, 0, ErrNoPages
	}
	if pages > 1 {
		r.log.WithField("pages", pages).Warn("multi-page document, rendering first page only")
	}

	bound, err := doc.Bound(0)
	if err != nil {
		return nil, 0, fmt.Errorf("pdf: page bounds: %w", err)
	}
	pageW, pageH := float64(bound.Dx()), float64(bound.Dy())
	if pageW <= 0 || pageH <= 0 {
		return nil, 0, fmt.Errorf("pdf: degenerate page size %vx%v", pageW, pageH)
	}

	effectiveScale = fitScale(scale, pageW, pageH, maxDimension)
	if effectiveScale < scale {
		r.log.WithFields(logrus.Fields{
			"requested_scale": scale,
			"effective_scale": effectiveScale,
		}).Info("reducing render scale to fit size limits")
	}

	rendered, err := doc.ImageDPI(0, effectiveScale*72)
	if err != nil {
		return nil, 0, fmt.Errorf("pdf: render page: %w", err)
	}
	return imaging.ToRGBA(rendered), effectiveScale, nil
}

// fitScale shrinks scale so that neither raster side exceeds
// maxDimension and the total pixel count stays under the allocation
// ceiling.
func fitScale(scale, pageW, pageH float64, maxDimension int) float64 {
	longest := math.Max(pageW, pageH)
	if longest*scale > float64(maxDimension) {
		scale = float64(maxDimension) / longest
	}
	if pixels := pageW * scale * pageH * scale; pixels > imaging.MaxPixels {
		scale *= math.Sqrt(imaging.MaxPixels / pixels)
	}
	return scale
}
