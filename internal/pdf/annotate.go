package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Annotation styling. Polygons are red with a light translucent fill so
// the underlying floor plan stays readable; markers read denser, with a
// thin dark-red outline. Labels sit on a white box.
const (
	fillOpacity   = 0.3
	strokeOpacity = 0.8
	strokeWidth   = 2.0

	markerFillOpacity = 0.7
	markerStrokeWidth = 1.5
	markerRadius      = 8.0 // points

	labelFontSize = 10.0
	labelPadding  = 2.0

	// Kappa for approximating a quarter circle with one cubic Bézier.
	circleKappa = 0.5523
)

// Shape kinds accepted by Burn.
const (
	ShapePolygon = "polygon"
	ShapeMarker  = "marker"
)

// Shape is one annotation in page coordinates: points with a top-left
// origin, matching the rendered raster divided by the render scale.
// Polygons carry their ring in Points; markers carry a single center.
type Shape struct {
	Kind   string
	Points [][2]float64
	Label  string
}

// Burn draws shapes into the first page's content stream and returns
// the rewritten document. The original page content is preserved inside
// a graphics-state sandwich so annotation state cannot leak into it.
func Burn(pdfBytes []byte, shapes []Shape) ([]byte, error) {
	if len(shapes) == 0 {
		return nil, errors.New("pdf: no shapes to burn")
	}

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(pdfBytes), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("pdf: read document: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	if ctx.PageCount == 0 {
		return nil, ErrNoPages
	}

	pageDict, _, inh, err := ctx.PageDict(1, false)
	if err != nil {
		return nil, fmt.Errorf("pdf: page dict: %w", err)
	}
	if pageDict == nil {
		return nil, errors.New("pdf: missing page dict")
	}

	box := inh.CropBox
	if box == nil {
		box = inh.MediaBox
	}
	if box == nil {
		return nil, errors.New("pdf: page has no media box")
	}

	if err := installResources(ctx, pageDict, inh); err != nil {
		return nil, err
	}

	content, err := ctx.PageContent(pageDict, 1)
	if err != nil {
		return nil, fmt.Errorf("pdf: page content: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("q ")
	buf.Write(content)
	buf.WriteString(" Q\n")
	for _, s := range shapes {
		if err := writeShape(&buf, s, box); err != nil {
			return nil, err
		}
	}

	streamDict, _ := ctx.NewStreamDictForBuf(buf.Bytes())
	if err := streamDict.Encode(); err != nil {
		return nil, fmt.Errorf("pdf: encode content: %w", err)
	}
	indRef, err := ctx.IndRefForNewObject(*streamDict)
	if err != nil {
		return nil, fmt.Errorf("pdf: new content object: %w", err)
	}
	pageDict["Contents"] = *indRef

	var out bytes.Buffer
	if err := api.WriteContext(ctx, &out); err != nil {
		return nil, fmt.Errorf("pdf: write document: %w", err)
	}
	return out.Bytes(), nil
}

// installResources registers the translucency graphics state and the
// label font under the page's resource dict, creating one if the page
// has none of its own.
func installResources(ctx *model.Context, pageDict types.Dict, inh *model.InheritedPageAttrs) error {
	res := inh.Resources
	if res == nil {
		res = types.Dict{}
		pageDict["Resources"] = res
	}

	gsDict, err := resourceSubdict(ctx, res, "ExtGState")
	if err != nil {
		return err
	}
	gsDict["GSburn"] = types.Dict{
		"Type": types.Name("ExtGState"),
		"ca":   types.Float(fillOpacity),
		"CA":   types.Float(strokeOpacity),
	}
	gsDict["GSmark"] = types.Dict{
		"Type": types.Name("ExtGState"),
		"ca":   types.Float(markerFillOpacity),
		"CA":   types.Float(1.0),
	}

	fontDict, err := resourceSubdict(ctx, res, "Font")
	if err != nil {
		return err
	}
	fontDict["Fburn"] = types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name("Helvetica"),
	}
	return nil
}

func resourceSubdict(ctx *model.Context, res types.Dict, name string) (types.Dict, error) {
	obj, ok := res[name]
	if !ok {
		d := types.Dict{}
		res[name] = d
		return d, nil
	}
	d, err := ctx.DereferenceDict(obj)
	if err != nil {
		return nil, fmt.Errorf("pdf: resolve %s resources: %w", name, err)
	}
	if d == nil {
		d = types.Dict{}
		res[name] = d
	}
	return d, nil
}

// writeShape emits the drawing operators for one shape. Incoming points
// use a top-left origin and are flipped into PDF space here.
func writeShape(buf *bytes.Buffer, s Shape, box *types.Rectangle) error {
	flip := func(p [2]float64) (float64, float64) {
		return box.LL.X + p[0], box.LL.Y + (box.Height() - p[1])
	}

	switch s.Kind {
	case ShapePolygon:
		if len(s.Points) < 3 {
			return fmt.Errorf("pdf: polygon needs at least 3 points, got %d", len(s.Points))
		}
		buf.WriteString("q /GSburn gs 1 0 0 RG 1 0 0 rg ")
		fmt.Fprintf(buf, "%.2f w ", strokeWidth)
		x, y := flip(s.Points[0])
		fmt.Fprintf(buf, "%.2f %.2f m ", x, y)
		for _, p := range s.Points[1:] {
			x, y = flip(p)
			fmt.Fprintf(buf, "%.2f %.2f l ", x, y)
		}
		buf.WriteString("h B Q\n")

	case ShapeMarker:
		if len(s.Points) != 1 {
			return fmt.Errorf("pdf: marker needs exactly 1 point, got %d", len(s.Points))
		}
		buf.WriteString("q /GSmark gs 0.6 0 0 RG 1 0 0 rg ")
		fmt.Fprintf(buf, "%.2f w ", markerStrokeWidth)
		cx, cy := flip(s.Points[0])
		writeCircle(buf, cx, cy, markerRadius)
		buf.WriteString("Q\n")

	default:
		return fmt.Errorf("pdf: unknown shape kind %q", s.Kind)
	}

	if s.Label != "" {
		lx, ly := flip(labelAnchor(s))
		writeLabel(buf, s.Label, lx+markerRadius, ly+markerRadius)
	}
	return nil
}

// writeLabel draws the label text on a white background box, outside
// any translucency state so it stays legible over dense drawings. The
// box width uses the Helvetica average advance of half an em.
func writeLabel(buf *bytes.Buffer, label string, x, y float64) {
	w := labelFontSize * 0.5 * float64(len(label))
	fmt.Fprintf(buf, "q 1 1 1 rg %.2f %.2f %.2f %.2f re f ",
		x-labelPadding, y-labelPadding, w+2*labelPadding, labelFontSize+2*labelPadding)
	fmt.Fprintf(buf, "BT /Fburn %.1f Tf 0.6 0 0 rg %.2f %.2f Td (%s) Tj ET Q\n",
		labelFontSize, x, y, escapeText(label))
}

// writeCircle approximates a filled-and-stroked circle with four cubic
// Bézier segments.
func writeCircle(buf *bytes.Buffer, cx, cy, r float64) {
	k := circleKappa * r
	fmt.Fprintf(buf, "%.2f %.2f m ", cx+r, cy)
	fmt.Fprintf(buf, "%.2f %.2f %.2f %.2f %.2f %.2f c ", cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	fmt.Fprintf(buf, "%.2f %.2f %.2f %.2f %.2f %.2f c ", cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	fmt.Fprintf(buf, "%.2f %.2f %.2f %.2f %.2f %.2f c ", cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	fmt.Fprintf(buf, "%.2f %.2f %.2f %.2f %.2f %.2f c ", cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	buf.WriteString("h B ")
}

func labelAnchor(s Shape) [2]float64 {
	return s.Points[0]
}

func escapeText(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
