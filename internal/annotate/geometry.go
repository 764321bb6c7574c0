package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blockshq/floortiler/internal/pdf"
	"github.com/blockshq/floortiler/internal/storage"
	"github.com/blockshq/floortiler/pkg/tile"
)

// Geometry kinds accepted by the annotation service. Rectangles are
// polygons drawn from a ring, usually of four corners; they keep their
// own kind so clients can round-trip the distinction.
const (
	KindMarker    = "marker"
	KindPolygon   = "polygon"
	KindRectangle = "rectangle"
)

// Geometry is one annotation in viewer coordinates, the CRS.Simple
// plane the Leaflet client works in. Markers carry Point; polygons
// carry Ring.
type Geometry struct {
	Kind  string
	Point [2]float64
	Ring  [][2]float64
	Label string
}

// Service burns viewer-space annotations into the archived source PDF
// of a tiled floor plan.
type Service struct {
	store    storage.Store
	detector *Detector
	log      *logrus.Logger
}

func NewService(store storage.Store, detector *Detector, log *logrus.Logger) *Service {
	return &Service{store: store, detector: detector, log: log}
}

// Annotate maps geoms from viewer space onto the original page, burns
// them into the archived PDF, stores a timestamped copy next to the
// tile set and returns the annotated document.
func (s *Service) Annotate(ctx context.Context, floorplanID string, geoms []Geometry) ([]byte, error) {
	if len(geoms) == 0 {
		return nil, fmt.Errorf("annotate: no geometries for %s", floorplanID)
	}

	meta, err := s.loadMetadata(ctx, floorplanID)
	if err != nil {
		return nil, err
	}
	pdfBytes, err := s.loadArchive(ctx, floorplanID)
	if err != nil {
		return nil, err
	}

	offset, err := s.detector.DetectOffset(pdfBytes, meta.RenderScale, meta.Width, meta.Height)
	if err != nil {
		return nil, fmt.Errorf("annotate: detect trim offset: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"floorplan_id": floorplanID,
		"offset_left":  offset.Left,
		"offset_top":   offset.Top,
	}).Debug("detected trim offset")

	shapes := make([]pdf.Shape, 0, len(geoms))
	for i, g := range geoms {
		shape, err := MapGeometry(g, meta, offset)
		if err != nil {
			return nil, fmt.Errorf("annotate: geometry %d: %w", i, err)
		}
		shapes = append(shapes, shape)
	}

	annotated, err := pdf.Burn(pdfBytes, shapes)
	if err != nil {
		return nil, fmt.Errorf("annotate: burn: %w", err)
	}

	key := fmt.Sprintf("%s/annotated-%s.pdf", floorplanID, time.Now().UTC().Format("20060102-150405"))
	if err := s.store.Put(ctx, key, bytes.NewReader(annotated), "application/pdf"); err != nil {
		return nil, fmt.Errorf("annotate: store copy: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"floorplan_id": floorplanID,
		"key":          key,
		"shapes":       len(shapes),
	}).Info("annotated floor plan")

	return annotated, nil
}

// MapGeometry converts one viewer-space geometry into a page-space
// shape using the tile set's zoom and render parameters.
func MapGeometry(g Geometry, meta tile.Metadata, offset tile.TrimOffset) (pdf.Shape, error) {
	toPage := func(p [2]float64) [2]float64 {
		x, y := tile.ViewerToPage(p[0], p[1], meta.MaxZoom, meta.RenderScale, offset)
		return [2]float64{x, y}
	}

	switch g.Kind {
	case KindMarker:
		return pdf.Shape{
			Kind:   pdf.ShapeMarker,
			Points: [][2]float64{toPage(g.Point)},
			Label:  g.Label,
		}, nil

	case KindPolygon, KindRectangle:
		if len(g.Ring) < 3 {
			return pdf.Shape{}, fmt.Errorf("%s ring needs at least 3 points, got %d", g.Kind, len(g.Ring))
		}
		pts := make([][2]float64, len(g.Ring))
		for i, p := range g.Ring {
			pts[i] = toPage(p)
		}
		return pdf.Shape{Kind: pdf.ShapePolygon, Points: pts, Label: g.Label}, nil

	default:
		return pdf.Shape{}, fmt.Errorf("unknown geometry kind %q", g.Kind)
	}
}

func (s *Service) loadMetadata(ctx context.Context, id string) (tile.Metadata, error) {
	rc, err := s.store.Get(ctx, id+"/metadata.json")
	if err != nil {
		return tile.Metadata{}, fmt.Errorf("annotate: load metadata: %w", err)
	}
	defer rc.Close()

	var meta tile.Metadata
	if err := json.NewDecoder(rc).Decode(&meta); err != nil {
		return tile.Metadata{}, fmt.Errorf("annotate: decode metadata: %w", err)
	}
	return meta, nil
}

func (s *Service) loadArchive(ctx context.Context, id string) ([]byte, error) {
	rc, err := s.store.Get(ctx, fmt.Sprintf("%s/%s.pdf", id, id))
	if err != nil {
		return nil, fmt.Errorf("annotate: load archived pdf: %w", err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
