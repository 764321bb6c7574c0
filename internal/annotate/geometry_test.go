package annotate

import (
	"math"
	"testing"

	"github.com/blockshq/floortiler/internal/pdf"
	"github.com/blockshq/floortiler/pkg/tile"
)

func testMetadata() tile.Metadata {
	return tile.Metadata{
		FloorplanID: "fp",
		MaxZoom:     8,
		RenderScale: 10,
	}
}

func TestMapGeometryMarker(t *testing.T) {
	off := tile.TrimOffset{Left: 50, Top: 20}
	g := Geometry{Kind: KindMarker, Point: [2]float64{3.2, -1.5}, Label: "Desk 4"}

	shape, err := MapGeometry(g, testMetadata(), off)
	if err != nil {
		t.Fatal(err)
	}
	if shape.Kind != pdf.ShapeMarker || shape.Label != "Desk 4" {
		t.Fatalf("shape = %+v", shape)
	}
	// (3.2*256 + 50)/10 and (1.5*256 + 20)/10.
	if math.Abs(shape.Points[0][0]-86.92) > 1e-9 || math.Abs(shape.Points[0][1]-40.4) > 1e-9 {
		t.Fatalf("point = %v", shape.Points[0])
	}
}

func TestMapGeometryPolygon(t *testing.T) {
	g := Geometry{
		Kind: KindPolygon,
		Ring: [][2]float64{{0, 0}, {1, 0}, {1, -1}},
	}
	shape, err := MapGeometry(g, testMetadata(), tile.TrimOffset{})
	if err != nil {
		t.Fatal(err)
	}
	if shape.Kind != pdf.ShapePolygon || len(shape.Points) != 3 {
		t.Fatalf("shape = %+v", shape)
	}
	// Viewer (1, -1) is 256 render pixels right and down, 25.6 points.
	if math.Abs(shape.Points[2][0]-25.6) > 1e-9 || math.Abs(shape.Points[2][1]-25.6) > 1e-9 {
		t.Fatalf("points = %v", shape.Points)
	}
}

func TestMapGeometryRectangle(t *testing.T) {
	g := Geometry{
		Kind:  KindRectangle,
		Ring:  [][2]float64{{0, 0}, {2, 0}, {2, -1}, {0, -1}},
		Label: "Meeting room",
	}
	shape, err := MapGeometry(g, testMetadata(), tile.TrimOffset{})
	if err != nil {
		t.Fatal(err)
	}
	// Rectangles draw through the polygon path.
	if shape.Kind != pdf.ShapePolygon || len(shape.Points) != 4 {
		t.Fatalf("shape = %+v", shape)
	}
	if math.Abs(shape.Points[1][0]-51.2) > 1e-9 || math.Abs(shape.Points[2][1]-25.6) > 1e-9 {
		t.Fatalf("points = %v", shape.Points)
	}

	short := Geometry{Kind: KindRectangle, Ring: [][2]float64{{0, 0}, {1, 0}}}
	if _, err := MapGeometry(short, testMetadata(), tile.TrimOffset{}); err == nil {
		t.Fatal("two-point rectangle accepted")
	}
}

func TestMapGeometryRejectsInvalid(t *testing.T) {
	meta := testMetadata()
	if _, err := MapGeometry(Geometry{Kind: KindPolygon, Ring: [][2]float64{{0, 0}}}, meta, tile.TrimOffset{}); err == nil {
		t.Fatal("short ring accepted")
	}
	if _, err := MapGeometry(Geometry{Kind: "circle"}, meta, tile.TrimOffset{}); err == nil {
		t.Fatal("unknown kind accepted")
	}
}
