package tiler

import (
	"image"
	"image/color"
	"testing"

	"github.com/blockshq/floortiler/pkg/tile"
)

func opaqueCanvas(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestBuildPyramidTileCountsAndOrder(t *testing.T) {
	src := opaqueCanvas(1000, 1000, color.RGBA{10, 20, 30, 255})
	plan := tile.ZoomPlan{TileSize: 256, MinZoom: 0, MaxZoom: 2}

	perZoom := map[int]int{}
	var zoomOrder []int
	err := BuildPyramid(src, plan, func(tl tile.Tile) error {
		if tl.Image.Bounds().Dx() != 256 || tl.Image.Bounds().Dy() != 256 {
			t.Fatalf("tile %d/%d/%d has size %v", tl.Zoom, tl.X, tl.Y, tl.Image.Bounds())
		}
		if perZoom[tl.Zoom] == 0 {
			zoomOrder = append(zoomOrder, tl.Zoom)
		}
		perZoom[tl.Zoom]++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// 1000px at zoom 2 is the source: 4x4 grid. Zoom 1 is 500px: 2x2.
	// Zoom 0 is 250px: 1x1.
	if perZoom[2] != 16 || perZoom[1] != 4 || perZoom[0] != 1 {
		t.Fatalf("tile counts = %v", perZoom)
	}
	if len(zoomOrder) != 3 || zoomOrder[0] != 2 || zoomOrder[2] != 0 {
		t.Fatalf("zoom order = %v, want highest first", zoomOrder)
	}
}

func TestBuildPyramidEdgeTilesAlphaPadded(t *testing.T) {
	// 300x300 at tile size 256: the right column tile covers only 44px.
	src := opaqueCanvas(300, 300, color.RGBA{50, 50, 50, 255})
	plan := tile.ZoomPlan{TileSize: 256, MinZoom: 0, MaxZoom: 0}

	var edge *tile.Tile
	err := BuildPyramid(src, plan, func(tl tile.Tile) error {
		if tl.X == 1 && tl.Y == 0 {
			cp := tl
			edge = &cp
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if edge == nil {
		t.Fatal("edge tile not emitted")
	}

	// Content sits at the origin of the canvas.
	if got := edge.Image.RGBAAt(0, 0); got.A != 255 {
		t.Fatalf("content corner transparent: %v", got)
	}
	if got := edge.Image.RGBAAt(43, 0); got.A != 255 {
		t.Fatalf("last content column transparent: %v", got)
	}
	// Beyond the image extent the tile stays fully transparent.
	if got := edge.Image.RGBAAt(44, 0); got.A != 0 {
		t.Fatalf("padding not transparent: %v", got)
	}
	if got := edge.Image.RGBAAt(255, 255); got.A != 0 {
		t.Fatalf("far corner not transparent: %v", got)
	}
}

func TestBuildPyramidSingleTileAtLowZoom(t *testing.T) {
	src := opaqueCanvas(1000, 1000, color.RGBA{200, 0, 0, 255})
	plan := tile.ZoomPlan{TileSize: 256, MinZoom: 0, MaxZoom: 2}

	var zoomZero []tile.Tile
	err := BuildPyramid(src, plan, func(tl tile.Tile) error {
		if tl.Zoom == 0 {
			zoomZero = append(zoomZero, tl)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(zoomZero) != 1 {
		t.Fatalf("zoom 0 tiles = %d, want 1", len(zoomZero))
	}

	// The whole plan fits in 250x250 of the 256 canvas; the strip past
	// 250 is padding.
	img := zoomZero[0].Image
	if got := img.RGBAAt(100, 100); got.A != 255 {
		t.Fatalf("downsampled content transparent: %v", got)
	}
	if got := img.RGBAAt(255, 100); got.A != 0 {
		t.Fatalf("padding opaque: %v", got)
	}
}

func TestPreviewDownscalesWideImages(t *testing.T) {
	src := opaqueCanvas(1600, 400, color.RGBA{0, 0, 0, 255})
	out, err := Preview(src)
	if err != nil {
		t.Fatal(err)
	}
	if out.Bounds().Dx() != PreviewMaxWidth || out.Bounds().Dy() != 200 {
		t.Fatalf("preview size = %v", out.Bounds())
	}
}

func TestPreviewKeepsNarrowImages(t *testing.T) {
	src := opaqueCanvas(400, 300, color.RGBA{0, 0, 0, 255})
	out, err := Preview(src)
	if err != nil {
		t.Fatal(err)
	}
	if out != src {
		t.Fatal("narrow image should be returned untouched")
	}
}
