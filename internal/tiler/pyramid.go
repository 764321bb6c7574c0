package tiler

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/blockshq/floortiler/internal/imaging"
	"github.com/blockshq/floortiler/pkg/tile"
)

// BuildPyramid slices src into the tile grid of every zoom level in
// plan, highest zoom first, and hands each tile to emit. The source is
// used directly at max zoom; lower levels are resampled from it and
// released before the next level starts, so peak memory is the source
// plus one downsampled copy.
//
// Edge tiles are never stretched: the image region is drawn at the
// origin of a transparent tile-sized canvas and the remainder stays
// fully transparent.
func BuildPyramid(src *image.RGBA, plan tile.ZoomPlan, emit func(tile.Tile) error) error {
	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()

	for zoom := plan.MaxZoom; zoom >= plan.MinZoom; zoom-- {
		level := src
		if zoom != plan.MaxZoom {
			w, h := tile.ScaledSize(srcW, srcH, zoom, plan.MaxZoom)
			var err error
			level, err = imaging.Resample(src, w, h)
			if err != nil {
				return fmt.Errorf("tiler: zoom %d: %w", zoom, err)
			}
		}

		if err := sliceLevel(level, zoom, plan.TileSize, emit); err != nil {
			return fmt.Errorf("tiler: zoom %d: %w", zoom, err)
		}
	}
	return nil
}

func sliceLevel(level *image.RGBA, zoom, tileSize int, emit func(tile.Tile) error) error {
	cols, rows := tile.GridSize(level.Bounds().Dx(), level.Bounds().Dy(), tileSize)
	b := level.Bounds()

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			region := image.Rect(
				b.Min.X+x*tileSize,
				b.Min.Y+y*tileSize,
				b.Min.X+(x+1)*tileSize,
				b.Min.Y+(y+1)*tileSize,
			).Intersect(b)

			canvas := image.NewRGBA(image.Rect(0, 0, tileSize, tileSize))
			draw.Draw(canvas, image.Rect(0, 0, region.Dx(), region.Dy()), level, region.Min, draw.Src)

			if err := emit(tile.Tile{Zoom: zoom, X: x, Y: y, Image: canvas}); err != nil {
				return err
			}
		}
	}
	return nil
}
