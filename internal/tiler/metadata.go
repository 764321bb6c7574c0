package tiler

import (
	"time"

	"github.com/blockshq/floortiler/pkg/tile"
)

// ComposeMetadata assembles the persisted description of a finished tile
// set. Width and height are the post-trim raster dimensions;
// renderScale is the scale actually used, after any size-limit
// reduction.
func ComposeMetadata(id string, width, height int, plan tile.ZoomPlan, renderScale float64, createdAt time.Time) tile.Metadata {
	return tile.Metadata{
		FloorplanID: id,
		Width:       width,
		Height:      height,
		TileSize:    plan.TileSize,
		MinZoom:     plan.MinZoom,
		MaxZoom:     plan.MaxZoom,
		ZoomLevels:  plan.Levels(),
		Bounds:      [2][2]float64{{0, 0}, {float64(height), float64(width)}},
		Center:      [2]float64{float64(height) / 2, float64(width) / 2},
		RenderScale: renderScale,
		TileFormat:  tile.TileFormatPNG,
		TotalTiles:  tile.TotalTiles(width, height, plan),
		CreatedAt:   createdAt.UTC(),
	}
}
