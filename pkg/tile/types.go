package tile

import (
	"image"
	"time"
)

// DefaultTileSize is used whenever an unsupported tile size is requested.
const DefaultTileSize = 256

// TileFormatPNG is the only tile encoding we produce.
const TileFormatPNG = "png"

var allowedTileSizes = map[int]bool{
	128:  true,
	256:  true,
	512:  true,
	1024: true,
}

// ValidTileSize reports whether n is one of the supported tile edge lengths.
func ValidTileSize(n int) bool {
	return allowedTileSizes[n]
}

// NormalizeTileSize returns n if it is a supported tile size, otherwise
// DefaultTileSize. Callers that care about the fallback should warn; an
// unsupported tile size never fails a run.
func NormalizeTileSize(n int) int {
	if ValidTileSize(n) {
		return n
	}
	return DefaultTileSize
}

// ZoomPlan describes the zoom range of a tile pyramid. MinZoom <= MaxZoom
// always holds for plans produced by PlanZoom.
type ZoomPlan struct {
	TileSize int
	MinZoom  int
	MaxZoom  int
}

// Levels returns the zoom levels of the plan, lowest first.
func (p ZoomPlan) Levels() []int {
	levels := make([]int, 0, p.MaxZoom-p.MinZoom+1)
	for z := p.MinZoom; z <= p.MaxZoom; z++ {
		levels = append(levels, z)
	}
	return levels
}

// Tile is a single cell of the pyramid. X and Y are zero-based grid
// indices; Image is always exactly TileSize x TileSize, alpha-padded on
// grid edges.
type Tile struct {
	Zoom  int
	X     int
	Y     int
	Image *image.RGBA
}

// TrimOffset is the displacement, in pixels at full render scale, between
// the untrimmed raster's origin and the trimmed raster's origin. Zero when
// no whitespace trimming occurred.
type TrimOffset struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// Metadata is the persisted description of a tile pyramid, consumed by the
// viewer and by the annotation pipeline. Width and Height are the post-trim
// raster dimensions.
//
// Bounds are raw pixel coordinates [[0, 0], [height, width]] describing the
// CRS.Simple plane of the tiled image. The JSON key names the convention
// explicitly so consumers cannot mistake it for viewer space.
type Metadata struct {
	FloorplanID string        `json:"floorplan_id"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	TileSize    int           `json:"tile_size"`
	MinZoom     int           `json:"min_zoom"`
	MaxZoom     int           `json:"max_zoom"`
	ZoomLevels  []int         `json:"zoom_levels"`
	Bounds      [2][2]float64 `json:"bounds_pixel_space"`
	Center      [2]float64    `json:"center"`
	RenderScale float64       `json:"render_scale"`
	TileFormat  string        `json:"tile_format"`
	TotalTiles  int           `json:"total_tiles"`
	CreatedAt   time.Time     `json:"created_at"`
}

// GridSize returns the tile grid dimensions covering a scaled raster:
// ceil(scaledW/tileSize) x ceil(scaledH/tileSize).
func GridSize(scaledW, scaledH, tileSize int) (nx, ny int) {
	nx = (scaledW + tileSize - 1) / tileSize
	ny = (scaledH + tileSize - 1) / tileSize
	return nx, ny
}

// TotalTiles sums the tile grid sizes of every level in the plan for a
// post-trim raster of the given dimensions.
func TotalTiles(width, height int, plan ZoomPlan) int {
	total := 0
	for _, z := range plan.Levels() {
		sw, sh := ScaledSize(width, height, z, plan.MaxZoom)
		nx, ny := GridSize(sw, sh, plan.TileSize)
		total += nx * ny
	}
	return total
}
