package tile

import "math"

// PlanZoom computes the zoom range for a post-trim raster.
//
// When forcedMaxZoom is >= 0 it overrides the auto-derivation and is only
// clamped to [0, maxZoomLimit]. Otherwise the base zoom is the smallest
// zoom at which the longer image dimension needs a single further doubling
// to exceed the tile size, and boost adds deep-zoom levels rendered by
// upsampling beyond native resolution. The boost is reduced whenever the
// shorter dimension would collapse below half a tile at zoom 0; the extra
// levels would add tile-grid overhead without navigable content.
func PlanZoom(width, height, tileSize, boost, maxZoomLimit, minZoom, forcedMaxZoom int) ZoomPlan {
	tileSize = NormalizeTileSize(tileSize)
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if maxZoomLimit < 0 {
		maxZoomLimit = 0
	}

	var maxZoom int
	if forcedMaxZoom >= 0 {
		maxZoom = clamp(forcedMaxZoom, 0, maxZoomLimit)
	} else {
		maxDim := float64(max(width, height))
		minDim := float64(min(width, height))

		baseZoom := int(math.Ceil(math.Log2(maxDim / float64(tileSize))))

		minDimAtBoosted := minDim / math.Exp2(float64(baseZoom+boost))
		if minDimAtBoosted < float64(tileSize)/2 {
			adjusted := int(math.Floor(math.Log2(minDim/(float64(tileSize)/2)))) - baseZoom
			if adjusted < 0 {
				adjusted = 0
			}
			maxZoom = clamp(baseZoom+adjusted, 0, maxZoomLimit)
		} else {
			maxZoom = clamp(baseZoom+boost, 0, maxZoomLimit)
		}
	}

	return ZoomPlan{
		TileSize: tileSize,
		MinZoom:  clamp(minZoom, 0, maxZoom),
		MaxZoom:  maxZoom,
	}
}

// ScaledSize returns the raster dimensions at the given zoom level,
// rounding half away from zero. The result is never smaller than 1x1.
func ScaledSize(width, height, zoom, maxZoom int) (int, int) {
	scale := math.Exp2(float64(zoom - maxZoom))
	sw := int(math.Round(float64(width) * scale))
	sh := int(math.Round(float64(height) * scale))
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	return sw, sh
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
