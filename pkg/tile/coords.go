package tile

import "math"

// PixelToViewer maps a post-trim pixel coordinate into CRS.Simple viewer
// space: (px / 2^maxZoom, -py / 2^maxZoom). The Y axis is negated because
// the viewer's origin sits at the top-left with an inverted vertical axis
// relative to raw pixel rows. Tile size plays no part in this mapping.
func PixelToViewer(px, py float64, maxZoom int) (vx, vy float64) {
	s := math.Exp2(float64(maxZoom))
	return px / s, -py / s
}

// ViewerToPage maps a viewer-space coordinate back into the original page's
// point space (top-left origin, Y increasing downward):
//
//	pageX = (vx*2^maxZoom + off.Left) / renderScale
//	pageY = (-vy*2^maxZoom + off.Top) / renderScale
//
// off compensates for whitespace trimming; with a zero offset this is the
// exact inverse of PixelToViewer followed by the points->pixels scale.
func ViewerToPage(vx, vy float64, maxZoom int, renderScale float64, off TrimOffset) (x, y float64) {
	s := math.Exp2(float64(maxZoom))
	x = (vx*s + off.Left) / renderScale
	y = (-vy*s + off.Top) / renderScale
	return x, y
}
