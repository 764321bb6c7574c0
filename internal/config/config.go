package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/blockshq/floortiler/pkg/tile"
)

// Tiling holds the tunables of the rasterize-and-tile pipeline. Every
// field can be overridden through the environment.
type Tiling struct {
	// RenderScale multiplies the PDF's 72 DPI point size when
	// rasterizing. 50.0 yields roughly 3600 DPI before clamping.
	RenderScale float64

	// MaxDimension caps either side of the rendered raster in pixels.
	// The render scale is reduced proportionally to fit.
	MaxDimension int

	// TileSize is the square tile edge in pixels. Must be one of the
	// supported sizes; unsupported values fall back to the default.
	TileSize int

	// ZoomBoost adds extra zoom levels beyond the level at which the
	// larger image side first fits a single tile.
	ZoomBoost int

	// MaxZoomLimit is the absolute ceiling on the maximum zoom level.
	MaxZoomLimit int

	// MinZoom is the lowest zoom level generated.
	MinZoom int

	// ForcedMaxZoom pins the maximum zoom level when non-negative; -1
	// selects automatic planning.
	ForcedMaxZoom int
}

// Defaults mirrored by the environment bindings below.
const (
	DefaultRenderScale  = 50.0
	DefaultMaxDimension = 30000
	DefaultZoomBoost    = 3
	DefaultMaxZoomLimit = 12
)

var envKeys = map[string]any{
	"PDF_SCALE":      DefaultRenderScale,
	"MAX_DIMENSION":  DefaultMaxDimension,
	"TILE_SIZE":      512,
	"ZOOM_BOOST":     DefaultZoomBoost,
	"MAX_ZOOM_LIMIT": DefaultMaxZoomLimit,
	"MIN_ZOOM":       0,
	"FORCED_MAX_Z":   -1,
}

// BindDefaults registers the default value of every tiling key on v.
// The CLI layer calls this on the shared viper instance before binding
// its flags to the same keys.
func BindDefaults(v *viper.Viper) {
	for key, def := range envKeys {
		v.SetDefault(key, def)
	}
}

// LoadTiling reads the tiling configuration from v, which must resolve
// the environment, and validates it. Invalid values are corrected with
// a warning rather than failing startup.
func LoadTiling(v *viper.Viper, log *logrus.Logger) (Tiling, error) {
	BindDefaults(v)
	v.AutomaticEnv()

	cfg := Tiling{
		RenderScale:   v.GetFloat64("PDF_SCALE"),
		MaxDimension:  v.GetInt("MAX_DIMENSION"),
		TileSize:      v.GetInt("TILE_SIZE"),
		ZoomBoost:     v.GetInt("ZOOM_BOOST"),
		MaxZoomLimit:  v.GetInt("MAX_ZOOM_LIMIT"),
		MinZoom:       v.GetInt("MIN_ZOOM"),
		ForcedMaxZoom: v.GetInt("FORCED_MAX_Z"),
	}
	if err := cfg.Validate(log); err != nil {
		return Tiling{}, err
	}
	return cfg, nil
}

// Validate corrects out-of-range values in place, logging each
// correction. Only contradictions that cannot be corrected return an
// error.
func (c *Tiling) Validate(log *logrus.Logger) error {
	if c.RenderScale <= 0 {
		return fmt.Errorf("config: render scale must be positive, got %v", c.RenderScale)
	}
	if c.MaxDimension < 1 {
		return fmt.Errorf("config: max dimension must be positive, got %d", c.MaxDimension)
	}
	if !tile.ValidTileSize(c.TileSize) {
		if log != nil {
			log.WithFields(logrus.Fields{
				"tile_size": c.TileSize,
				"fallback":  tile.DefaultTileSize,
			}).Warn("unsupported tile size, using default")
		}
		c.TileSize = tile.DefaultTileSize
	}
	if c.ZoomBoost < 0 {
		c.ZoomBoost = 0
	}
	if c.MinZoom < 0 {
		c.MinZoom = 0
	}
	if c.MaxZoomLimit < c.MinZoom {
		return fmt.Errorf("config: max zoom limit %d below min zoom %d", c.MaxZoomLimit, c.MinZoom)
	}
	if c.ForcedMaxZoom > c.MaxZoomLimit {
		if log != nil {
			log.WithFields(logrus.Fields{
				"forced_max_zoom": c.ForcedMaxZoom,
				"limit":           c.MaxZoomLimit,
			}).Warn("forced max zoom above limit, clamping")
		}
		c.ForcedMaxZoom = c.MaxZoomLimit
	}
	return nil
}
