package tiler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/blockshq/floortiler/internal/config"
	"github.com/blockshq/floortiler/internal/imaging"
	"github.com/blockshq/floortiler/internal/storage"
	"github.com/blockshq/floortiler/pkg/tile"
)

// Rasterizer renders the first page of a PDF at a given scale, returning
// the raster and the scale actually applied after size-limit clamping.
type Rasterizer interface {
	Render(pdfBytes []byte, scale float64, maxDimension int) (*image.RGBA, float64, error)
}

// Pipeline turns a floor plan PDF into a stored tile set: render, trim,
// plan zoom, slice, preview, metadata, and the archived source PDF.
type Pipeline struct {
	rasterizer Rasterizer
	store      storage.Store
	cfg        config.Tiling
	log        *logrus.Logger
}

func NewPipeline(r Rasterizer, store storage.Store, cfg config.Tiling, log *logrus.Logger) *Pipeline {
	return &Pipeline{rasterizer: r, store: store, cfg: cfg, log: log}
}

// Process runs the full pipeline and returns the stored metadata.
// progress receives milestone percentages in [0,100] and may be nil.
// The returned metadata's FloorplanID names every stored artifact.
func (p *Pipeline) Process(ctx context.Context, pdfBytes []byte, progress func(int)) (tile.Metadata, error) {
	report := func(pct int) {
		if progress != nil {
			progress(pct)
		}
	}

	id := uuid.NewString()
	log := p.log.WithField("floorplan_id", id)
	report(5)

	raster, effectiveScale, err := p.rasterizer.Render(pdfBytes, p.cfg.RenderScale, p.cfg.MaxDimension)
	if err != nil {
		return tile.Metadata{}, fmt.Errorf("tiler: render: %w", err)
	}
	log.WithFields(logrus.Fields{
		"width":        raster.Bounds().Dx(),
		"height":       raster.Bounds().Dy(),
		"render_scale": effectiveScale,
	}).Info("rendered floor plan")
	report(10)

	trimmed := imaging.Trim(raster, imaging.DefaultBackground, imaging.DefaultTolerance, imaging.DefaultPadding)
	if trimmed != raster {
		log.WithFields(logrus.Fields{
			"width":  trimmed.Bounds().Dx(),
			"height": trimmed.Bounds().Dy(),
		}).Info("trimmed whitespace margins")
	}
	report(15)

	width := trimmed.Bounds().Dx()
	height := trimmed.Bounds().Dy()
	plan := tile.PlanZoom(width, height, p.cfg.TileSize, p.cfg.ZoomBoost,
		p.cfg.MaxZoomLimit, p.cfg.MinZoom, p.cfg.ForcedMaxZoom)
	total := tile.TotalTiles(width, height, plan)
	log.WithFields(logrus.Fields{
		"min_zoom":    plan.MinZoom,
		"max_zoom":    plan.MaxZoom,
		"tile_size":   plan.TileSize,
		"total_tiles": total,
	}).Info("planned zoom levels")
	report(20)

	written := 0
	err = BuildPyramid(trimmed, plan, func(t tile.Tile) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, t.Image); err != nil {
			return fmt.Errorf("encode tile %d/%d/%d: %w", t.Zoom, t.X, t.Y, err)
		}
		key := fmt.Sprintf("%s/tiles/%d/%d/%d.png", id, t.Zoom, t.X, t.Y)
		if err := p.store.Put(ctx, key, &buf, "image/png"); err != nil {
			return err
		}
		written++
		if total > 0 {
			report(20 + written*65/total)
		}
		return nil
	})
	if err != nil {
		return tile.Metadata{}, fmt.Errorf("tiler: build pyramid: %w", err)
	}
	report(85)

	if err := p.storePreview(ctx, id, trimmed); err != nil {
		return tile.Metadata{}, err
	}
	report(90)

	meta := ComposeMetadata(id, width, height, plan, effectiveScale, time.Now())
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return tile.Metadata{}, fmt.Errorf("tiler: marshal metadata: %w", err)
	}
	if err := p.store.Put(ctx, id+"/metadata.json", bytes.NewReader(metaJSON), "application/json"); err != nil {
		return tile.Metadata{}, fmt.Errorf("tiler: store metadata: %w", err)
	}
	report(95)

	// Keep the source document for later annotation burn-in.
	archiveKey := fmt.Sprintf("%s/%s.pdf", id, id)
	if err := p.store.Put(ctx, archiveKey, bytes.NewReader(pdfBytes), "application/pdf"); err != nil {
		return tile.Metadata{}, fmt.Errorf("tiler: archive source: %w", err)
	}
	report(100)

	log.WithField("tiles", written).Info("tile set complete")
	return meta, nil
}

func (p *Pipeline) storePreview(ctx context.Context, id string, img *image.RGBA) error {
	preview, err := Preview(img)
	if err != nil {
		return fmt.Errorf("tiler: preview: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, preview, &jpeg.Options{Quality: PreviewJPEGQuality}); err != nil {
		return fmt.Errorf("tiler: encode preview: %w", err)
	}
	if err := p.store.Put(ctx, id+"/preview.jpg", &buf, "image/jpeg"); err != nil {
		return fmt.Errorf("tiler: store preview: %w", err)
	}
	return nil
}
