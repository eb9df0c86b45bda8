package pathtrace

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taigrr/sunlit/pkg/geometry"
	"github.com/taigrr/sunlit/pkg/log"
	"github.com/taigrr/sunlit/pkg/math3d"
)

// ErrInvalidSize is returned for non-positive image dimensions.
var ErrInvalidSize = errors.New("invalid image size")

var logger = log.New("pathtrace")

// FrameParams are the per-frame inputs of a dispatch.
type FrameParams struct {
	Frame             uint32
	CameraToWorld     math3d.Mat4
	InverseProjection math3d.Mat4
}

// FrameStats summarizes one dispatch.
type FrameStats struct {
	Frame    uint32
	Tiles    int
	Pixels   int
	Duration time.Duration
}

// Renderer owns the accumulation buffer of one image and the read-only
// scene it traces.
type Renderer struct {
	scene  *geometry.Store
	cfg    Config
	buf    *AccumulationBuffer
	tiles  []image.Rectangle
	width  int
	height int
}

// NewRenderer validates cfg and allocates a width×height buffer.
func NewRenderer(scene *geometry.Store, width, height int, cfg Config) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%dx%d: %w", width, height, ErrInvalidSize)
	}
	if scene == nil {
		return nil, errors.New("nil scene")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Renderer{
		scene:  scene,
		cfg:    cfg,
		buf:    NewAccumulationBuffer(width, height),
		tiles:  TileGrid(width, height, cfg.TileSize),
		width:  width,
		height: height,
	}, nil
}

// TileGrid splits a w×h image into row-major tiles of at most size×size
// pixels. Edge tiles are clipped to the image.
func TileGrid(w, h, size int) []image.Rectangle {
	tilesX := (w + size - 1) / size
	tilesY := (h + size - 1) / size
	tiles := make([]image.Rectangle, 0, tilesX*tilesY)
	for ty := range tilesY {
		for tx := range tilesX {
			x0, y0 := tx*size, ty*size
			tiles = append(tiles, image.Rect(x0, y0, min(x0+size, w), min(y0+size, h)))
		}
	}
	return tiles
}

// Buffer returns the accumulation buffer. It must not be read while a
// frame is in flight.
func (r *Renderer) Buffer() *AccumulationBuffer {
	return r.buf
}

// Config returns the validated configuration.
func (r *Renderer) Config() Config {
	return r.cfg
}

// Size returns the image dimensions.
func (r *Renderer) Size() (w, h int) {
	return r.width, r.height
}

// RenderFrame traces one sample for every pixel and blends it into the
// buffer. Tiles run concurrently; each pixel is written by exactly one
// worker. RenderFrame returns after every started tile has finished, so a
// following call observes all writes. If ctx is cancelled no further tiles
// start and ctx's error is returned; finished tiles keep their blended values.
func (r *Renderer) RenderFrame(ctx context.Context, p FrameParams) (FrameStats, error) {
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.workers())

	var done atomic.Int64
	for _, tile := range r.tiles {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r.renderTile(tile, p)
			done.Add(1)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	stats := FrameStats{
		Frame:    p.Frame,
		Tiles:    int(done.Load()),
		Pixels:   r.width * r.height,
		Duration: time.Since(start),
	}
	if err != nil {
		return stats, fmt.Errorf("render frame %d: %w", p.Frame, err)
	}
	logger.Debugf("frame %d: %d tiles in %s", p.Frame, stats.Tiles, stats.Duration)
	return stats, nil
}

func (r *Renderer) renderTile(tile image.Rectangle, p FrameParams) {
	for y := tile.Min.Y; y < tile.Max.Y; y++ {
		for x := tile.Min.X; x < tile.Max.X; x++ {
			r.buf.Blend(x, y, r.shadePixel(x, y, p), p.Frame, r.cfg.BlendExponent)
		}
	}
}

// shadePixel is the pure per-pixel kernel.
func (r *Renderer) shadePixel(x, y int, p FrameParams) math3d.Vec4 {
	ray := MakeRay(PixelUV(x, y, r.width, r.height), p.CameraToWorld, p.InverseProjection)
	return Integrate(ray, r.scene, p.Frame, r.cfg)
}
