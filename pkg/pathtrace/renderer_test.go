package pathtrace

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/taigrr/sunlit/pkg/math3d"
)

func TestTileGrid(t *testing.T) {
	tests := []struct {
		w, h, size int
		wantTiles  int
	}{
		{16, 16, 8, 4},
		{20, 10, 8, 6},
		{1, 1, 8, 1},
		{7, 9, 1, 63},
	}

	for _, tc := range tests {
		tiles := TileGrid(tc.w, tc.h, tc.size)
		if len(tiles) != tc.wantTiles {
			t.Errorf("TileGrid(%d, %d, %d) has %d tiles, want %d", tc.w, tc.h, tc.size, len(tiles), tc.wantTiles)
		}

		covered := make([]int, tc.w*tc.h)
		bounds := image.Rect(0, 0, tc.w, tc.h)
		for _, r := range tiles {
			if !r.In(bounds) {
				t.Fatalf("tile %v outside %v", r, bounds)
			}
			if r.Dx() > tc.size || r.Dy() > tc.size {
				t.Errorf("tile %v larger than %d", r, tc.size)
			}
			for y := r.Min.Y; y < r.Max.Y; y++ {
				for x := r.Min.X; x < r.Max.X; x++ {
					covered[y*tc.w+x]++
				}
			}
		}
		for i, n := range covered {
			if n != 1 {
				t.Fatalf("TileGrid(%d, %d, %d): pixel %d covered %d times", tc.w, tc.h, tc.size, i, n)
			}
		}
	}
}

func TestNewRendererErrors(t *testing.T) {
	scene := emptyStore(t)

	if _, err := NewRenderer(scene, 0, 10, DefaultConfig()); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("zero width: err = %v, want ErrInvalidSize", err)
	}
	if _, err := NewRenderer(nil, 10, 10, DefaultConfig()); err == nil {
		t.Error("nil scene: expected error")
	}
	cfg := DefaultConfig()
	cfg.TileSize = 0
	if _, err := NewRenderer(scene, 10, 10, cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("bad config: err = %v, want ErrInvalidConfig", err)
	}
}

func TestRenderFrameMatchesIntegrate(t *testing.T) {
	const w, h = 16, 12
	scene := builtinStore(t, "triangle")
	cfg := DefaultConfig()
	cfg.Sun.Direction = math3d.V3(0, 0, 1)

	r, err := NewRenderer(scene, w, h, cfg)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	camToWorld, invProj := testCamera(math3d.V3(0, 0, 3), float64(w)/h)
	ctx := context.Background()

	var frame0 [w * h]math3d.Vec4
	stats, err := r.RenderFrame(ctx, FrameParams{Frame: 0, CameraToWorld: camToWorld, InverseProjection: invProj})
	if err != nil {
		t.Fatalf("RenderFrame(0): %v", err)
	}
	if stats.Tiles != 4 || stats.Pixels != w*h {
		t.Errorf("stats = %+v, want 4 tiles and %d pixels", stats, w*h)
	}
	for y := range h {
		for x := range w {
			ray := MakeRay(PixelUV(x, y, w, h), camToWorld, invProj)
			want := Integrate(ray, scene, 0, r.Config())
			if got := r.Buffer().At(x, y); got != want {
				t.Fatalf("frame 0 pixel (%d, %d) = %v, want %v", x, y, got, want)
			}
			frame0[y*w+x] = want
		}
	}

	if _, err := r.RenderFrame(ctx, FrameParams{Frame: 1, CameraToWorld: camToWorld, InverseProjection: invProj}); err != nil {
		t.Fatalf("RenderFrame(1): %v", err)
	}
	for y := range h {
		for x := range w {
			ray := MakeRay(PixelUV(x, y, w, h), camToWorld, invProj)
			want := Accumulate(Integrate(ray, scene, 1, r.Config()), frame0[y*w+x], 1, cfg.BlendExponent)
			if got := r.Buffer().At(x, y); got != want {
				t.Fatalf("frame 1 pixel (%d, %d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestRenderFrameLitCenter(t *testing.T) {
	const w, h = 9, 9
	cfg := DefaultConfig()
	cfg.Sun = Sun{Direction: math3d.V3(0, 0, 1), Sharpness: 0, Intensity: 1}

	r, err := NewRenderer(builtinStore(t, "triangle"), w, h, cfg)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	camToWorld, invProj := testCamera(math3d.V3(0, 0, 3), 1)
	if _, err := r.RenderFrame(context.Background(), FrameParams{CameraToWorld: camToWorld, InverseProjection: invProj}); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if got, want := r.Buffer().At(4, 4), math3d.V4(1, 1, 1, 1); got != want {
		t.Errorf("center pixel = %v, want %v", got, want)
	}
}

func TestRenderFrameWorkerCountInvariant(t *testing.T) {
	const w, h = 24, 17
	scene := builtinStore(t, "box")
	camToWorld, invProj := testCamera(math3d.V3(4, 3, 6), float64(w)/h)

	render := func(workers int) *AccumulationBuffer {
		cfg := DefaultConfig()
		cfg.Workers = workers
		r, err := NewRenderer(scene, w, h, cfg)
		if err != nil {
			t.Fatalf("NewRenderer: %v", err)
		}
		for frame := range uint32(3) {
			p := FrameParams{Frame: frame, CameraToWorld: camToWorld, InverseProjection: invProj}
			if _, err := r.RenderFrame(context.Background(), p); err != nil {
				t.Fatalf("RenderFrame(%d): %v", frame, err)
			}
		}
		return r.Buffer()
	}

	serial, parallel := render(1), render(8)
	for y := range h {
		for x := range w {
			if a, b := serial.At(x, y), parallel.At(x, y); a != b {
				t.Fatalf("pixel (%d, %d): 1 worker %v, 8 workers %v", x, y, a, b)
			}
		}
	}
}

func TestRenderFrameCancelled(t *testing.T) {
	r, err := NewRenderer(builtinStore(t, "box"), 32, 32, DefaultConfig())
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	camToWorld, invProj := testCamera(math3d.V3(0, 2, 8), 1)
	stats, err := r.RenderFrame(ctx, FrameParams{CameraToWorld: camToWorld, InverseProjection: invProj})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if stats.Tiles != 0 {
		t.Errorf("rendered %d tiles after cancellation, want 0", stats.Tiles)
	}
}

func BenchmarkRenderFrame(b *testing.B) {
	const w, h = 64, 48
	r, err := NewRenderer(builtinStore(b, "box"), w, h, DefaultConfig())
	if err != nil {
		b.Fatalf("NewRenderer: %v", err)
	}
	camToWorld, invProj := testCamera(math3d.V3(4, 3, 6), float64(w)/h)
	ctx := context.Background()

	var frame uint32
	for b.Loop() {
		if _, err := r.RenderFrame(ctx, FrameParams{Frame: frame, CameraToWorld: camToWorld, InverseProjection: invProj}); err != nil {
			b.Fatal(err)
		}
		frame++
	}
}
