package render

import (
	"math"
	"testing"

	"github.com/taigrr/sunlit/pkg/geometry"
	"github.com/taigrr/sunlit/pkg/math3d"
	"github.com/taigrr/sunlit/pkg/models"
)

// createTestRasterizer creates a rasterizer whose camera sits at (0, 0, 10)
// looking at the origin.
func createTestRasterizer(width, height int) (*Rasterizer, *Framebuffer) {
	fb := NewFramebuffer(width, height)
	camera := NewCamera()
	camera.SetOrbit(0, 0, 10)
	camera.SetAspectRatio(float64(width) / float64(height))
	r := NewRasterizer(camera, fb)
	r.ClearDepth()
	fb.Clear(ColorBlack)
	return r, fb
}

func flatTriangle(z float64, c Color) Triangle {
	n := math3d.V3(0, 0, 1)
	return Triangle{V: [3]Vertex{
		{Position: math3d.V3(-5, -5, z), Normal: n, Color: c},
		{Position: math3d.V3(5, -5, z), Normal: n, Color: c},
		{Position: math3d.V3(0, 5, z), Normal: n, Color: c},
	}}
}

func countLit(fb *Framebuffer) int {
	n := 0
	for _, c := range fb.Pixels {
		if c.R > 0 || c.G > 0 || c.B > 0 {
			n++
		}
	}
	return n
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func TestBarycentric(t *testing.T) {
	tests := []struct {
		name     string
		px, py   float64
		expected math3d.Vec3
	}{
		{"vertex 0", 0, 0, math3d.V3(1, 0, 0)},
		{"vertex 1", 1, 0, math3d.V3(0, 1, 0)},
		{"vertex 2", 0, 1, math3d.V3(0, 0, 1)},
		{"centroid", 1.0 / 3, 1.0 / 3, math3d.V3(1.0/3, 1.0/3, 1.0/3)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bc := barycentric(0, 0, 1, 0, 0, 1, tc.px, tc.py)
			if bc.Sub(tc.expected).Len() > 1e-3 {
				t.Errorf("barycentric(%v, %v) = %v, want %v", tc.px, tc.py, bc, tc.expected)
			}
		})
	}

	t.Run("outside triangle", func(t *testing.T) {
		bc := barycentric(0, 0, 1, 0, 0, 1, -1, -1)
		if bc.X >= 0 && bc.Y >= 0 && bc.Z >= 0 {
			t.Error("point outside triangle should have negative barycentric coordinate")
		}
	})
}

func TestBarycentricDegenerate(t *testing.T) {
	bc := barycentric(0, 0, 1, 1, 2, 2, 1, 1)
	if bc.X >= 0 || bc.Y >= 0 || bc.Z >= 0 {
		t.Errorf("collinear triangle weights = %v, want all negative", bc)
	}
}

func TestBlendShades(t *testing.T) {
	red, green, blue := math3d.V3(255, 0, 0), math3d.V3(0, 255, 0), math3d.V3(0, 0, 255)

	tests := []struct {
		name string
		bc   math3d.Vec3
		want Color
	}{
		{"full red", math3d.V3(1, 0, 0), RGB(255, 0, 0)},
		{"full blue", math3d.V3(0, 0, 1), RGB(0, 0, 255)},
		{"equal mix", math3d.V3(1.0/3, 1.0/3, 1.0/3), RGB(85, 85, 85)},
		{"half red half green", math3d.V3(0.5, 0.5, 0), RGB(128, 128, 0)},
		{"overshoot clamps", math3d.V3(1.5, 0, 0), RGB(255, 0, 0)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := blendShades(red, green, blue, tc.bc); got != tc.want {
				t.Errorf("blendShades(%v) = %v, want %v", tc.bc, got, tc.want)
			}
		})
	}
}

func TestDrawTriangleGouraudWinding(t *testing.T) {
	front := flatTriangle(0, RGB(200, 200, 200))
	back := front
	back.V[1], back.V[2] = front.V[2], front.V[1]

	tests := []struct {
		name        string
		tri         Triangle
		disableCull bool
		wantPixels  bool
	}{
		{"counter-clockwise is front", front, false, true},
		{"clockwise is culled", back, false, false},
		{"clockwise with culling off", back, true, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, fb := createTestRasterizer(64, 64)
			r.DisableBackfaceCulling = tc.disableCull
			r.DrawTriangleGouraud(tc.tri, math3d.V3(0, 0, 1))
			if got := countLit(fb) > 0; got != tc.wantPixels {
				t.Errorf("drew pixels = %v, want %v", got, tc.wantPixels)
			}
		})
	}
}

func TestDrawTriangleGouraudLighting(t *testing.T) {
	tests := []struct {
		name  string
		light math3d.Vec3
		want  int
	}{
		{"facing the light", math3d.V3(0, 0, 1), 200},
		{"ambient only", math3d.V3(0, 0, -1), int(200 * 0.3)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, fb := createTestRasterizer(64, 64)
			r.DrawTriangleGouraud(flatTriangle(0, RGB(200, 200, 200)), tc.light)
			c := fb.GetPixel(32, 32)
			if absInt(int(c.R)-tc.want) > 1 {
				t.Errorf("center pixel = %v, want gray %d", c, tc.want)
			}
		})
	}
}

func TestDrawTriangleGouraudDepth(t *testing.T) {
	r, fb := createTestRasterizer(64, 64)
	light := math3d.V3(0, 0, 1)

	// The nearer triangle is drawn first and must survive.
	r.DrawTriangleGouraud(flatTriangle(1, RGB(0, 255, 0)), light)
	r.DrawTriangleGouraud(flatTriangle(0, RGB(255, 0, 0)), light)

	c := fb.GetPixel(32, 32)
	if c.G < 250 || c.R != 0 {
		t.Errorf("center pixel = %v, want the nearer green triangle", c)
	}
}

func TestDrawStore(t *testing.T) {
	m, err := models.Builtin("triangle")
	if err != nil {
		t.Fatal(err)
	}
	scene, err := geometry.NewStore(geometry.FromMesh(m, geometry.DefaultLayout()))
	if err != nil {
		t.Fatal(err)
	}

	t.Run("visible", func(t *testing.T) {
		r, fb := createTestRasterizer(48, 48)
		r.DrawStore(scene, math3d.V3(0, 0, 1))

		if r.CullingStats != (CullingStats{Tested: 1, Drawn: 1}) {
			t.Errorf("CullingStats = %+v", r.CullingStats)
		}
		if c := fb.GetPixel(24, 24); c.R < 250 || c.G < 250 || c.B < 250 {
			t.Errorf("center pixel = %v, want white material", c)
		}
	})

	t.Run("outside frustum", func(t *testing.T) {
		r, fb := createTestRasterizer(48, 48)
		// From (0, 0, 10) looking along +Z, away from the triangle.
		r.camera.SetTarget(math3d.V3(0, 0, 20))
		r.camera.SetOrbit(math.Pi, 0, 10)

		r.DrawStore(scene, math3d.V3(0, 0, 1))
		if r.CullingStats.Culled != 1 {
			t.Errorf("CullingStats = %+v, want the triangle culled", r.CullingStats)
		}
		if n := countLit(fb); n != 0 {
			t.Errorf("%d pixels drawn for a culled scene", n)
		}
	})
}

func TestRasterizerClearDepth(t *testing.T) {
	r, _ := createTestRasterizer(10, 10)
	r.setDepth(5, 5, 0.5)
	r.ClearDepth()

	for i, d := range r.zbuffer {
		if d != math.MaxFloat64 {
			t.Fatalf("zbuffer[%d] = %v after ClearDepth", i, d)
		}
	}
	if d := r.getDepth(-1, 3); d != math.MaxFloat64 {
		t.Errorf("out of bounds depth = %v, want MaxFloat64", d)
	}
}

func BenchmarkDrawTriangleGouraud(b *testing.B) {
	r, _ := createTestRasterizer(200, 100)
	tri := flatTriangle(0, RGB(200, 200, 200))
	light := math3d.V3(0, 0, 1)
	for b.Loop() {
		r.ClearDepth()
		r.DrawTriangleGouraud(tri, light)
	}
}
