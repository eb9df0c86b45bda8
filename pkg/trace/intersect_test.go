package trace

import (
	"math"
	"testing"

	"github.com/taigrr/sunlit/pkg/geometry"
	"github.com/taigrr/sunlit/pkg/math3d"
	"github.com/taigrr/sunlit/pkg/models"
)

func newStore(t testing.TB, mesh *models.Mesh) *geometry.Store {
	t.Helper()
	s, err := geometry.NewStore(geometry.FromMesh(mesh, geometry.DefaultLayout()))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

// floorTriangle faces +Z and contains the origin.
func floorTriangle(z float64) geometry.Triangle {
	return geometry.Triangle{
		A: geometry.Vertex{Position: math3d.V3(-1, -1, z), Normal: math3d.V3(0, 0, 1)},
		B: geometry.Vertex{Position: math3d.V3(1, -1, z), Normal: math3d.V3(0, 0, 1)},
		C: geometry.Vertex{Position: math3d.V3(0, 1, z), Normal: math3d.V3(0, 0, 1)},
	}
}

func TestIntersect(t *testing.T) {
	tri := floorTriangle(0)
	degenerate := geometry.Triangle{
		A: geometry.Vertex{Position: math3d.V3(0, 0, 0)},
		B: geometry.Vertex{Position: math3d.V3(1, 0, 0)},
		C: geometry.Vertex{Position: math3d.V3(2, 0, 0)},
	}

	tests := []struct {
		name  string
		tri   geometry.Triangle
		ray   Ray
		hit   bool
		wantT float64
	}{
		{"front face center", tri, Ray{math3d.V3(0, 0, 5), math3d.V3(0, 0, -1)}, true, 5},
		{"front face oblique", tri, Ray{math3d.V3(0, 0, 2), math3d.V3(0.1, 0.05, -1).Normalize()}, true, 2 * math.Sqrt(1.0125)},
		{"back face", tri, Ray{math3d.V3(0, 0, -5), math3d.V3(0, 0, 1)}, false, 0},
		{"parallel", tri, Ray{math3d.V3(-5, 0, 0), math3d.V3(1, 0, 0)}, false, 0},
		{"parallel above", tri, Ray{math3d.V3(-5, 0, 1), math3d.V3(1, 0, 0)}, false, 0},
		{"outside edge", tri, Ray{math3d.V3(1, 1, 5), math3d.V3(0, 0, -1)}, false, 0},
		{"behind origin", tri, Ray{math3d.V3(0, 0, -5), math3d.V3(0, 0, -1)}, false, 0},
		{"degenerate", degenerate, Ray{math3d.V3(0.5, 1, 0), math3d.V3(0, -1, 0)}, false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := Intersect(tc.ray, tc.tri, GeometricNormal)
			if h.OK != tc.hit {
				t.Fatalf("OK = %v, want %v", h.OK, tc.hit)
			}
			if !tc.hit {
				return
			}
			if math.Abs(h.T-tc.wantT) > 1e-9 {
				t.Errorf("T = %v, want %v", h.T, tc.wantT)
			}
		})
	}
}

func TestIntersectObliquePoint(t *testing.T) {
	tri := floorTriangle(0)
	ray := Ray{math3d.V3(0, 0, 2), math3d.V3(0.1, 0.05, -1).Normalize()}

	h := Intersect(ray, tri, GeometricNormal)
	if !h.OK {
		t.Fatal("expected hit")
	}
	if d := h.Point.Sub(math3d.V3(0.2, 0.1, 0)).Len(); d > 1e-9 {
		t.Errorf("Point = %v, want (0.2, 0.1, 0)", h.Point)
	}
	// The barycentric reconstruction must land on the same point.
	bary := tri.A.Position.Scale(h.Bary.X).
		Add(tri.B.Position.Scale(h.Bary.Y)).
		Add(tri.C.Position.Scale(h.Bary.Z))
	if d := bary.Sub(h.Point).Len(); d > 1e-9 {
		t.Errorf("barycentric point = %v, want %v", bary, h.Point)
	}
}

func TestIntersectBarycentrics(t *testing.T) {
	tri := floorTriangle(0)
	ray := Ray{math3d.V3(0.25, -0.5, 3), math3d.V3(0, 0, -1)}

	h := Intersect(ray, tri, GeometricNormal)
	if !h.OK {
		t.Fatal("expected hit")
	}

	if sum := h.Bary.X + h.Bary.Y + h.Bary.Z; math.Abs(sum-1) > 1e-9 {
		t.Errorf("barycentrics sum to %v, want 1", sum)
	}
	for _, w := range []float64{h.Bary.X, h.Bary.Y, h.Bary.Z} {
		if w < 0 || w > 1 {
			t.Errorf("barycentric %v outside [0, 1]", w)
		}
	}

	// u, v, w weight A, B, C.
	p := tri.A.Position.Scale(h.Bary.X).
		Add(tri.B.Position.Scale(h.Bary.Y)).
		Add(tri.C.Position.Scale(h.Bary.Z))
	if p.Sub(h.Point).Len() > 1e-9 {
		t.Errorf("barycentric point %v != hit point %v", p, h.Point)
	}
	if want := math3d.V3(0.25, -0.5, 0); h.Point.Sub(want).Len() > 1e-9 {
		t.Errorf("Point = %v, want %v", h.Point, want)
	}
	if h.Normal != math3d.V3(0, 0, 1) {
		t.Errorf("Normal = %v, want +Z", h.Normal)
	}
}

func TestIntersectInterpolatedNormal(t *testing.T) {
	tri := floorTriangle(0)
	tri.A.Normal = math3d.V3(1, 0, 1).Normalize()
	tri.B.Normal = math3d.V3(-1, 0, 1).Normalize()
	tri.C.Normal = math3d.V3(0, 0, 1)

	ray := Ray{math3d.V3(0, -1+1e-3, 1), math3d.V3(0, 0, -1)}
	h := Intersect(ray, tri, InterpolatedNormal)
	if !h.OK {
		t.Fatal("expected hit")
	}
	// Midway between A and B the X components cancel.
	if math.Abs(h.Normal.X) > 1e-3 || math.Abs(h.Normal.Len()-1) > 1e-9 {
		t.Errorf("Normal = %v, want unit vector near +Z", h.Normal)
	}

	geo := Intersect(ray, tri, GeometricNormal)
	if geo.Normal != math3d.V3(0, 0, 1) {
		t.Errorf("geometric Normal = %v, want +Z", geo.Normal)
	}
}

func TestTraceNearest(t *testing.T) {
	mesh := models.NewMesh("stack")
	white := mesh.AddMaterial("white", 1, 1, 1)
	// Farther triangle first, so index order alone would pick the wrong one.
	for _, z := range []float64{0, 1, 0.5} {
		f := floorTriangle(z)
		mesh.AddTriangle(f.A.Position, f.B.Position, f.C.Position, white)
	}
	store := newStore(t, mesh)

	h := Trace(store, Ray{math3d.V3(0, 0, 5), math3d.V3(0, 0, -1)}, GeometricNormal)
	if !h.OK {
		t.Fatal("expected hit")
	}
	if h.Triangle != 1 {
		t.Errorf("Triangle = %d, want 1 (z=1)", h.Triangle)
	}
	if math.Abs(h.T-4) > 1e-9 {
		t.Errorf("T = %v, want 4", h.T)
	}
}

func TestTraceTieKeepsFirst(t *testing.T) {
	mesh := models.NewMesh("twins")
	white := mesh.AddMaterial("white", 1, 1, 1)
	f := floorTriangle(0)
	mesh.AddTriangle(f.A.Position, f.B.Position, f.C.Position, white)
	mesh.AddTriangle(f.A.Position, f.B.Position, f.C.Position, white)
	store := newStore(t, mesh)

	h := Trace(store, Ray{math3d.V3(0, 0, 5), math3d.V3(0, 0, -1)}, GeometricNormal)
	if !h.OK || h.Triangle != 0 {
		t.Errorf("Trace = %+v, want triangle 0", h)
	}
}

func TestTraceMiss(t *testing.T) {
	mesh, err := models.Builtin("triangle")
	if err != nil {
		t.Fatal(err)
	}
	store := newStore(t, mesh)

	if h := Trace(store, Ray{math3d.V3(0, 0, 5), math3d.V3(0, 0, 1)}, GeometricNormal); h.OK {
		t.Errorf("ray pointing away hit %+v", h)
	}
	if h := Trace(store, Ray{math3d.V3(0, 0, -5), math3d.V3(0, 0, 1)}, GeometricNormal); h.OK {
		t.Errorf("ray from behind hit %+v", h)
	}
}

func BenchmarkTraceBox(b *testing.B) {
	mesh, err := models.Builtin("box")
	if err != nil {
		b.Fatal(err)
	}
	store := newStore(b, mesh)
	ray := Ray{math3d.V3(0, 3, 8), math3d.V3(0, -3, -8).Normalize()}

	for b.Loop() {
		_ = Trace(store, ray, GeometricNormal)
	}
}
