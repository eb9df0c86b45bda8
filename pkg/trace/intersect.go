// Package trace intersects rays with the triangles of a geometry.Store.
// There is no acceleration structure: every ray is tested against every
// triangle.
package trace

import (
	"fmt"

	"github.com/taigrr/sunlit/pkg/geometry"
	"github.com/taigrr/sunlit/pkg/math3d"
)

// Epsilon is the smallest determinant accepted as a front-facing hit.
const Epsilon = 1e-6

// Ray is a half-line. Direction is expected, not required, to be unit length.
type Ray struct {
	Origin    math3d.Vec3
	Direction math3d.Vec3
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float64) math3d.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// NormalMode selects how Hit.Normal is computed.
type NormalMode int

const (
	// GeometricNormal uses the triangle's face normal.
	GeometricNormal NormalMode = iota
	// InterpolatedNormal blends the vertex normals by the barycentric weights.
	InterpolatedNormal
)

func (m NormalMode) String() string {
	switch m {
	case GeometricNormal:
		return "geometric"
	case InterpolatedNormal:
		return "interpolated"
	default:
		return "unknown"
	}
}

// ParseNormalMode maps the String form of a NormalMode back to its value.
func ParseNormalMode(name string) (NormalMode, error) {
	switch name {
	case "geometric", "":
		return GeometricNormal, nil
	case "interpolated":
		return InterpolatedNormal, nil
	}
	return GeometricNormal, fmt.Errorf("unknown normal mode %q", name)
}

// Hit describes a ray/triangle intersection. Fields other than OK are only
// meaningful when OK is true.
type Hit struct {
	OK       bool
	T        float64
	Triangle int
	Point    math3d.Vec3
	Normal   math3d.Vec3
	// Bary holds the weights (u, v, w) of corners A, B and C; they sum to 1.
	Bary math3d.Vec3
}

// Intersect tests ray against tri with the Möller–Trumbore algorithm.
// Only front faces (counter-clockwise as seen from the ray origin) hit:
// back faces and rays parallel to the plane miss.
func Intersect(ray Ray, tri geometry.Triangle, mode NormalMode) Hit {
	t, u, v, ok := intersect(ray, tri)
	if !ok {
		return Hit{}
	}
	return makeHit(ray, tri, t, u, v, mode)
}

func intersect(ray Ray, tri geometry.Triangle) (t, u, v float64, ok bool) {
	a, b, c := tri.A.Position, tri.B.Position, tri.C.Position

	e0 := a.Sub(c)
	e1 := b.Sub(c)
	pvec := ray.Direction.Cross(e1)
	det := e0.Dot(pvec)
	if det < Epsilon {
		return 0, 0, 0, false
	}
	invDet := 1 / det

	tvec := ray.Origin.Sub(c)
	u = tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	qvec := tvec.Cross(e0)
	v = ray.Direction.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t = e1.Dot(qvec) * invDet
	if t < 0 {
		return 0, 0, 0, false
	}
	return t, u, v, true
}

func makeHit(ray Ray, tri geometry.Triangle, t, u, v float64, mode NormalMode) Hit {
	w := 1 - u - v
	hit := Hit{
		OK:       true,
		T:        t,
		Triangle: tri.Index,
		Point:    ray.At(t),
		Bary:     math3d.V3(u, v, w),
	}
	switch mode {
	case InterpolatedNormal:
		hit.Normal = tri.A.Normal.Scale(u).
			Add(tri.B.Normal.Scale(v)).
			Add(tri.C.Normal.Scale(w)).
			Normalize()
	default:
		hit.Normal = tri.Normal()
	}
	return hit
}

// Trace returns the nearest front-facing hit of ray in store. On equal
// distances the triangle earlier in the index buffer wins.
func Trace(store *geometry.Store, ray Ray, mode NormalMode) Hit {
	tris := store.Triangles()
	best := -1
	var bestT, bestU, bestV float64
	for i := range tris {
		t, u, v, ok := intersect(ray, tris[i])
		if ok && (best < 0 || t < bestT) {
			best, bestT, bestU, bestV = i, t, u, v
		}
	}
	if best < 0 {
		return Hit{}
	}
	return makeHit(ray, tris[best], bestT, bestU, bestV, mode)
}
