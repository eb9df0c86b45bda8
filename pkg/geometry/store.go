package geometry

import (
	"fmt"

	"github.com/taigrr/sunlit/pkg/math3d"
)

// Vertex is a decoded vertex record. Position has an implicit w of 1.
type Vertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
	Material uint32
}

// Material is a flat RGBA surface color.
type Material struct {
	Color math3d.Vec4
}

// Triangle holds the three decoded corners of triangle Index.
// Front faces wind counter-clockwise.
type Triangle struct {
	Index   int
	A, B, C Vertex
}

// Normal returns the unit geometric normal, normalize((A-C) × (B-C)).
func (t Triangle) Normal() math3d.Vec3 {
	return t.A.Position.Sub(t.C.Position).Cross(t.B.Position.Sub(t.C.Position)).Normalize()
}

// Store is the read-only typed view of validated Buffers.
type Store struct {
	vertices  []Vertex
	materials []Material
	triangles []Triangle
	min, max  math3d.Vec3
}

// NewStore validates b and decodes it. The flat buffers are not retained.
func NewStore(b Buffers) (*Store, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("validate buffers: %w", err)
	}

	l := b.Layout
	s := &Store{
		vertices:  make([]Vertex, b.VertexCount()),
		materials: make([]Material, b.MaterialCount()),
		triangles: make([]Triangle, b.TriangleCount()),
	}

	for i := range s.vertices {
		rec := b.Vertices[i*l.VertexStride : (i+1)*l.VertexStride]
		s.vertices[i] = Vertex{
			Position: vec3(rec[0:3]),
			Normal:   vec3(rec[l.NormalOffset : l.NormalOffset+3]),
			Material: uint32(rec[l.MaterialOffset]),
		}
		if i == 0 {
			s.min, s.max = s.vertices[i].Position, s.vertices[i].Position
		} else {
			s.min = s.min.Min(s.vertices[i].Position)
			s.max = s.max.Max(s.vertices[i].Position)
		}
	}

	for i := range s.materials {
		rec := b.Materials[i*l.MaterialStride : i*l.MaterialStride+4]
		s.materials[i] = Material{
			Color: math3d.V4(float64(rec[0]), float64(rec[1]), float64(rec[2]), float64(rec[3])),
		}
	}

	for t := range s.triangles {
		s.triangles[t] = Triangle{
			Index: t,
			A:     s.vertices[b.Indices[t*3]],
			B:     s.vertices[b.Indices[t*3+1]],
			C:     s.vertices[b.Indices[t*3+2]],
		}
	}

	return s, nil
}

func vec3(f []float32) math3d.Vec3 {
	return math3d.V3(float64(f[0]), float64(f[1]), float64(f[2]))
}

// Vertex returns vertex i. i must be in range.
func (s *Store) Vertex(i int) Vertex {
	return s.vertices[i]
}

// Triangle returns triangle t. t must be in range.
func (s *Store) Triangle(t int) Triangle {
	return s.triangles[t]
}

// Triangles returns all triangles in index-buffer order. The slice is
// shared and must not be modified.
func (s *Store) Triangles() []Triangle {
	return s.triangles
}

// Material returns material m. m must be in range.
func (s *Store) Material(m uint32) Material {
	return s.materials[m]
}

// SurfaceColor returns the RGB color of a triangle, taken from the
// material of its first corner.
func (s *Store) SurfaceColor(t Triangle) math3d.Vec3 {
	return s.materials[t.A.Material].Color.Vec3()
}

// VertexCount returns the number of vertices.
func (s *Store) VertexCount() int {
	return len(s.vertices)
}

// TriangleCount returns the number of triangles.
func (s *Store) TriangleCount() int {
	return len(s.triangles)
}

// MaterialCount returns the number of materials.
func (s *Store) MaterialCount() int {
	return len(s.materials)
}

// Bounds returns the axis-aligned bounds of all vertices.
func (s *Store) Bounds() (min, max math3d.Vec3) {
	return s.min, s.max
}
