// Package models loads scenes from disk and represents them as indexed
// triangle meshes with flat per-face materials.
package models

import (
	"errors"

	"github.com/taigrr/sunlit/pkg/math3d"
)

var (
	// ErrUnsupportedFormat is returned by Load for unknown file extensions.
	ErrUnsupportedFormat = errors.New("unsupported scene format")
	// ErrEmptyMesh is returned when a file decodes to zero triangles.
	ErrEmptyMesh = errors.New("mesh has no triangles")
)

// Mesh represents a 3D mesh with vertices, faces, and materials.
// Front faces wind counter-clockwise.
type Mesh struct {
	Name      string
	Vertices  []MeshVertex
	Faces     []Face
	Materials []Material

	// Set by CalculateBounds.
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3
}

// MeshVertex holds the vertex attributes the renderers consume.
type MeshVertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
}

// Face represents a triangle face with vertex indices and material reference.
type Face struct {
	V        [3]int // Indices into Mesh.Vertices
	Material int    // Index into Mesh.Materials (-1 for no material)
}

// Material is a flat surface color.
type Material struct {
	Name      string
	BaseColor [4]float64 // RGBA in 0-1 range
}

func NewMesh(name string) *Mesh {
	return &Mesh{Name: name}
}

// AddMaterial appends a material and returns its index.
func (m *Mesh) AddMaterial(name string, r, g, b float64) int {
	m.Materials = append(m.Materials, Material{Name: name, BaseColor: [4]float64{r, g, b, 1}})
	return len(m.Materials) - 1
}

// AddTriangle appends three vertices sharing the face normal and a face
// referencing them. a, b, c must be counter-clockwise seen from the front.
func (m *Mesh) AddTriangle(a, b, c math3d.Vec3, material int) {
	n := b.Sub(a).Cross(c.Sub(a)).Normalize()
	base := len(m.Vertices)
	m.Vertices = append(m.Vertices,
		MeshVertex{Position: a, Normal: n},
		MeshVertex{Position: b, Normal: n},
		MeshVertex{Position: c, Normal: n},
	)
	m.Faces = append(m.Faces, Face{V: [3]int{base, base + 1, base + 2}, Material: material})
}

// AddQuad appends the quad a-b-c-d as two triangles. Corners must be
// counter-clockwise seen from the front.
func (m *Mesh) AddQuad(a, b, c, d math3d.Vec3, material int) {
	m.AddTriangle(a, b, c, material)
	m.AddTriangle(a, c, d, material)
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		return
	}

	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position

	for _, v := range m.Vertices[1:] {
		m.BoundsMin = m.BoundsMin.Min(v.Position)
		m.BoundsMax = m.BoundsMax.Max(v.Position)
	}
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// CalculateSmoothNormals computes area-weighted averaged vertex normals.
func (m *Mesh) CalculateSmoothNormals() {
	m.smoothNormals(func(MeshVertex) bool { return true })
}

// FillMissingNormals computes smooth normals for vertices that have none
// and leaves every other normal as loaded.
func (m *Mesh) FillMissingNormals() {
	m.smoothNormals(func(v MeshVertex) bool { return v.Normal.LenSq() == 0 })
}

func (m *Mesh) smoothNormals(replace func(MeshVertex) bool) {
	sums := make(map[int]math3d.Vec3)
	for i, v := range m.Vertices {
		if replace(v) {
			sums[i] = math3d.Zero3()
		}
	}
	if len(sums) == 0 {
		return
	}

	for _, f := range m.Faces {
		v0 := m.Vertices[f.V[0]].Position
		v1 := m.Vertices[f.V[1]].Position
		v2 := m.Vertices[f.V[2]].Position

		// Unnormalized, so larger faces weigh more.
		normal := v1.Sub(v0).Cross(v2.Sub(v0))

		for _, vi := range f.V {
			if sum, ok := sums[vi]; ok {
				sums[vi] = sum.Add(normal)
			}
		}
	}

	for i, sum := range sums {
		m.Vertices[i].Normal = sum.Normalize()
	}
}

// MaterialCount returns the number of materials.
func (m *Mesh) MaterialCount() int {
	return len(m.Materials)
}
