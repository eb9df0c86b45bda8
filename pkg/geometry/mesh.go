package geometry

import (
	"github.com/taigrr/sunlit/pkg/models"
)

// FromMesh flattens a loaded mesh into Buffers with the given layout.
// Vertices shared by faces of different materials are duplicated so each
// record carries one material index. Faces without a material use a white
// material appended after the mesh's own.
func FromMesh(m *models.Mesh, layout Layout) Buffers {
	b := Buffers{
		Layout:    layout,
		Materials: make([]float32, 0, (len(m.Materials)+1)*layout.MaterialStride),
		Indices:   make([]uint32, 0, len(m.Faces)*3),
	}

	for _, mat := range m.Materials {
		b.Materials = appendMaterial(b.Materials, layout, mat.BaseColor)
	}
	fallback := -1

	type key struct{ vertex, material int }
	remap := make(map[key]uint32, len(m.Vertices))

	for _, f := range m.Faces {
		material := f.Material
		if material < 0 || material >= len(m.Materials) {
			if fallback < 0 {
				fallback = b.MaterialCount()
				b.Materials = appendMaterial(b.Materials, layout, [4]float64{1, 1, 1, 1})
			}
			material = fallback
		}

		for _, vi := range f.V {
			k := key{vi, material}
			idx, ok := remap[k]
			if !ok {
				idx = uint32(b.VertexCount())
				b.Vertices = appendVertex(b.Vertices, layout, m.Vertices[vi], material)
				remap[k] = idx
			}
			b.Indices = append(b.Indices, idx)
		}
	}

	return b
}

func appendVertex(dst []float32, l Layout, v models.MeshVertex, material int) []float32 {
	start := len(dst)
	dst = append(dst, make([]float32, l.VertexStride)...)
	rec := dst[start:]
	rec[0], rec[1], rec[2] = float32(v.Position.X), float32(v.Position.Y), float32(v.Position.Z)
	if l.NormalOffset > 3 {
		rec[3] = 1 // homogeneous w when there is room for it
	}
	n := rec[l.NormalOffset:]
	n[0], n[1], n[2] = float32(v.Normal.X), float32(v.Normal.Y), float32(v.Normal.Z)
	rec[l.MaterialOffset] = float32(material)
	return dst
}

func appendMaterial(dst []float32, l Layout, c [4]float64) []float32 {
	start := len(dst)
	dst = append(dst, make([]float32, l.MaterialStride)...)
	rec := dst[start:]
	for i := range 4 {
		rec[i] = float32(c[i])
	}
	return dst
}
