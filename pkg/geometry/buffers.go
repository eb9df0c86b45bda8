package geometry

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrLayout reports inconsistent strides or offsets.
	ErrLayout = errors.New("invalid buffer layout")
	// ErrIndexRange reports an index buffer entry past the vertex buffer.
	ErrIndexRange = errors.New("vertex index out of range")
	// ErrMaterialRange reports a vertex whose material index has no material.
	ErrMaterialRange = errors.New("material index out of range")
)

// Buffers is the flat scene representation produced by the asset loaders.
type Buffers struct {
	Vertices  []float32
	Indices   []uint32
	Materials []float32
	Layout    Layout
}

// VertexCount returns the number of complete vertex records.
func (b *Buffers) VertexCount() int {
	return len(b.Vertices) / b.Layout.VertexStride
}

// TriangleCount returns the number of index triples.
func (b *Buffers) TriangleCount() int {
	return len(b.Indices) / 3
}

// MaterialCount returns the number of complete material records.
func (b *Buffers) MaterialCount() int {
	return len(b.Materials) / b.Layout.MaterialStride
}

// Validate bounds-checks the buffers so that decoding and tracing never
// index out of range.
func (b *Buffers) Validate() error {
	if err := b.Layout.Validate(); err != nil {
		return err
	}
	if len(b.Vertices)%b.Layout.VertexStride != 0 {
		return fmt.Errorf("vertex buffer length %d not a multiple of stride %d: %w",
			len(b.Vertices), b.Layout.VertexStride, ErrLayout)
	}
	if len(b.Materials)%b.Layout.MaterialStride != 0 {
		return fmt.Errorf("material buffer length %d not a multiple of stride %d: %w",
			len(b.Materials), b.Layout.MaterialStride, ErrLayout)
	}
	if len(b.Indices)%3 != 0 {
		return fmt.Errorf("index buffer length %d not a multiple of 3: %w", len(b.Indices), ErrLayout)
	}

	vertexCount := b.VertexCount()
	for i, idx := range b.Indices {
		if int(idx) >= vertexCount {
			return fmt.Errorf("index %d is %d, have %d vertices: %w", i, idx, vertexCount, ErrIndexRange)
		}
	}

	materialCount := b.MaterialCount()
	for v := range vertexCount {
		m := b.Vertices[v*b.Layout.VertexStride+b.Layout.MaterialOffset]
		// Compared as floats: huge or infinite values have no portable int
		// conversion. NaN fails the range test.
		if !(m >= 0 && m < float32(materialCount)) || m != float32(math.Trunc(float64(m))) {
			return fmt.Errorf("vertex %d material %v, have %d materials: %w", v, m, materialCount, ErrMaterialRange)
		}
	}
	return nil
}
