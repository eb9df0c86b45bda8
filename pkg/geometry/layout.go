// Package geometry holds the scene as flat float/index buffers and decodes
// them once into typed triangles for the tracer.
//
// A vertex record is a fixed number of float32 slots: position at offset 0,
// a normal at NormalOffset, and the material index (stored as a float) at
// MaterialOffset. A material record is RGBA at offset 0. Triangles are
// consecutive triples in the index buffer.
package geometry

import "fmt"

// Layout describes strides and offsets of the flat buffers, in float32 slots.
type Layout struct {
	VertexStride   int
	NormalOffset   int
	MaterialOffset int
	MaterialStride int
}

// DefaultLayout matches a GPU-friendly record of position[4], normal[4] and
// one material index: stride 9, normal at 4, material at 8, RGBA materials.
func DefaultLayout() Layout {
	return Layout{
		VertexStride:   9,
		NormalOffset:   4,
		MaterialOffset: 8,
		MaterialStride: 4,
	}
}

// Validate checks that every field fits inside its record without overlap.
func (l Layout) Validate() error {
	switch {
	case l.VertexStride < 7:
		return fmt.Errorf("vertex stride %d too small: %w", l.VertexStride, ErrLayout)
	case l.NormalOffset < 3 || l.NormalOffset+3 > l.VertexStride:
		return fmt.Errorf("normal offset %d outside record of %d: %w", l.NormalOffset, l.VertexStride, ErrLayout)
	case l.MaterialOffset < 3 || l.MaterialOffset >= l.VertexStride:
		return fmt.Errorf("material offset %d outside record of %d: %w", l.MaterialOffset, l.VertexStride, ErrLayout)
	case l.MaterialOffset >= l.NormalOffset && l.MaterialOffset < l.NormalOffset+3:
		return fmt.Errorf("material offset %d overlaps normal: %w", l.MaterialOffset, ErrLayout)
	case l.MaterialStride < 4:
		return fmt.Errorf("material stride %d too small for RGBA: %w", l.MaterialStride, ErrLayout)
	}
	return nil
}
