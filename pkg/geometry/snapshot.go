package geometry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"honnef.co/go/safeish"
)

// ErrSnapshot reports a malformed buffer snapshot.
var ErrSnapshot = errors.New("invalid buffer snapshot")

var snapshotMagic = [4]byte{'S', 'L', 'T', 'B'}

const snapshotVersion = 1

// maxSnapshotElements caps each array so a corrupt header cannot request
// an enormous allocation.
const maxSnapshotElements = 1 << 28

type snapshotHeader struct {
	Magic          [4]byte
	Version        uint32
	VertexStride   uint32
	NormalOffset   uint32
	MaterialOffset uint32
	MaterialStride uint32
	Vertices       uint32
	Indices        uint32
	Materials      uint32
}

// WriteTo writes the buffers as a header followed by the raw vertex, index
// and material arrays in host byte order (little-endian on every supported
// platform), so a snapshot can be mapped straight into a GPU upload.
func (b *Buffers) WriteTo(w io.Writer) (int64, error) {
	h := snapshotHeader{
		Magic:          snapshotMagic,
		Version:        snapshotVersion,
		VertexStride:   uint32(b.Layout.VertexStride),
		NormalOffset:   uint32(b.Layout.NormalOffset),
		MaterialOffset: uint32(b.Layout.MaterialOffset),
		MaterialStride: uint32(b.Layout.MaterialStride),
		Vertices:       uint32(len(b.Vertices)),
		Indices:        uint32(len(b.Indices)),
		Materials:      uint32(len(b.Materials)),
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return 0, fmt.Errorf("write snapshot header: %w", err)
	}
	n := int64(binary.Size(&h))

	for _, chunk := range [][]byte{
		safeish.SliceCast[[]byte](b.Vertices),
		safeish.SliceCast[[]byte](b.Indices),
		safeish.SliceCast[[]byte](b.Materials),
	} {
		m, err := w.Write(chunk)
		n += int64(m)
		if err != nil {
			return n, fmt.Errorf("write snapshot data: %w", err)
		}
	}
	return n, nil
}

// ReadBuffers reads a snapshot written by WriteTo and validates it.
func ReadBuffers(r io.Reader) (Buffers, error) {
	var h snapshotHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return Buffers{}, fmt.Errorf("read snapshot header: %w", err)
	}
	if h.Magic != snapshotMagic {
		return Buffers{}, fmt.Errorf("bad magic %q: %w", h.Magic[:], ErrSnapshot)
	}
	if h.Version != snapshotVersion {
		return Buffers{}, fmt.Errorf("unsupported version %d: %w", h.Version, ErrSnapshot)
	}
	if h.Vertices > maxSnapshotElements || h.Indices > maxSnapshotElements || h.Materials > maxSnapshotElements {
		return Buffers{}, fmt.Errorf("array too large: %w", ErrSnapshot)
	}

	b := Buffers{
		Vertices:  make([]float32, h.Vertices),
		Indices:   make([]uint32, h.Indices),
		Materials: make([]float32, h.Materials),
		Layout: Layout{
			VertexStride:   int(h.VertexStride),
			NormalOffset:   int(h.NormalOffset),
			MaterialOffset: int(h.MaterialOffset),
			MaterialStride: int(h.MaterialStride),
		},
	}
	for _, chunk := range [][]byte{
		safeish.SliceCast[[]byte](b.Vertices),
		safeish.SliceCast[[]byte](b.Indices),
		safeish.SliceCast[[]byte](b.Materials),
	} {
		if _, err := io.ReadFull(r, chunk); err != nil {
			return Buffers{}, fmt.Errorf("read snapshot data: %w", err)
		}
	}

	if err := b.Validate(); err != nil {
		return Buffers{}, err
	}
	return b, nil
}
