package geometry

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/taigrr/sunlit/pkg/math3d"
	"github.com/taigrr/sunlit/pkg/models"
)

// triangleBuffers builds one triangle in the default layout.
func triangleBuffers() Buffers {
	return Buffers{
		Layout: DefaultLayout(),
		Vertices: []float32{
			-1, -1, 0, 1, 0, 0, 1, 0, 0,
			1, -1, 0, 1, 0, 0, 1, 0, 0,
			0, 1, 0, 1, 0, 0, 1, 0, 0,
		},
		Indices:   []uint32{0, 1, 2},
		Materials: []float32{0.5, 0.25, 1, 1},
	}
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		ok     bool
	}{
		{"default", DefaultLayout(), true},
		{"packed", Layout{VertexStride: 7, NormalOffset: 3, MaterialOffset: 6, MaterialStride: 4}, true},
		{"zero", Layout{}, false},
		{"normal past end", Layout{VertexStride: 9, NormalOffset: 7, MaterialOffset: 3, MaterialStride: 4}, false},
		{"material inside normal", Layout{VertexStride: 9, NormalOffset: 4, MaterialOffset: 5, MaterialStride: 4}, false},
		{"material over position", Layout{VertexStride: 9, NormalOffset: 4, MaterialOffset: 1, MaterialStride: 4}, false},
		{"short material", Layout{VertexStride: 9, NormalOffset: 4, MaterialOffset: 8, MaterialStride: 3}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.layout.Validate()
			if tc.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tc.ok && !errors.Is(err, ErrLayout) {
				t.Errorf("Validate() = %v, want ErrLayout", err)
			}
		})
	}
}

func TestBuffersValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Buffers)
		want   error
	}{
		{"valid", func(*Buffers) {}, nil},
		{"index out of range", func(b *Buffers) { b.Indices[2] = 3 }, ErrIndexRange},
		{"partial triangle", func(b *Buffers) { b.Indices = b.Indices[:2] }, ErrLayout},
		{"partial vertex", func(b *Buffers) { b.Vertices = b.Vertices[:len(b.Vertices)-1] }, ErrLayout},
		{"partial material", func(b *Buffers) { b.Materials = b.Materials[:3] }, ErrLayout},
		{"material out of range", func(b *Buffers) { b.Vertices[8] = 1 }, ErrMaterialRange},
		{"fractional material", func(b *Buffers) { b.Vertices[8] = 0.5 }, ErrMaterialRange},
		{"negative material", func(b *Buffers) { b.Vertices[17] = -1 }, ErrMaterialRange},
		{"nan material", func(b *Buffers) { b.Vertices[26] = float32(math.NaN()) }, ErrMaterialRange},
		{"huge material", func(b *Buffers) { b.Vertices[8] = 1e20 }, ErrMaterialRange},
		{"infinite material", func(b *Buffers) { b.Vertices[17] = float32(math.Inf(1)) }, ErrMaterialRange},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := triangleBuffers()
			tc.mutate(&b)
			err := b.Validate()
			if tc.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestNewStoreDecodes(t *testing.T) {
	s, err := NewStore(triangleBuffers())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if s.VertexCount() != 3 || s.TriangleCount() != 1 || s.MaterialCount() != 1 {
		t.Fatalf("counts = %d/%d/%d, want 3/1/1", s.VertexCount(), s.TriangleCount(), s.MaterialCount())
	}

	tri := s.Triangle(0)
	if tri.B.Position != math3d.V3(1, -1, 0) {
		t.Errorf("B = %v, want (1, -1, 0)", tri.B.Position)
	}
	if tri.A.Normal != math3d.V3(0, 0, 1) {
		t.Errorf("A normal = %v, want +Z", tri.A.Normal)
	}
	if n := tri.Normal(); n != math3d.V3(0, 0, 1) {
		t.Errorf("geometric normal = %v, want +Z for counter-clockwise winding", n)
	}
	if c := s.SurfaceColor(tri); c != math3d.V3(0.5, 0.25, 1) {
		t.Errorf("SurfaceColor = %v", c)
	}

	lo, hi := s.Bounds()
	if lo != math3d.V3(-1, -1, 0) || hi != math3d.V3(1, 1, 0) {
		t.Errorf("Bounds = %v %v", lo, hi)
	}
}

func TestNewStoreRejectsInvalid(t *testing.T) {
	b := triangleBuffers()
	b.Indices[0] = 99
	if _, err := NewStore(b); !errors.Is(err, ErrIndexRange) {
		t.Errorf("NewStore err = %v, want ErrIndexRange", err)
	}
}

func TestFromMeshSplitsSharedVertices(t *testing.T) {
	mesh := models.NewMesh("split")
	red := mesh.AddMaterial("red", 1, 0, 0)
	mesh.Vertices = []models.MeshVertex{
		{Position: math3d.V3(0, 0, 0), Normal: math3d.V3(0, 0, 1)},
		{Position: math3d.V3(1, 0, 0), Normal: math3d.V3(0, 0, 1)},
		{Position: math3d.V3(0, 1, 0), Normal: math3d.V3(0, 0, 1)},
		{Position: math3d.V3(1, 1, 0), Normal: math3d.V3(0, 0, 1)},
	}
	mesh.Faces = []models.Face{
		{V: [3]int{0, 1, 2}, Material: red},
		{V: [3]int{1, 3, 2}, Material: -1},
	}

	b := FromMesh(mesh, DefaultLayout())
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	// Vertices 1 and 2 appear under two materials.
	if b.VertexCount() != 6 {
		t.Errorf("VertexCount = %d, want 6", b.VertexCount())
	}
	// Red plus the white fallback.
	if b.MaterialCount() != 2 {
		t.Fatalf("MaterialCount = %d, want 2", b.MaterialCount())
	}

	s, err := NewStore(b)
	if err != nil {
		t.Fatal(err)
	}
	if c := s.SurfaceColor(s.Triangle(0)); c != math3d.V3(1, 0, 0) {
		t.Errorf("triangle 0 color = %v, want red", c)
	}
	if c := s.SurfaceColor(s.Triangle(1)); c != math3d.V3(1, 1, 1) {
		t.Errorf("triangle 1 color = %v, want white fallback", c)
	}
	if p := s.Triangle(1).B.Position; p != math3d.V3(1, 1, 0) {
		t.Errorf("triangle 1 B = %v, want (1, 1, 0)", p)
	}
}

func TestFromMeshCustomLayout(t *testing.T) {
	mesh, err := models.Builtin("box")
	if err != nil {
		t.Fatal(err)
	}
	layout := Layout{VertexStride: 8, NormalOffset: 3, MaterialOffset: 7, MaterialStride: 5}
	s, err := NewStore(FromMesh(mesh, layout))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if s.TriangleCount() != mesh.TriangleCount() {
		t.Errorf("TriangleCount = %d, want %d", s.TriangleCount(), mesh.TriangleCount())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	mesh, err := models.Builtin("box")
	if err != nil {
		t.Fatal(err)
	}
	want := FromMesh(mesh, DefaultLayout())

	var buf bytes.Buffer
	n, err := want.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo reported %d bytes, wrote %d", n, buf.Len())
	}

	got, err := ReadBuffers(&buf)
	if err != nil {
		t.Fatalf("ReadBuffers: %v", err)
	}
	if got.Layout != want.Layout {
		t.Errorf("Layout = %+v, want %+v", got.Layout, want.Layout)
	}
	if len(got.Vertices) != len(want.Vertices) || len(got.Indices) != len(want.Indices) || len(got.Materials) != len(want.Materials) {
		t.Fatal("array lengths differ after round trip")
	}
	for i := range want.Vertices {
		if got.Vertices[i] != want.Vertices[i] {
			t.Fatalf("vertex float %d = %v, want %v", i, got.Vertices[i], want.Vertices[i])
		}
	}
	for i := range want.Indices {
		if got.Indices[i] != want.Indices[i] {
			t.Fatalf("index %d = %v, want %v", i, got.Indices[i], want.Indices[i])
		}
	}
}

func TestReadBuffersRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", bytes.Repeat([]byte{'x'}, 64)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadBuffers(bytes.NewReader(tc.data)); err == nil {
				t.Error("expected error")
			}
		})
	}

	t.Run("truncated", func(t *testing.T) {
		b := triangleBuffers()
		var buf bytes.Buffer
		if _, err := b.WriteTo(&buf); err != nil {
			t.Fatal(err)
		}
		data := buf.Bytes()[:buf.Len()-4]
		if _, err := ReadBuffers(bytes.NewReader(data)); err == nil {
			t.Error("expected error for truncated data")
		}
	})
}

func TestNewStoreRejectsHugeMaterial(t *testing.T) {
	b := triangleBuffers()
	b.Vertices[8] = 1e20
	b.Materials = nil
	if _, err := NewStore(b); !errors.Is(err, ErrMaterialRange) {
		t.Errorf("NewStore = %v, want %v", err, ErrMaterialRange)
	}
}
