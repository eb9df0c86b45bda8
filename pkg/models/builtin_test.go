package models

import (
	"errors"
	"testing"

	"github.com/taigrr/sunlit/pkg/math3d"
)

func TestBuiltinScenes(t *testing.T) {
	for _, name := range BuiltinNames() {
		t.Run(name, func(t *testing.T) {
			mesh, err := Load("builtin:" + name)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if mesh.TriangleCount() == 0 {
				t.Fatal("no triangles")
			}
			for i, f := range mesh.Faces {
				for _, vi := range f.V {
					if vi < 0 || vi >= mesh.VertexCount() {
						t.Fatalf("face %d references vertex %d of %d", i, vi, mesh.VertexCount())
					}
				}
				if f.Material < 0 || f.Material >= mesh.MaterialCount() {
					t.Fatalf("face %d has no material", i)
				}
			}
		})
	}
}

func TestBuiltinUnknown(t *testing.T) {
	if _, err := Builtin("nope"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoadUnknownExtension(t *testing.T) {
	if _, err := Load("scene.fbx"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestAddBoxFacesOutward(t *testing.T) {
	for _, inward := range []bool{false, true} {
		mesh := NewMesh("box")
		mesh.AddBox(math3d.V3(-1, -1, -1), math3d.V3(1, 1, 1), -1, inward)
		mesh.CalculateBounds()

		if mesh.TriangleCount() != 12 {
			t.Fatalf("TriangleCount = %d, want 12", mesh.TriangleCount())
		}
		for i, f := range mesh.Faces {
			a := mesh.Vertices[f.V[0]].Position
			b := mesh.Vertices[f.V[1]].Position
			c := mesh.Vertices[f.V[2]].Position
			n := b.Sub(a).Cross(c.Sub(a))
			centroid := a.Add(b).Add(c).Scale(1.0 / 3)
			outward := n.Dot(centroid) > 0
			if outward == inward {
				t.Errorf("inward=%v: face %d normal %v points the wrong way", inward, i, n)
			}
		}
	}
}
