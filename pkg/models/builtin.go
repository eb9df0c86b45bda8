package models

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/taigrr/sunlit/pkg/math3d"
)

var builtins = map[string]func() *Mesh{
	"triangle": builtinTriangle,
	"box":      builtinBox,
	"room":     builtinRoom,
}

// BuiltinNames lists the scenes available without an asset file.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Builtin returns a procedurally built scene by name.
func Builtin(name string) (*Mesh, error) {
	build, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("builtin %q: %w", name, ErrUnsupportedFormat)
	}
	mesh := build()
	mesh.CalculateBounds()
	return mesh, nil
}

// Load opens a scene by path, choosing the decoder from the file extension.
// Names of the form "builtin:<name>" select a procedural scene.
func Load(path string) (*Mesh, error) {
	if name, ok := strings.CutPrefix(path, "builtin:"); ok {
		return Builtin(name)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb", ".gltf":
		return LoadGLB(path)
	case ".obj":
		return LoadOBJ(path)
	default:
		return nil, fmt.Errorf("load %s: %w", path, ErrUnsupportedFormat)
	}
}

// AddBox appends an axis-aligned box. Faces point outward, or inward when
// inward is set, which turns the box into a closed room.
func (m *Mesh) AddBox(lo, hi math3d.Vec3, material int, inward bool) {
	p := func(x, y, z float64) math3d.Vec3 { return math3d.V3(x, y, z) }
	quads := [6][4]math3d.Vec3{
		{p(hi.X, lo.Y, hi.Z), p(hi.X, lo.Y, lo.Z), p(hi.X, hi.Y, lo.Z), p(hi.X, hi.Y, hi.Z)}, // +X
		{p(lo.X, lo.Y, lo.Z), p(lo.X, lo.Y, hi.Z), p(lo.X, hi.Y, hi.Z), p(lo.X, hi.Y, lo.Z)}, // -X
		{p(lo.X, hi.Y, lo.Z), p(lo.X, hi.Y, hi.Z), p(hi.X, hi.Y, hi.Z), p(hi.X, hi.Y, lo.Z)}, // +Y
		{p(lo.X, lo.Y, lo.Z), p(hi.X, lo.Y, lo.Z), p(hi.X, lo.Y, hi.Z), p(lo.X, lo.Y, hi.Z)}, // -Y
		{p(lo.X, lo.Y, hi.Z), p(hi.X, lo.Y, hi.Z), p(hi.X, hi.Y, hi.Z), p(lo.X, hi.Y, hi.Z)}, // +Z
		{p(hi.X, lo.Y, lo.Z), p(lo.X, lo.Y, lo.Z), p(lo.X, hi.Y, lo.Z), p(hi.X, hi.Y, lo.Z)}, // -Z
	}
	for _, q := range quads {
		if inward {
			m.AddQuad(q[3], q[2], q[1], q[0], material)
		} else {
			m.AddQuad(q[0], q[1], q[2], q[3], material)
		}
	}
}

// builtinTriangle is one white triangle in the z=0 plane facing +Z.
func builtinTriangle() *Mesh {
	m := NewMesh("triangle")
	white := m.AddMaterial("white", 1, 1, 1)
	m.AddTriangle(math3d.V3(-1, -1, 0), math3d.V3(1, -1, 0), math3d.V3(0, 1, 0), white)
	return m
}

// builtinBox is a gray ground plane with two colored blocks on it.
func builtinBox() *Mesh {
	m := NewMesh("box")
	ground := m.AddMaterial("ground", 0.8, 0.8, 0.8)
	red := m.AddMaterial("red", 0.9, 0.2, 0.2)
	blue := m.AddMaterial("blue", 0.2, 0.3, 0.9)

	m.AddQuad(
		math3d.V3(-5, 0, -5), math3d.V3(-5, 0, 5),
		math3d.V3(5, 0, 5), math3d.V3(5, 0, -5),
		ground,
	)
	m.AddBox(math3d.V3(-1.5, 0, -0.5), math3d.V3(-0.5, 1, 0.5), red, false)
	m.AddBox(math3d.V3(0.5, 0, -1), math3d.V3(1.5, 2, 0), blue, false)
	return m
}

// builtinRoom is a closed room with no opening: no path ever escapes to
// the sky, so it renders black.
func builtinRoom() *Mesh {
	m := NewMesh("room")
	wall := m.AddMaterial("wall", 0.9, 0.9, 0.9)
	m.AddBox(math3d.V3(-2, 0, -2), math3d.V3(2, 3, 2), wall, true)
	return m
}
