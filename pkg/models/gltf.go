package models

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/taigrr/sunlit/pkg/math3d"
)

// GLTFLoader loads GLTF/GLB files into Mesh format.
type GLTFLoader struct {
	// CalculateNormals fills in smooth normals for vertices the file gives none.
	CalculateNormals bool
}

// NewGLTFLoader creates a new GLTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		CalculateNormals: true,
	}
}

// LoadGLB loads a binary (.glb) or JSON (.gltf) file.
func LoadGLB(path string) (*Mesh, error) {
	return NewGLTFLoader().Load(path)
}

// Load loads a GLTF or GLB file and flattens its default scene into a Mesh
// in world space. Materials keep their document order, so face material
// indices equal glTF material indices.
func (l *GLTFLoader) Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	mesh := NewMesh(filepath.Base(path))
	for i, mat := range doc.Materials {
		mesh.Materials = append(mesh.Materials, convertMaterial(i, mat))
	}

	roots, err := sceneRoots(doc)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		// No node graph: take every mesh untransformed.
		for _, m := range doc.Meshes {
			if err := l.processMesh(doc, m, math3d.Identity(), mesh); err != nil {
				return nil, fmt.Errorf("process mesh %q: %w", m.Name, err)
			}
		}
	}
	for _, root := range roots {
		if err := l.walkNode(doc, root, math3d.Identity(), mesh, 0); err != nil {
			return nil, err
		}
	}

	if len(mesh.Faces) == 0 {
		return nil, fmt.Errorf("load %s: %w", path, ErrEmptyMesh)
	}

	if l.CalculateNormals {
		mesh.FillMissingNormals()
	}

	mesh.CalculateBounds()

	return mesh, nil
}

func sceneRoots(doc *gltf.Document) ([]int, error) {
	if len(doc.Scenes) == 0 {
		return nil, nil
	}
	idx := 0
	if doc.Scene != nil {
		idx = *doc.Scene
	}
	if idx < 0 || idx >= len(doc.Scenes) {
		return nil, fmt.Errorf("default scene %d out of range", idx)
	}
	return doc.Scenes[idx].Nodes, nil
}

// maxNodeDepth bounds recursion on malformed (cyclic) node graphs.
const maxNodeDepth = 64

func (l *GLTFLoader) walkNode(doc *gltf.Document, idx int, parent math3d.Mat4, mesh *Mesh, depth int) error {
	if depth > maxNodeDepth {
		return errors.New("node hierarchy too deep")
	}
	if idx < 0 || idx >= len(doc.Nodes) {
		return fmt.Errorf("node %d out of range", idx)
	}
	node := doc.Nodes[idx]
	world := parent.Mul(nodeMatrix(node))

	if node.Mesh != nil {
		if *node.Mesh >= len(doc.Meshes) {
			return fmt.Errorf("node %d: mesh %d out of range", idx, *node.Mesh)
		}
		m := doc.Meshes[*node.Mesh]
		if err := l.processMesh(doc, m, world, mesh); err != nil {
			return fmt.Errorf("process mesh %q: %w", m.Name, err)
		}
	}
	for _, child := range node.Children {
		if err := l.walkNode(doc, child, world, mesh, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// nodeMatrix returns the node's local transform, from either its matrix or
// its translation/rotation/scale properties.
func nodeMatrix(n *gltf.Node) math3d.Mat4 {
	m := math3d.Mat4(n.Matrix)
	if m != (math3d.Mat4{}) && m != math3d.Identity() {
		return m
	}

	rot := n.Rotation
	if rot == [4]float64{} {
		rot = [4]float64{0, 0, 0, 1}
	}
	scale := n.Scale
	if scale == [3]float64{} {
		scale = [3]float64{1, 1, 1}
	}
	t := n.Translation

	return math3d.Translate(math3d.V3(t[0], t[1], t[2])).
		Mul(math3d.Quaternion(rot)).
		Mul(math3d.Scale(math3d.V3(scale[0], scale[1], scale[2])))
}

func convertMaterial(i int, mat *gltf.Material) Material {
	out := Material{
		Name:      mat.Name,
		BaseColor: [4]float64{1, 1, 1, 1},
	}
	if out.Name == "" {
		out.Name = fmt.Sprintf("material%d", i)
	}
	if pbr := mat.PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
		out.BaseColor = *pbr.BaseColorFactor
	}
	return out
}

// processMesh appends every triangle primitive of m, transformed by world.
// glTF front faces are counter-clockwise, which is the winding the rest of
// the renderer expects, so indices are kept in file order.
func (l *GLTFLoader) processMesh(doc *gltf.Document, m *gltf.Mesh, world math3d.Mat4, mesh *Mesh) error {
	// Normals go through the inverse transpose; it is applied transposed
	// below by reading the inverse row-wise.
	inv := world.Inverse()

	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}

		acr, err := accessor(doc, posIdx)
		if err != nil {
			return err
		}
		positions, err := modeler.ReadPosition(doc, acr, nil)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}

		var normals [][3]float32
		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
			if acr, err = accessor(doc, normIdx); err != nil {
				return err
			}
			if normals, err = modeler.ReadNormal(doc, acr, nil); err != nil {
				return fmt.Errorf("read normals: %w", err)
			}
		}

		var indices []uint32
		if prim.Indices != nil {
			if acr, err = accessor(doc, *prim.Indices); err != nil {
				return err
			}
			if indices, err = modeler.ReadIndices(doc, acr, nil); err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
		} else {
			indices = make([]uint32, len(positions))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}

		material := -1
		if prim.Material != nil && *prim.Material < len(mesh.Materials) {
			material = *prim.Material
		}

		base := len(mesh.Vertices)
		for i, p := range positions {
			v := MeshVertex{Position: world.MulVec3(vec3(p))}
			if i < len(normals) {
				n := vec3(normals[i])
				v.Normal = math3d.V3(
					inv[0]*n.X+inv[1]*n.Y+inv[2]*n.Z,
					inv[4]*n.X+inv[5]*n.Y+inv[6]*n.Z,
					inv[8]*n.X+inv[9]*n.Y+inv[10]*n.Z,
				).Normalize()
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}

		for tri := range slices.Chunk(indices, 3) {
			if len(tri) < 3 {
				break
			}
			var face Face
			for k, idx := range tri {
				if int(idx) >= len(positions) {
					return fmt.Errorf("index %d exceeds %d vertices", idx, len(positions))
				}
				face.V[k] = base + int(idx)
			}
			face.Material = material
			mesh.Faces = append(mesh.Faces, face)
		}
	}

	return nil
}

func accessor(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	return doc.Accessors[idx], nil
}

func vec3(f [3]float32) math3d.Vec3 {
	return math3d.V3(float64(f[0]), float64(f[1]), float64(f[2]))
}
