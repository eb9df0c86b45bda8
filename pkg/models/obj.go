package models

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/taigrr/sunlit/pkg/math3d"
)

// LoadOBJ loads a Wavefront OBJ file. Material libraries referenced with
// mtllib are resolved relative to the OBJ file; only diffuse colors (Kd)
// are read from them.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj: %w", err)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	mesh, err := ParseOBJ(f, filepath.Base(path), func(name string) (io.ReadCloser, error) {
		return os.Open(filepath.Join(dir, name))
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return mesh, nil
}

// MaterialOpener opens a material library by the name given in an OBJ file.
type MaterialOpener func(name string) (io.ReadCloser, error)

type objCorner struct {
	pos, normal int
}

// ParseOBJ decodes OBJ text. Polygons are fan-triangulated. openMTL may be
// nil, in which case mtllib lines are ignored and usemtl creates white
// materials.
func ParseOBJ(r io.Reader, name string, openMTL MaterialOpener) (*Mesh, error) {
	mesh := NewMesh(name)

	var positions, normals []math3d.Vec3
	library := map[string][4]float64{}
	materialIndex := map[string]int{}
	current := -1
	corners := map[objCorner]int{}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			v, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			positions = append(positions, v)
		case "vn":
			n, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			normals = append(normals, n.Normalize())
		case "mtllib":
			if openMTL == nil {
				continue
			}
			for _, lib := range fields[1:] {
				if err := readMTL(openMTL, lib, library); err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
			}
		case "usemtl":
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: usemtl without name", lineNo)
			}
			matName := fields[1]
			idx, ok := materialIndex[matName]
			if !ok {
				color, found := library[matName]
				if !found {
					color = [4]float64{1, 1, 1, 1}
				}
				mesh.Materials = append(mesh.Materials, Material{Name: matName, BaseColor: color})
				idx = len(mesh.Materials) - 1
				materialIndex[matName] = idx
			}
			current = idx
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices", lineNo)
			}
			poly := make([]int, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				c, err := parseCorner(ref, len(positions), len(normals))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				vi, ok := corners[c]
				if !ok {
					v := MeshVertex{Position: positions[c.pos]}
					if c.normal >= 0 {
						v.Normal = normals[c.normal]
					}
					mesh.Vertices = append(mesh.Vertices, v)
					vi = len(mesh.Vertices) - 1
					corners[c] = vi
				}
				poly = append(poly, vi)
			}
			for i := 1; i+1 < len(poly); i++ {
				mesh.Faces = append(mesh.Faces, Face{
					V:        [3]int{poly[0], poly[i], poly[i+1]},
					Material: current,
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read obj: %w", err)
	}

	if len(mesh.Faces) == 0 {
		return nil, ErrEmptyMesh
	}
	mesh.FillMissingNormals()
	mesh.CalculateBounds()
	return mesh, nil
}

func parseVec3(fields []string) (math3d.Vec3, error) {
	if len(fields) < 3 {
		return math3d.Vec3{}, fmt.Errorf("expected 3 components, got %d", len(fields))
	}
	var c [3]float64
	for i := range 3 {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return math3d.Vec3{}, fmt.Errorf("parse component: %w", err)
		}
		c[i] = f
	}
	return math3d.V3(c[0], c[1], c[2]), nil
}

// parseCorner decodes v, v/vt, v//vn or v/vt/vn into zero-based indices.
// A missing normal is reported as -1.
func parseCorner(ref string, numPos, numNorm int) (objCorner, error) {
	parts := strings.Split(ref, "/")
	pos, err := resolveIndex(parts[0], numPos)
	if err != nil {
		return objCorner{}, fmt.Errorf("vertex %q: %w", ref, err)
	}
	c := objCorner{pos: pos, normal: -1}
	if len(parts) == 3 && parts[2] != "" {
		n, err := resolveIndex(parts[2], numNorm)
		if err != nil {
			return objCorner{}, fmt.Errorf("normal %q: %w", ref, err)
		}
		c.normal = n
	}
	return c, nil
}

func resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0:
		i--
	case i < 0:
		i += count
	default:
		return 0, fmt.Errorf("index 0 is invalid")
	}
	if i < 0 || i >= count {
		return 0, fmt.Errorf("index out of range (have %d)", count)
	}
	return i, nil
}

func readMTL(open MaterialOpener, name string, library map[string][4]float64) error {
	rc, err := open(name)
	if err != nil {
		return fmt.Errorf("open mtl: %w", err)
	}
	defer rc.Close()

	current := ""
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "newmtl":
			if len(fields) > 1 {
				current = fields[1]
				library[current] = [4]float64{1, 1, 1, 1}
			}
		case "Kd":
			if current == "" {
				continue
			}
			kd, err := parseVec3(fields[1:])
			if err != nil {
				return fmt.Errorf("mtl %s: %w", name, err)
			}
			c := library[current]
			c[0], c[1], c[2] = kd.X, kd.Y, kd.Z
			library[current] = c
		case "d":
			if current == "" || len(fields) < 2 {
				continue
			}
			d, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return fmt.Errorf("mtl %s: %w", name, err)
			}
			c := library[current]
			c[3] = d
			library[current] = c
		}
	}
	return scanner.Err()
}
