package render

import (
	"math"

	"github.com/taigrr/sunlit/pkg/geometry"
	"github.com/taigrr/sunlit/pkg/math3d"
)

// Vertex represents a vertex with all attributes needed for rasterization.
type Vertex struct {
	Position math3d.Vec3 // World position
	Normal   math3d.Vec3 // Normal vector (for lighting)
	Color    Color       // Vertex color
}

// Triangle is a triangle to be rasterized. Front faces wind
// counter-clockwise when seen from outside.
type Triangle struct {
	V [3]Vertex
}

// Rasterizer is the software z-buffered Gouraud rasterizer behind the
// interactive preview.
type Rasterizer struct {
	camera  *Camera
	fb      *Framebuffer
	zbuffer []float64 // Depth buffer (1D array, row-major)

	// Ambient is the light every surface receives regardless of its
	// orientation to the light, in [0,1].
	Ambient                float64
	CullingStats           CullingStats
	DisableBackfaceCulling bool // If true, render both sides of triangles
}

// CullingStats counts triangles of the last DrawStore call.
type CullingStats struct {
	Tested int // Triangles tested against the frustum
	Culled int // Triangles outside the frustum
	Drawn  int // Triangles handed to the rasterizer
}

// NewRasterizer creates a new rasterizer.
func NewRasterizer(camera *Camera, fb *Framebuffer) *Rasterizer {
	r := &Rasterizer{
		camera:  camera,
		fb:      fb,
		Ambient: 0.3,
	}
	r.Resize()
	return r
}

// Resize resizes the rasterizer's buffer to match the framebuffer.
func (r *Rasterizer) Resize() {
	if r.fb == nil {
		r.zbuffer = nil
		return
	}
	r.zbuffer = make([]float64, r.fb.Width*r.fb.Height)
}

// Width returns the framebuffer width.
func (r *Rasterizer) Width() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Width
}

// Height returns the framebuffer height.
func (r *Rasterizer) Height() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Height
}

// ClearDepth clears the Z-buffer (call before each frame).
func (r *Rasterizer) ClearDepth() {
	// Use copy-doubling for faster clearing
	n := len(r.zbuffer)
	if n == 0 {
		return
	}
	r.zbuffer[0] = math.MaxFloat64
	for i := 1; i < n; i *= 2 {
		copy(r.zbuffer[i:], r.zbuffer[:i])
	}
}

func (r *Rasterizer) getDepth(x, y int) float64 {
	if x < 0 || x >= r.Width() || y < 0 || y >= r.Height() {
		return math.MaxFloat64
	}
	return r.zbuffer[y*r.Width()+x]
}

func (r *Rasterizer) setDepth(x, y int, z float64) {
	if x < 0 || x >= r.Width() || y < 0 || y >= r.Height() {
		return
	}
	r.zbuffer[y*r.Width()+x] = z
}

// screenVertex is a projected vertex: pixel position, NDC depth, clip W
// and its lit color in 0-255 units.
type screenVertex struct {
	X, Y, Z, W float64
	Shade      math3d.Vec3
}

// DrawStore rasterizes every triangle of scene lit from lightDir, skipping
// triangles whose bounds fall outside the view frustum. Triangle colors
// come from the same materials the path tracer uses.
func (r *Rasterizer) DrawStore(scene *geometry.Store, lightDir math3d.Vec3) {
	r.CullingStats = CullingStats{}
	frustum := r.camera.Frustum()

	for _, t := range scene.Triangles() {
		r.CullingStats.Tested++
		if !frustum.IntersectAABB(TriangleBounds(t.A.Position, t.B.Position, t.C.Position)) {
			r.CullingStats.Culled++
			continue
		}
		r.CullingStats.Drawn++
		r.DrawTriangleGouraud(r.triangle(scene, t), lightDir)
	}
}

// triangle converts a stored triangle, falling back to the face normal for
// vertices without one.
func (r *Rasterizer) triangle(scene *geometry.Store, t geometry.Triangle) Triangle {
	faceNormal := t.Normal()
	color := linearToColor(scene.SurfaceColor(t))

	var tri Triangle
	for i, v := range [3]geometry.Vertex{t.A, t.B, t.C} {
		n := v.Normal
		if n.LenSq() == 0 {
			n = faceNormal
		}
		tri.V[i] = Vertex{Position: v.Position, Normal: n.Normalize(), Color: color}
	}
	return tri
}

// linearToColor quantizes a linear RGB color without gamma.
func linearToColor(c math3d.Vec3) Color {
	c = c.Clamp(0, 1)
	return RGB(uint8(c.X*255+0.5), uint8(c.Y*255+0.5), uint8(c.Z*255+0.5))
}

// DrawTriangleGouraud rasterizes a triangle with Gouraud shading: each
// vertex is lit with a Lambert term plus Ambient and the results are
// interpolated across the face.
func (r *Rasterizer) DrawTriangleGouraud(tri Triangle, lightDir math3d.Vec3) {
	w, h := float64(r.Width()), float64(r.Height())
	viewProj := r.camera.ViewProjectionMatrix()
	light := lightDir.Normalize()

	var sv [3]screenVertex
	for i, v := range tri.V {
		clip := viewProj.MulVec4(math3d.V4FromV3(v.Position, 1))
		// Partially clipped triangles would need near-plane clipping; the
		// preview drops them instead.
		if clip.W <= 0 {
			return
		}
		ndc := clip.PerspectiveDivide()

		lambert := max(0, v.Normal.Dot(light))
		intensity := r.Ambient + (1-r.Ambient)*lambert
		sv[i] = screenVertex{
			X:     (ndc.X + 1) * 0.5 * w,
			Y:     (1 - ndc.Y) * 0.5 * h,
			Z:     ndc.Z,
			W:     clip.W,
			Shade: math3d.V3(float64(v.Color.R), float64(v.Color.G), float64(v.Color.B)).Scale(intensity),
		}
	}

	// Counter-clockwise in NDC turns clockwise once Y is flipped, so front
	// faces have negative area here.
	area := edge(sv[0].X, sv[0].Y, sv[1].X, sv[1].Y, sv[2].X, sv[2].Y)
	if area == 0 || (area > 0 && !r.DisableBackfaceCulling) {
		return
	}

	minX := max(0, int(math.Floor(min(sv[0].X, sv[1].X, sv[2].X))))
	maxX := min(r.Width()-1, int(math.Ceil(max(sv[0].X, sv[1].X, sv[2].X))))
	minY := max(0, int(math.Floor(min(sv[0].Y, sv[1].Y, sv[2].Y))))
	maxY := min(r.Height()-1, int(math.Ceil(max(sv[0].Y, sv[1].Y, sv[2].Y))))

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			bc := math3d.V3(
				edge(sv[1].X, sv[1].Y, sv[2].X, sv[2].Y, px, py)/area,
				edge(sv[2].X, sv[2].Y, sv[0].X, sv[0].Y, px, py)/area,
				edge(sv[0].X, sv[0].Y, sv[1].X, sv[1].Y, px, py)/area,
			)
			if bc.X < 0 || bc.Y < 0 || bc.Z < 0 {
				continue
			}

			z := bc.Dot(math3d.V3(sv[0].Z, sv[1].Z, sv[2].Z))
			if z >= r.getDepth(x, y) {
				continue
			}
			r.setDepth(x, y, z)
			r.fb.SetPixel(x, y, blendShades(sv[0].Shade, sv[1].Shade, sv[2].Shade, bc))
		}
	}
}

// edge returns twice the signed area of the triangle (a, b, p).
func edge(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// barycentric returns the weights of the three corners at (px, py). A
// degenerate triangle yields all-negative weights.
func barycentric(x0, y0, x1, y1, x2, y2, px, py float64) math3d.Vec3 {
	area := edge(x0, y0, x1, y1, x2, y2)
	if area == 0 {
		return math3d.Splat3(-1)
	}
	return math3d.V3(
		edge(x1, y1, x2, y2, px, py)/area,
		edge(x2, y2, x0, y0, px, py)/area,
		edge(x0, y0, x1, y1, px, py)/area,
	)
}

// blendShades mixes three 0-255 colors by barycentric weight and rounds.
func blendShades(s0, s1, s2, bc math3d.Vec3) Color {
	c := s0.Scale(bc.X).Add(s1.Scale(bc.Y)).Add(s2.Scale(bc.Z)).Clamp(0, 255)
	return RGB(uint8(c.X+0.5), uint8(c.Y+0.5), uint8(c.Z+0.5))
}
