package render

import (
	"github.com/taigrr/sunlit/pkg/geometry"
	"github.com/taigrr/sunlit/pkg/math3d"
)

// Wireframe draws line overlays on top of a rendered frame.
type Wireframe struct {
	camera *Camera
	fb     *Framebuffer
}

// NewWireframe creates a new wireframe renderer.
func NewWireframe(camera *Camera, fb *Framebuffer) *Wireframe {
	return &Wireframe{
		camera: camera,
		fb:     fb,
	}
}

// DrawLine3D draws a world-space line. Lines with both endpoints outside
// the view are skipped.
func (w *Wireframe) DrawLine3D(p1, p2 math3d.Vec3, color Color) {
	x1, y1, _, vis1 := w.camera.WorldToScreen(p1, w.fb.Width, w.fb.Height)
	x2, y2, _, vis2 := w.camera.WorldToScreen(p2, w.fb.Width, w.fb.Height)
	if !vis1 || !vis2 {
		return
	}
	w.fb.DrawLine(int(x1), int(y1), int(x2), int(y2), color)
}

// DrawStore draws the edges of every triangle in scene.
func (w *Wireframe) DrawStore(scene *geometry.Store, color Color) {
	for _, t := range scene.Triangles() {
		w.DrawLine3D(t.A.Position, t.B.Position, color)
		w.DrawLine3D(t.B.Position, t.C.Position, color)
		w.DrawLine3D(t.C.Position, t.A.Position, color)
	}
}

// boxEdges pairs AABB.Corners indices that differ in one axis.
var boxEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7}, // X
	{0, 2}, {1, 3}, {4, 6}, {5, 7}, // Y
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // Z
}

// DrawBounds draws the twelve edges of box.
func (w *Wireframe) DrawBounds(box AABB, color Color) {
	corners := box.Corners()
	for _, e := range boxEdges {
		w.DrawLine3D(corners[e[0]], corners[e[1]], color)
	}
}

// DrawAxes draws the coordinate axes at origin in red, green and blue.
func (w *Wireframe) DrawAxes(origin math3d.Vec3, length float64) {
	w.DrawLine3D(origin, origin.Add(math3d.V3(length, 0, 0)), RGB(255, 0, 0))
	w.DrawLine3D(origin, origin.Add(math3d.V3(0, length, 0)), RGB(0, 255, 0))
	w.DrawLine3D(origin, origin.Add(math3d.V3(0, 0, length)), RGB(0, 0, 255))
}
