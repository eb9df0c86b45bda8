package render

import (
	"math"

	"github.com/taigrr/sunlit/pkg/math3d"
)

// maxPitch keeps the orbit away from the poles where LookAt degenerates.
const maxPitch = math.Pi/2 - 0.01

// Camera is an orbit camera: it sits Distance away from Target at the
// given Yaw and Pitch and always looks at Target with +Y up.
type Camera struct {
	Target   math3d.Vec3
	Distance float64
	Yaw      float64 // Rotation around +Y in radians; 0 looks down -Z
	Pitch    float64 // Elevation above the XZ plane in radians

	FOV         float64 // Vertical field of view in radians
	AspectRatio float64 // Width / Height
	Near        float64
	Far         float64

	viewMatrix     math3d.Mat4
	projMatrix     math3d.Mat4
	viewProjMatrix math3d.Mat4
	viewDirty      bool
	projDirty      bool
	viewProjDirty  bool
}

// NewCamera creates a camera five units in front of the origin.
func NewCamera() *Camera {
	return &Camera{
		Distance:      5,
		Pitch:         0.3,
		FOV:           math.Pi / 3,
		AspectRatio:   16.0 / 9.0,
		Near:          0.05,
		Far:           1000,
		viewDirty:     true,
		projDirty:     true,
		viewProjDirty: true,
	}
}

// SetTarget sets the point the camera orbits.
func (c *Camera) SetTarget(target math3d.Vec3) {
	c.Target = target
	c.invalidateView()
}

// SetOrbit places the camera on its orbit. Pitch is clamped short of the
// poles and distance to a small positive minimum.
func (c *Camera) SetOrbit(yaw, pitch, distance float64) {
	c.Yaw = yaw
	c.Pitch = max(-maxPitch, min(maxPitch, pitch))
	c.Distance = max(distance, 1e-3)
	c.invalidateView()
}

// Orbit rotates the camera around Target by the given angles.
func (c *Camera) Orbit(deltaYaw, deltaPitch float64) {
	c.SetOrbit(c.Yaw+deltaYaw, c.Pitch+deltaPitch, c.Distance)
}

// SetFOV sets the field of view (in radians).
func (c *Camera) SetFOV(fov float64) {
	c.FOV = fov
	c.invalidateProjection()
}

// SetAspectRatio sets the aspect ratio.
func (c *Camera) SetAspectRatio(aspect float64) {
	c.AspectRatio = aspect
	c.invalidateProjection()
}

// SetClipPlanes sets the near and far clipping planes.
func (c *Camera) SetClipPlanes(near, far float64) {
	c.Near = near
	c.Far = far
	c.invalidateProjection()
}

// Frame aims the camera at the center of the box [lo, hi] and backs off
// until its bounding sphere fits the vertical field of view.
func (c *Camera) Frame(lo, hi math3d.Vec3) {
	center := lo.Add(hi).Scale(0.5)
	radius := hi.Sub(lo).Len() / 2
	if radius == 0 {
		radius = 1
	}
	c.SetTarget(center)
	c.SetOrbit(c.Yaw, c.Pitch, 1.1*radius/math.Sin(c.FOV/2))
	c.SetClipPlanes(c.Distance/1000, c.Distance+radius*4)
}

// Position returns the eye point in world space.
func (c *Camera) Position() math3d.Vec3 {
	cp := math.Cos(c.Pitch)
	offset := math3d.V3(
		-math.Sin(c.Yaw)*cp,
		math.Sin(c.Pitch),
		math.Cos(c.Yaw)*cp,
	)
	return c.Target.Add(offset.Scale(c.Distance))
}

// Forward returns the unit viewing direction.
func (c *Camera) Forward() math3d.Vec3 {
	return c.Target.Sub(c.Position()).Normalize()
}

// ViewMatrix returns the world-to-camera matrix.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	if c.viewDirty {
		c.viewMatrix = math3d.LookAt(c.Position(), c.Target, math3d.Up())
		c.viewDirty = false
	}
	return c.viewMatrix
}

// ProjectionMatrix returns the projection matrix.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	if c.projDirty {
		c.projMatrix = math3d.Perspective(c.FOV, c.AspectRatio, c.Near, c.Far)
		c.projDirty = false
	}
	return c.projMatrix
}

// ViewProjectionMatrix returns the combined view-projection matrix.
func (c *Camera) ViewProjectionMatrix() math3d.Mat4 {
	if c.viewProjDirty {
		c.viewProjMatrix = c.ProjectionMatrix().Mul(c.ViewMatrix())
		c.viewProjDirty = false
	}
	return c.viewProjMatrix
}

// CameraToWorld returns the inverse of the view matrix.
func (c *Camera) CameraToWorld() math3d.Mat4 {
	return c.ViewMatrix().Inverse()
}

// InverseProjection returns the inverse of the projection matrix.
func (c *Camera) InverseProjection() math3d.Mat4 {
	return c.ProjectionMatrix().Inverse()
}

func (c *Camera) invalidateView() {
	c.viewDirty = true
	c.viewProjDirty = true
}

func (c *Camera) invalidateProjection() {
	c.projDirty = true
	c.viewProjDirty = true
}

// WorldToScreen transforms a world point to screen coordinates.
// Returns (screenX, screenY, depth, visible).
func (c *Camera) WorldToScreen(worldPos math3d.Vec3, screenWidth, screenHeight int) (x, y, depth float64, visible bool) {
	clipPos := c.ViewProjectionMatrix().MulVec4(math3d.V4FromV3(worldPos, 1))
	if clipPos.W <= 0 {
		return 0, 0, 0, false
	}

	ndc := clipPos.PerspectiveDivide()
	if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 || ndc.Z < -1 || ndc.Z > 1 {
		return 0, 0, 0, false
	}

	x = (ndc.X + 1) * 0.5 * float64(screenWidth)
	y = (1 - ndc.Y) * 0.5 * float64(screenHeight) // Y is flipped
	depth = ndc.Z

	return x, y, depth, true
}
