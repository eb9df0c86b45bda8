package pathtrace

import (
	"github.com/taigrr/sunlit/pkg/math3d"
	"github.com/taigrr/sunlit/pkg/trace"
)

// PixelUV maps the center of pixel (x, y) of a w×h image into [0,1]².
// Row 0 is the top of the image.
func PixelUV(x, y, w, h int) math3d.Vec2 {
	return math3d.V2(
		(float64(x)+0.5)/float64(w),
		(float64(y)+0.5)/float64(h),
	)
}

// MakeRay builds the primary ray through uv. The origin is the camera
// position; the direction is uv mapped to NDC (y up), unprojected at z=0
// and rotated into world space. Both matrices must be invertible
// counterparts of the camera's view and projection.
func MakeRay(uv math3d.Vec2, cameraToWorld, inverseProjection math3d.Mat4) trace.Ray {
	origin := cameraToWorld.MulVec3(math3d.Zero3())

	ndcX := uv.X*2 - 1
	ndcY := 1 - uv.Y*2
	view := inverseProjection.MulVec4(math3d.V4(ndcX, ndcY, 0, 1)).Vec3()

	return trace.Ray{
		Origin:    origin,
		Direction: cameraToWorld.MulVec3Dir(view).Normalize(),
	}
}
