package pathtrace

import (
	"github.com/taigrr/sunlit/pkg/geometry"
	"github.com/taigrr/sunlit/pkg/math3d"
	"github.com/taigrr/sunlit/pkg/trace"
)

// Integrate follows one path from primary and returns its color, clamped to
// [0,1] with alpha 1.
//
// Every hit adds the surface color weighted by the current throughput and
// then attenuates the throughput by it. A primary ray that escapes returns
// the sun term alone; a path that escapes after bouncing has its color
// scaled by the sun term and throughput. A path still bouncing after
// cfg.MaxBounces hits is black.
func Integrate(primary trace.Ray, scene *geometry.Store, seed uint32, cfg Config) math3d.Vec4 {
	ray := primary
	color := math3d.Zero3()
	throughput := math3d.Splat3(1)

	for bounce := range cfg.MaxBounces {
		hit := trace.Trace(scene, ray, cfg.NormalMode)
		if !hit.OK {
			sun := cfg.Sun.Radiance(ray.Direction)
			if bounce == 0 {
				return opaque(math3d.Splat3(sun))
			}
			return opaque(color.Mul(throughput.Scale(sun)))
		}

		surface := scene.SurfaceColor(scene.Triangle(hit.Triangle))
		color = color.Add(surface.Mul(throughput))
		throughput = throughput.Mul(surface)

		ray = trace.Ray{
			Origin:    hit.Point.Add(hit.Normal.Scale(cfg.Bias)),
			Direction: Scatter(hit.Normal, hit.Point, seed),
		}
	}

	return opaque(math3d.Zero3())
}

func opaque(c math3d.Vec3) math3d.Vec4 {
	return math3d.V4FromV3(c.Clamp(0, 1), 1)
}
