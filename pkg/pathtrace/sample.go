package pathtrace

import (
	"math"

	"github.com/taigrr/sunlit/pkg/math3d"
)

// pcg is the PCG-RXS-M-XS output permutation used as an integer hash.
func pcg(v uint32) uint32 {
	state := v*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

// Hash mixes the float32 bits of p with seed. Equal inputs give equal
// outputs on every platform.
func Hash(p math3d.Vec3, seed uint32) uint32 {
	h := pcg(math.Float32bits(float32(p.X)) ^ seed)
	h = pcg(h ^ math.Float32bits(float32(p.Y)))
	return pcg(h ^ math.Float32bits(float32(p.Z)))
}

// unit maps a hash to [0, 1).
func unit(h uint32) float64 {
	return float64(h) / (1 << 32)
}

// CosineHemisphere maps two uniforms in [0,1) to a unit direction around n
// with density proportional to the cosine of the angle to n.
func CosineHemisphere(n math3d.Vec3, r1, r2 float64) math3d.Vec3 {
	phi := 2 * math.Pi * r1
	r := math.Sqrt(r2)
	x := r * math.Cos(phi)
	y := r * math.Sin(phi)
	z := math.Sqrt(math.Max(0, 1-r2))

	t, b := math3d.Basis(n)
	return t.Scale(x).Add(b.Scale(y)).Add(n.Scale(z)).Normalize()
}

// Scatter picks the bounce direction leaving point p with normal n during
// frame seed. The result is reproducible for a given point and frame.
func Scatter(n, p math3d.Vec3, seed uint32) math3d.Vec3 {
	h1 := Hash(p, seed)
	h2 := pcg(h1)
	return CosineHemisphere(n, unit(h1), unit(h2))
}
