// Package pathtrace is a progressive unidirectional path tracer. Each
// frame traces one path per pixel and folds it into a persistent
// accumulation buffer with a decaying weight.
package pathtrace

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/taigrr/sunlit/pkg/math3d"
	"github.com/taigrr/sunlit/pkg/trace"
)

// ErrInvalidConfig wraps every Config validation failure.
var ErrInvalidConfig = errors.New("invalid path tracer config")

// Sun is the only light: an analytic lobe around Direction evaluated when a
// path escapes the scene.
type Sun struct {
	Direction math3d.Vec3
	Sharpness float64
	Intensity float64
}

// Radiance returns Intensity * max(dir·Direction, 0)^Sharpness.
// Direction must be unit length.
func (s Sun) Radiance(dir math3d.Vec3) float64 {
	d := dir.Dot(s.Direction)
	if d < 0 {
		d = 0
	}
	return s.Intensity * math.Pow(d, s.Sharpness)
}

// Config holds every tunable of the integrator, the accumulator and the
// frame dispatcher.
type Config struct {
	// MaxBounces is the number of surface hits allowed before a path is
	// discarded as black.
	MaxBounces int
	// Bias offsets scattered ray origins along the surface normal.
	Bias float64
	// BlendExponent shapes the accumulation weight 1/(n+1)^BlendExponent.
	BlendExponent float64
	Sun           Sun
	NormalMode    trace.NormalMode

	// Workers bounds concurrently rendered tiles; 0 means runtime.NumCPU.
	Workers int
	// TileSize is the edge length of the square tiles a frame is split into.
	TileSize int
}

// DefaultConfig returns the reference settings.
func DefaultConfig() Config {
	return Config{
		MaxBounces:    8,
		Bias:          1e-3,
		BlendExponent: 1.05,
		Sun: Sun{
			Direction: math3d.Up(),
			Sharpness: 8,
			Intensity: 4,
		},
		NormalMode: trace.GeometricNormal,
		TileSize:   8,
	}
}

// Validate checks ranges and normalizes the sun direction in place.
func (c *Config) Validate() error {
	switch {
	case c.MaxBounces < 1:
		return fmt.Errorf("max bounces %d: %w", c.MaxBounces, ErrInvalidConfig)
	case c.Bias < 0 || math.IsNaN(c.Bias):
		return fmt.Errorf("bias %v: %w", c.Bias, ErrInvalidConfig)
	case c.BlendExponent <= 0 || math.IsNaN(c.BlendExponent):
		return fmt.Errorf("blend exponent %v: %w", c.BlendExponent, ErrInvalidConfig)
	case c.Sun.Direction.LenSq() == 0:
		return fmt.Errorf("sun direction is zero: %w", ErrInvalidConfig)
	case c.Sun.Sharpness < 0 || c.Sun.Intensity < 0:
		return fmt.Errorf("sun sharpness %v intensity %v: %w", c.Sun.Sharpness, c.Sun.Intensity, ErrInvalidConfig)
	case c.NormalMode != trace.GeometricNormal && c.NormalMode != trace.InterpolatedNormal:
		return fmt.Errorf("normal mode %d: %w", c.NormalMode, ErrInvalidConfig)
	case c.Workers < 0:
		return fmt.Errorf("workers %d: %w", c.Workers, ErrInvalidConfig)
	case c.TileSize < 1:
		return fmt.Errorf("tile size %d: %w", c.TileSize, ErrInvalidConfig)
	}
	c.Sun.Direction = c.Sun.Direction.Normalize()
	return nil
}

func (c *Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
