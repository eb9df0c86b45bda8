package pathtrace

import (
	"errors"
	"math"
	"testing"

	"github.com/taigrr/sunlit/pkg/math3d"
	"github.com/taigrr/sunlit/pkg/trace"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"interpolated normals", func(c *Config) { c.NormalMode = trace.InterpolatedNormal }, true},
		{"zero bounces", func(c *Config) { c.MaxBounces = 0 }, false},
		{"negative bias", func(c *Config) { c.Bias = -1 }, false},
		{"NaN bias", func(c *Config) { c.Bias = math.NaN() }, false},
		{"zero exponent", func(c *Config) { c.BlendExponent = 0 }, false},
		{"zero sun", func(c *Config) { c.Sun.Direction = math3d.Zero3() }, false},
		{"negative intensity", func(c *Config) { c.Sun.Intensity = -1 }, false},
		{"unknown normal mode", func(c *Config) { c.NormalMode = 7 }, false},
		{"negative workers", func(c *Config) { c.Workers = -2 }, false},
		{"zero tile", func(c *Config) { c.TileSize = 0 }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfigValidateNormalizesSun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sun.Direction = math3d.V3(0, 3, 4)
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if math.Abs(cfg.Sun.Direction.Len()-1) > 1e-12 {
		t.Errorf("sun direction %v not normalized", cfg.Sun.Direction)
	}
}
