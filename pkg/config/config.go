// Package config holds the user-facing settings of sunlit: image size,
// path tracer tunables, accumulation limits and logging. Settings load
// from a JSON file on top of Default and may be overridden by CLI flags.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/taigrr/sunlit/pkg/log"
	"github.com/taigrr/sunlit/pkg/math3d"
	"github.com/taigrr/sunlit/pkg/pathtrace"
	"github.com/taigrr/sunlit/pkg/trace"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

var logger = log.New("config")

// Config is the file and flag view of every setting.
type Config struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	MaxBounces    int        `json:"maxBounces"`
	Bias          float64    `json:"bias"`
	BlendExponent float64    `json:"blendExponent"`
	SunDirection  [3]float64 `json:"sunDirection"`
	SunSharpness  float64    `json:"sunSharpness"`
	SunIntensity  float64    `json:"sunIntensity"`
	NormalMode    string     `json:"normalMode"`

	// MaxFrames stops accumulation for a still camera; 0 never stops.
	MaxFrames int `json:"maxFrames"`
	Workers   int `json:"workers,omitempty"`
	TileSize  int `json:"tileSize"`

	Gamma    float64 `json:"gamma"`
	LogLevel string  `json:"logLevel,omitempty"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	pt := pathtrace.DefaultConfig()
	return Config{
		Width:         320,
		Height:        180,
		MaxBounces:    pt.MaxBounces,
		Bias:          pt.Bias,
		BlendExponent: pt.BlendExponent,
		SunDirection:  [3]float64{pt.Sun.Direction.X, pt.Sun.Direction.Y, pt.Sun.Direction.Z},
		SunSharpness:  pt.Sun.Sharpness,
		SunIntensity:  pt.Sun.Intensity,
		NormalMode:    pt.NormalMode.String(),
		MaxFrames:     pathtrace.DefaultMaxFrames,
		TileSize:      pt.TileSize,
		Gamma:         2.2,
		LogLevel:      log.Notice.String(),
	}
}

// Load reads a JSON file over Default. Fields missing from the file keep
// their defaults; unknown fields are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	logger.Infof("loaded config from %s: %dx%d, %d bounces, %d frames", path, cfg.Width, cfg.Height, cfg.MaxBounces, cfg.MaxFrames)
	return cfg, nil
}

// Validate checks every field, including the derived path tracer config.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("size %dx%d: %w", c.Width, c.Height, ErrInvalid)
	case c.MaxFrames < 0:
		return fmt.Errorf("max frames %d: %w", c.MaxFrames, ErrInvalid)
	case c.Gamma <= 0:
		return fmt.Errorf("gamma %v: %w", c.Gamma, ErrInvalid)
	}
	if _, err := trace.ParseNormalMode(c.NormalMode); err != nil {
		return fmt.Errorf("%w: %w", err, ErrInvalid)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", err, ErrInvalid)
	}
	pt := c.PathTrace()
	if err := pt.Validate(); err != nil {
		return fmt.Errorf("%w: %w", err, ErrInvalid)
	}
	return nil
}

// PathTrace converts the settings into the integrator's configuration.
// An unknown normal mode falls back to geometric normals; Validate
// reports it.
func (c Config) PathTrace() pathtrace.Config {
	mode, _ := trace.ParseNormalMode(c.NormalMode)
	return pathtrace.Config{
		MaxBounces:    c.MaxBounces,
		Bias:          c.Bias,
		BlendExponent: c.BlendExponent,
		Sun: pathtrace.Sun{
			Direction: math3d.V3(c.SunDirection[0], c.SunDirection[1], c.SunDirection[2]),
			Sharpness: c.SunSharpness,
			Intensity: c.SunIntensity,
		},
		NormalMode: mode,
		Workers:    c.Workers,
		TileSize:   c.TileSize,
	}
}

// Level returns the configured log level, Notice when unset or unknown.
func (c Config) Level() log.Level {
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.Notice
	}
	return l
}
