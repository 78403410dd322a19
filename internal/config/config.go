package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pendulum3d/internal/dynamo"
)

const (
	DefaultMass        = 20.0
	DefaultLength      = 100.0
	DefaultGravity     = 9.8
	DefaultTheta       = 90.0
	DefaultPhi2        = 180.0
	DefaultTrailLength = 500
	DefaultSteps       = 600
	DefaultFPS         = 60
)

type Config struct {
	Physics PhysicsConfig `yaml:"physics" toml:"physics"`
	Initial InitialConfig `yaml:"initial" toml:"initial"`
	// TrailLength caps the number of remembered bob 2 positions.
	TrailLength int `yaml:"trail_length" toml:"trail_length"`
	// Steps is the number of fixed steps for headless runs.
	Steps int `yaml:"steps" toml:"steps"`
	// FPS is the frame rate of the live view.
	FPS int `yaml:"fps" toml:"fps"`
}

type PhysicsConfig struct {
	M1      float64 `yaml:"m1" toml:"m1"`
	M2      float64 `yaml:"m2" toml:"m2"`
	L1      float64 `yaml:"l1" toml:"l1"`
	L2      float64 `yaml:"l2" toml:"l2"`
	Gravity float64 `yaml:"g" toml:"g"`
}

// InitialConfig holds the starting spherical angles in degrees. Theta is
// measured from straight down, phi is the azimuth in the horizontal plane.
type InitialConfig struct {
	Theta1 float64 `yaml:"theta1" toml:"theta1"`
	Phi1   float64 `yaml:"phi1" toml:"phi1"`
	Theta2 float64 `yaml:"theta2" toml:"theta2"`
	Phi2   float64 `yaml:"phi2" toml:"phi2"`
}

func DefaultConfig() *Config {
	return &Config{
		Physics: PhysicsConfig{
			M1:      DefaultMass,
			M2:      DefaultMass,
			L1:      DefaultLength,
			L2:      DefaultLength,
			Gravity: DefaultGravity,
		},
		Initial: InitialConfig{
			Theta1: DefaultTheta,
			Theta2: DefaultTheta,
			Phi2:   DefaultPhi2,
		},
		TrailLength: DefaultTrailLength,
		Steps:       DefaultSteps,
		FPS:         DefaultFPS,
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load overlays the file at path onto DefaultConfig. Files ending in .toml
// are read as TOML, anything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path in the format chosen by its extension.
func Save(path string, cfg *Config) error {
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Params converts the configuration into the integrator's parameter set.
func (c *Config) Params() dynamo.Params {
	return dynamo.Params{
		M1:          c.Physics.M1,
		M2:          c.Physics.M2,
		L1:          c.Physics.L1,
		L2:          c.Physics.L2,
		G:           c.Physics.Gravity,
		Theta1:      c.Initial.Theta1,
		Phi1:        c.Initial.Phi1,
		Theta2:      c.Initial.Theta2,
		Phi2:        c.Initial.Phi2,
		TrailLength: c.TrailLength,
	}
}

// Range is the closed interval a user-facing value may take.
type Range struct {
	Min, Max float64
}

// Ranges are the limits offered to users, keyed by yaml field name.
var Ranges = map[string]Range{
	"g":            {1, 30},
	"m1":           {1, 50},
	"m2":           {1, 50},
	"l1":           {10, 150},
	"l2":           {10, 150},
	"theta1":       {0, 180},
	"phi1":         {0, 360},
	"theta2":       {0, 180},
	"phi2":         {0, 360},
	"trail_length": {50, 2000},
	"fps":          {1, 240},
}

// Clamp limits v to r.
func (r Range) Clamp(v float64) float64 {
	return math.Max(r.Min, math.Min(r.Max, v))
}

type field struct {
	name  string
	value float64
}

// Validate checks every value against Ranges. The integrator accepts
// anything; this is where nonsense is rejected.
func (c *Config) Validate() error {
	fields := []field{
		{"g", c.Physics.Gravity},
		{"m1", c.Physics.M1},
		{"m2", c.Physics.M2},
		{"l1", c.Physics.L1},
		{"l2", c.Physics.L2},
		{"theta1", c.Initial.Theta1},
		{"phi1", c.Initial.Phi1},
		{"theta2", c.Initial.Theta2},
		{"phi2", c.Initial.Phi2},
		{"trail_length", float64(c.TrailLength)},
		{"fps", float64(c.FPS)},
	}
	for _, f := range fields {
		r := Ranges[f.name]
		if f.value < r.Min || f.value > r.Max || math.IsNaN(f.value) {
			return &dynamo.ParamError{Field: f.name, Value: f.value, Min: r.Min, Max: r.Max}
		}
	}
	if c.Steps < 0 {
		return &dynamo.ParamError{Field: "steps", Value: float64(c.Steps), Min: 0, Max: math.MaxInt32}
	}
	return nil
}

// Set assigns the value named by its yaml key, as used in Ranges.
func (c *Config) Set(name string, v float64) error {
	switch name {
	case "g":
		c.Physics.Gravity = v
	case "m1":
		c.Physics.M1 = v
	case "m2":
		c.Physics.M2 = v
	case "l1":
		c.Physics.L1 = v
	case "l2":
		c.Physics.L2 = v
	case "theta1":
		c.Initial.Theta1 = v
	case "phi1":
		c.Initial.Phi1 = v
	case "theta2":
		c.Initial.Theta2 = v
	case "phi2":
		c.Initial.Phi2 = v
	case "trail_length":
		c.TrailLength = int(v)
	case "fps":
		c.FPS = int(v)
	default:
		return fmt.Errorf("unknown parameter %q", name)
	}
	return nil
}

// Clone returns an independent copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
