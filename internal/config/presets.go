package config

import "sort"

// Presets are named starting configurations. Fields left at zero are
// filled from DefaultConfig by GetPreset.
var Presets = map[string]*Config{
	"horizontal": {
		Initial: InitialConfig{Theta1: 90, Phi1: 0, Theta2: 90, Phi2: 180},
	},
	"rest": {
		Initial: InitialConfig{Theta1: 0, Phi1: 0, Theta2: 0, Phi2: 0},
	},
	"gentle": {
		Initial: InitialConfig{Theta1: 20, Phi1: 0, Theta2: 20, Phi2: 0},
	},
	"conical": {
		Initial: InitialConfig{Theta1: 45, Phi1: 0, Theta2: 45, Phi2: 90},
	},
	"inverted": {
		Initial:     InitialConfig{Theta1: 179, Phi1: 0, Theta2: 179, Phi2: 10},
		TrailLength: 2000,
	},
	"heavy": {
		Physics: PhysicsConfig{M1: 50, M2: 1, L1: 150, L2: 40, Gravity: 25},
		Initial: InitialConfig{Theta1: 120, Phi1: 30, Theta2: 60, Phi2: 250},
	},
}

// GetPreset returns a full configuration for name, or nil if unknown.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	if p.Physics != (PhysicsConfig{}) {
		cfg.Physics = p.Physics
	}
	cfg.Initial = p.Initial
	if p.TrailLength != 0 {
		cfg.TrailLength = p.TrailLength
	}
	if p.Steps != 0 {
		cfg.Steps = p.Steps
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
