package config

import "sort"

type preset struct {
	description string
	apply       func(*Config)
}

var presets = map[string]preset{
	"earth_drop": {
		"100 m drop under Earth gravity, LQR with receding horizon",
		func(c *Config) {
			c.Plant.Gravity = 9.81
			c.Estimator.InitialState = []float64{100, 0, 9}
			c.Integrator = "rk4"
		},
	},
	"reference": {
		"the classic open-loop fall at g=5.5 with the filter starting 10 m high",
		func(c *Config) {
			c.Controller.Type = "none"
		},
	},
	"moon": {
		"lunar gravity, low noise, long descent",
		func(c *Config) {
			c.Plant.Gravity = 1.62
			c.Plant.SigmaM = 0.5
			c.Duration = 60
			c.Estimator.InitialState = []float64{100, 0, 1}
		},
	},
	"noiseless": {
		"no injected noise; the filter must converge to the truth",
		func(c *Config) {
			c.Plant.SigmaH, c.Plant.SigmaG, c.Plant.SigmaM = 0, 0, 0
			c.Estimator.ProcessVariance = []float64{0, 0, 0}
			c.Estimator.MeasurementVariance = 1e-4
			c.Controller.Type = "none"
		},
	},
	"hover": {
		"PID descent-rate hold at -2 m/s",
		func(c *Config) {
			c.Controller.Type = "pid"
			c.Duration = 60
		},
	},
	"long_horizon": {
		"LQR gains from a 100-step schedule applied step by step",
		func(c *Config) {
			c.Regulator.Horizon = 100
			c.Controller.Policy = "schedule"
		},
	},
}

// GetPreset returns a fresh config for the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	p.apply(cfg)
	return cfg
}

// Describe returns the one-line description of a preset.
func Describe(name string) string {
	return presets[name].description
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
