package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/lander/internal/logging"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt        = 1.0 / 30
	DefaultDuration  = 30.0
	DefaultHeight    = 100.0
	DefaultGravity   = 5.5
	DefaultSigmaH    = 0.01
	DefaultSigmaG    = 0.1
	DefaultSigmaM    = 1.0
	DefaultHorizon   = 10
	DefaultMaxThrust = 20.0
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Dt         float64          `yaml:"dt"`
	Duration   float64          `yaml:"duration"`
	Seed       uint64           `yaml:"seed"`
	Integrator string           `yaml:"integrator"`
	Plant      PlantConfig      `yaml:"plant"`
	Estimator  EstimatorConfig  `yaml:"estimator"`
	Regulator  RegulatorConfig  `yaml:"regulator"`
	Controller ControllerConfig `yaml:"controller"`
	Log        logging.Config   `yaml:"log"`
}

// PlantConfig is the true falling body and the noise injected into it.
type PlantConfig struct {
	Height   float64 `yaml:"height"`
	Velocity float64 `yaml:"velocity"`
	Gravity  float64 `yaml:"gravity"`
	SigmaH   float64 `yaml:"sigma_h"`
	SigmaG   float64 `yaml:"sigma_g"`
	SigmaM   float64 `yaml:"sigma_m"`
}

// EstimatorConfig seeds the Kalman filter. Empty ProcessVariance and a
// zero MeasurementVariance are derived from the plant noise.
type EstimatorConfig struct {
	InitialState        []float64 `yaml:"initial_state"`
	InitialCovariance   []float64 `yaml:"initial_covariance"`
	ProcessVariance     []float64 `yaml:"process_variance,omitempty"`
	MeasurementVariance float64   `yaml:"measurement_variance,omitempty"`
	ConditionLimit      float64   `yaml:"condition_limit,omitempty"`
}

// RegulatorConfig holds the diagonal LQR weights.
type RegulatorConfig struct {
	Horizon        int       `yaml:"horizon"`
	StateCost      []float64 `yaml:"state_cost"`
	ControlCost    float64   `yaml:"control_cost"`
	TerminalCost   []float64 `yaml:"terminal_cost,omitempty"`
	ConditionLimit float64   `yaml:"condition_limit,omitempty"`
}

type ControllerConfig struct {
	Type      string    `yaml:"type"`
	Policy    string    `yaml:"policy,omitempty"`
	MaxThrust float64   `yaml:"max_thrust"`
	Target    []float64 `yaml:"target,omitempty"`
	Kp        float64   `yaml:"kp,omitempty"`
	Ki        float64   `yaml:"ki,omitempty"`
	Kd        float64   `yaml:"kd,omitempty"`
	Rate      float64   `yaml:"rate,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Seed:       1,
		Integrator: "euler",
		Plant: PlantConfig{
			Height:  DefaultHeight,
			Gravity: DefaultGravity,
			SigmaH:  DefaultSigmaH,
			SigmaG:  DefaultSigmaG,
			SigmaM:  DefaultSigmaM,
		},
		Estimator: EstimatorConfig{
			InitialState:      []float64{110, 0, 0},
			InitialCovariance: []float64{1, 1, 1},
		},
		Regulator: RegulatorConfig{
			Horizon:     DefaultHorizon,
			StateCost:   []float64{1, 1, 1},
			ControlCost: 1,
		},
		Controller: ControllerConfig{
			Type:      "lqr",
			Policy:    "receding",
			MaxThrust: DefaultMaxThrust,
			Kp:        2,
			Ki:        0.1,
			Kd:        0,
			Rate:      -2,
		},
		Log: logging.DefaultConfig(),
	}
}

// Load reads a YAML file over DefaultConfig, so omitted keys keep their
// defaults.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads a YAML file over base, typically a preset. base is
// modified and returned.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy, so presets are never modified through a copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Estimator.InitialState = cloneFloats(c.Estimator.InitialState)
	out.Estimator.InitialCovariance = cloneFloats(c.Estimator.InitialCovariance)
	out.Estimator.ProcessVariance = cloneFloats(c.Estimator.ProcessVariance)
	out.Regulator.StateCost = cloneFloats(c.Regulator.StateCost)
	out.Regulator.TerminalCost = cloneFloats(c.Regulator.TerminalCost)
	out.Controller.Target = cloneFloats(c.Controller.Target)
	return &out
}

func cloneFloats(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append([]float64(nil), v...)
}

// ProcessVariance is diag(Q) for the filter.
func (c *Config) ProcessVariance() []float64 {
	if len(c.Estimator.ProcessVariance) > 0 {
		return cloneFloats(c.Estimator.ProcessVariance)
	}
	p := c.Plant
	return []float64{p.SigmaH * p.SigmaH, 0, p.SigmaG * p.SigmaG}
}

// MeasurementVariance is R for the filter.
func (c *Config) MeasurementVariance() float64 {
	if c.Estimator.MeasurementVariance > 0 {
		return c.Estimator.MeasurementVariance
	}
	return c.Plant.SigmaM * c.Plant.SigmaM
}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if !(c.Dt > 0) {
		bad("dt must be positive, got %g", c.Dt)
	}
	if !(c.Duration > 0) {
		bad("duration must be positive, got %g", c.Duration)
	}
	switch c.Integrator {
	case "", "euler", "rk4":
	default:
		bad("unknown integrator %q", c.Integrator)
	}
	if c.Plant.SigmaH < 0 || c.Plant.SigmaG < 0 || c.Plant.SigmaM < 0 {
		bad("noise standard deviations must not be negative")
	}
	if n := len(c.Estimator.InitialState); n != 3 {
		bad("estimator.initial_state has %d entries, want 3", n)
	}
	if n := len(c.Estimator.InitialCovariance); n != 3 {
		bad("estimator.initial_covariance has %d entries, want 3", n)
	}
	if n := len(c.Estimator.ProcessVariance); n != 0 && n != 3 {
		bad("estimator.process_variance has %d entries, want 3", n)
	}
	if c.Estimator.MeasurementVariance < 0 {
		bad("estimator.measurement_variance must not be negative")
	}
	if c.Regulator.Horizon < 1 {
		bad("regulator.horizon must be at least 1, got %d", c.Regulator.Horizon)
	}
	if n := len(c.Regulator.StateCost); n != 3 {
		bad("regulator.state_cost has %d entries, want 3", n)
	}
	if n := len(c.Regulator.TerminalCost); n != 0 && n != 3 {
		bad("regulator.terminal_cost has %d entries, want 3", n)
	}
	if c.Regulator.ControlCost < 0 {
		bad("regulator.control_cost must not be negative")
	}
	for _, d := range [][]float64{c.Estimator.InitialCovariance, c.Estimator.ProcessVariance, c.Regulator.StateCost, c.Regulator.TerminalCost} {
		for _, v := range d {
			if v < 0 {
				bad("diagonal weights and variances must not be negative")
				break
			}
		}
	}
	switch c.Controller.Type {
	case "", "lqr", "pid", "none":
	default:
		bad("unknown controller %q", c.Controller.Type)
	}
	switch c.Controller.Policy {
	case "", "receding", "schedule":
	default:
		bad("unknown policy %q", c.Controller.Policy)
	}
	if n := len(c.Controller.Target); n != 0 && n != 3 {
		bad("controller.target has %d entries, want 3", n)
	}
	if c.Controller.MaxThrust < 0 {
		bad("controller.max_thrust must not be negative")
	}
	return errors.Join(errs...)
}
