package mission

import (
	"fmt"

	"github.com/san-kum/lander/internal/config"
	"github.com/san-kum/lander/internal/control"
	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/estimator"
	"github.com/san-kum/lander/internal/integrators"
	"github.com/san-kum/lander/internal/metrics"
	"github.com/san-kum/lander/internal/plant"
	"github.com/san-kum/lander/internal/regulator"
	"gonum.org/v1/gonum/mat"
)

// Build assembles a mission from cfg. The standard metrics are always
// attached; opts may add more along with a logger and observers.
func Build(cfg *config.Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	integ, err := integrators.ByName(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	noise := plant.NewNoise(plant.NoiseConfig{
		SigmaH: cfg.Plant.SigmaH,
		SigmaG: cfg.Plant.SigmaG,
		SigmaM: cfg.Plant.SigmaM,
	}, cfg.Seed)
	p, err := plant.New(plant.Config{
		Height:   cfg.Plant.Height,
		Velocity: cfg.Plant.Velocity,
		Gravity:  cfg.Plant.Gravity,
		Dt:       cfg.Dt,
	}, integ, noise)
	if err != nil {
		return nil, err
	}

	f, err := NewFilter(cfg)
	if err != nil {
		return nil, err
	}

	ctrl, schedule, err := NewController(cfg)
	if err != nil {
		return nil, err
	}

	opts = append([]Option{WithMetrics(metrics.Standard(cfg.Plant.Gravity)...)}, opts...)
	return New(p, f, ctrl, schedule, cfg.Duration, opts...)
}

// NewFilter returns the lander's Kalman filter, initialized from cfg.
func NewFilter(cfg *config.Config) (*estimator.Filter, error) {
	model := plant.EstimatorModel(cfg.Dt, cfg.ProcessVariance(), cfg.MeasurementVariance())
	var opts []estimator.Option
	if cfg.Estimator.ConditionLimit != 0 {
		opts = append(opts, estimator.WithConditionLimit(cfg.Estimator.ConditionLimit))
	}
	f, err := estimator.New(model, opts...)
	if err != nil {
		return nil, err
	}
	x0 := mat.NewVecDense(3, append([]float64(nil), cfg.Estimator.InitialState...))
	if err := f.Init(cfg.Dt, x0, plant.Diag(cfg.Estimator.InitialCovariance)); err != nil {
		return nil, err
	}
	return f, nil
}

// NewRegulator returns the unsolved LQR problem described by cfg.
func NewRegulator(cfg *config.Config) (*regulator.Regulator, error) {
	rc := cfg.Regulator
	var opts []regulator.Option
	if len(rc.TerminalCost) > 0 {
		opts = append(opts, regulator.WithTerminalCost(plant.Diag(rc.TerminalCost)))
	}
	if rc.ConditionLimit != 0 {
		opts = append(opts, regulator.WithConditionLimit(rc.ConditionLimit))
	}
	return regulator.New(
		plant.Transition(cfg.Dt),
		plant.ControlInput(cfg.Dt),
		plant.Diag(rc.StateCost),
		mat.NewDense(1, 1, []float64{rc.ControlCost}),
		rc.Horizon,
		opts...,
	)
}

// NewController builds the configured controller. The schedule is non-nil
// only for LQR.
func NewController(cfg *config.Config) (dynamo.Controller, *regulator.GainSchedule, error) {
	cc := cfg.Controller
	switch cc.Type {
	case "none":
		return control.NewNone(1), nil, nil
	case "pid":
		pid := control.NewPID(cc.Kp, cc.Ki, cc.Kd, cc.Rate, cfg.Dt)
		pid.MaxThrust = cc.MaxThrust
		return pid, nil, nil
	case "", "lqr":
		policy, err := control.ParsePolicy(cc.Policy)
		if err != nil {
			return nil, nil, err
		}
		reg, err := NewRegulator(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := reg.Solve(); err != nil {
			return nil, nil, err
		}
		schedule, err := reg.Schedule()
		if err != nil {
			return nil, nil, err
		}
		lqr := control.NewLQR(schedule, policy)
		lqr.MaxThrust = cc.MaxThrust
		if len(cc.Target) > 0 {
			lqr.Target = dynamo.State(append([]float64(nil), cc.Target...))
		}
		return lqr, schedule, nil
	default:
		return nil, nil, fmt.Errorf("unknown controller: %s", cc.Type)
	}
}
