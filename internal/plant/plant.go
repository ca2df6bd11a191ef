package plant

import (
	"fmt"

	"github.com/san-kum/lander/internal/dynamo"
)

// Config describes the true initial condition of the falling body.
type Config struct {
	Height   float64
	Velocity float64
	Gravity  float64
	Dt       float64
}

// Plant owns the true state of one falling body. It is driven by the caller
// one time step at a time and is not safe for concurrent use.
type Plant struct {
	body  *FallingBody
	integ dynamo.Integrator
	noise *Noise

	x     dynamo.State
	t     float64
	dt    float64
	steps int
}

// New returns a plant at rest at the configured initial condition.
// A nil noise source makes the plant deterministic.
func New(cfg Config, integ dynamo.Integrator, noise *Noise) (*Plant, error) {
	if !(cfg.Dt > 0) {
		return nil, fmt.Errorf("plant: dt must be positive, got %g", cfg.Dt)
	}
	x := dynamo.State{cfg.Height, cfg.Velocity}
	if !x.IsValid() || !(dynamo.State{cfg.Gravity}).IsValid() {
		return nil, fmt.Errorf("plant: %w", dynamo.ErrInvalidState)
	}
	if integ == nil {
		return nil, fmt.Errorf("plant: integrator is required")
	}
	return &Plant{
		body:  NewFallingBody(cfg.Gravity),
		integ: integ,
		noise: noise,
		x:     x,
		dt:    cfg.Dt,
	}, nil
}

// Step applies thrust for one time step, with fresh process noise.
func (p *Plant) Step(thrust float64) error {
	var wh, wg float64
	if p.noise != nil {
		wh, wg = p.noise.Process()
	}
	u := dynamo.Control{thrust, wh, wg}
	if err := dynamo.CheckDims(p.body, p.x, u); err != nil {
		return &dynamo.StepError{Step: p.steps, Time: p.t, State: p.x.Clone(), Wrapped: err}
	}
	next := p.integ.Step(p.body, p.x, u, p.t, p.dt)
	if !next.IsValid() {
		return &dynamo.StepError{Step: p.steps, Time: p.t, State: p.x.Clone(), Wrapped: dynamo.ErrInvalidState}
	}
	p.x = next
	p.t += p.dt
	p.steps++
	return nil
}

// Measure returns the height corrupted by measurement noise.
func (p *Plant) Measure() float64 {
	y := p.x[0]
	if p.noise != nil {
		y += p.noise.Measurement()
	}
	return y
}

// Height returns the true height without measurement noise.
func (p *Plant) Height() float64 { return p.x[0] }

// Truth returns a copy of the true [h, v] state.
func (p *Plant) Truth() dynamo.State { return p.x.Clone() }

func (p *Plant) Gravity() float64 { return p.body.Gravity }
func (p *Plant) Time() float64    { return p.t }
func (p *Plant) Steps() int       { return p.steps }

// Landed reports whether the body has reached the ground.
func (p *Plant) Landed() bool { return p.x[0] <= 0 }
