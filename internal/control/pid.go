package control

import (
	"math"

	"github.com/san-kum/lander/internal/dynamo"
)

// PID holds the estimated descent rate at Target (m/s, negative is down).
// The estimated gravity ĝ = x[2] is fed forward so the loop only has to
// correct the residual:
//
//	u = ĝ + Kp·e + Ki·∫e + Kd·ė,  e = Target - v̂
type PID struct {
	Kp        float64
	Ki        float64
	Kd        float64
	Target    float64
	Dt        float64
	MaxThrust float64

	integral float64
	prevErr  float64
	first    bool
}

func NewPID(kp, ki, kd, target, dt float64) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		Dt:     dt,
		first:  true,
	}
}

func (p *PID) Compute(x dynamo.State, step int) dynamo.Control {
	if len(x) < 3 {
		return dynamo.Control{0}
	}

	err := p.Target - x[1]
	u := x[2] + p.Kp*err

	if p.first {
		p.prevErr = err
		p.first = false
		return p.clamp(u)
	}

	if p.Dt > 0 {
		p.integral += err * p.Dt
		u += p.Ki*p.integral + p.Kd*(err-p.prevErr)/p.Dt
	}
	p.prevErr = err
	return p.clamp(u)
}

func (p *PID) clamp(u float64) dynamo.Control {
	if p.MaxThrust > 0 {
		u = math.Max(-p.MaxThrust, math.Min(p.MaxThrust, u))
	}
	return dynamo.Control{u}
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

// Params returns the gains, keyed for display.
func (p *PID) Params() map[string]float64 {
	return map[string]float64{
		"Kp":     p.Kp,
		"Ki":     p.Ki,
		"Kd":     p.Kd,
		"Target": p.Target,
	}
}
