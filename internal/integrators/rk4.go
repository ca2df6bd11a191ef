package integrators

import "github.com/san-kum/lander/internal/dynamo"

// RK4 is the classical fourth-order Runge-Kutta scheme. The control is held
// constant over the step.
type RK4 struct{}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	half := 0.5 * dt
	k1 := sys.Derive(x, u, t)
	k2 := sys.Derive(axpy(x, half, k1), u, t+half)
	k3 := sys.Derive(axpy(x, half, k2), u, t+half)
	k4 := sys.Derive(axpy(x, dt, k3), u, t+dt)

	out := make(dynamo.State, len(x))
	for i := range x {
		out[i] = x[i] + dt/6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return out
}
