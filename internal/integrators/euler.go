package integrators

import (
	"fmt"

	"github.com/san-kum/lander/internal/dynamo"
)

// Euler is the explicit first-order scheme x += dt·f(x, u, t).
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	return axpy(x, dt, sys.Derive(x, u, t))
}

// axpy returns x + a·y as a new state.
func axpy(x dynamo.State, a float64, y dynamo.State) dynamo.State {
	out := make(dynamo.State, len(x))
	for i := range x {
		out[i] = x[i] + a*y[i]
	}
	return out
}

// ByName returns the integrator registered under name.
func ByName(name string) (dynamo.Integrator, error) {
	switch name {
	case "", "euler":
		return NewEuler(), nil
	case "rk4":
		return NewRK4(), nil
	default:
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
}

// Names lists the integrators accepted by ByName.
func Names() []string {
	return []string{"euler", "rk4"}
}
