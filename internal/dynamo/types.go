package dynamo

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Vec copies s into a gonum vector.
func (s State) Vec() *mat.VecDense {
	return mat.NewVecDense(len(s), s.Clone())
}

// FromVec copies a gonum vector into a State.
func FromVec(v mat.Vector) State {
	if v == nil {
		return nil
	}
	s := make(State, v.Len())
	for i := range s {
		s[i] = v.AtVec(i)
	}
	return s
}

type Control []float64

// System is a continuous-time plant: dX/dt = f(X, u, t).
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(sys System, x State, u Control, t float64, dt float64) State
}

// Controller maps the current state estimate at a step index to a control.
type Controller interface {
	Compute(x State, step int) Control
}

// Sample is everything known about one closed-loop step. The Terminal
// sample closes a finished mission: it holds the state the mission stopped
// in, filtered from the last measurement, and carries no control.
type Sample struct {
	Step        int
	Time        float64
	Measurement []float64
	Truth       State
	Estimate    State
	Control     Control
	Innovation  []float64
	CovTrace    float64
	Terminal    bool
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}
