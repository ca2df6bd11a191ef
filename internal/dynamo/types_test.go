package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestStateClone(t *testing.T) {
	s := State{1, 2, 3}
	c := s.Clone()
	c[0] = 99
	if s[0] != 1 {
		t.Errorf("clone shares storage: s[0] = %f", s[0])
	}
}

func TestStateIsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  bool
	}{
		{"finite", State{1, -2}, true},
		{"nan", State{1, math.NaN()}, false},
		{"inf", State{math.Inf(-1)}, false},
		{"empty", State{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStateSubNorm(t *testing.T) {
	d := State{4, 6}.Sub(State{1, 2})
	if d.Norm() != 5 {
		t.Errorf("expected norm 5, got %f", d.Norm())
	}
}

func TestVecRoundTrip(t *testing.T) {
	s := State{1, 2, 3}
	v := s.Vec()
	v.SetVec(0, 10)
	if s[0] != 1 {
		t.Error("Vec must copy")
	}
	back := FromVec(v)
	if len(back) != 3 || back[0] != 10 || back[2] != 3 {
		t.Errorf("unexpected round trip %v", back)
	}
	if FromVec(nil) != nil {
		t.Error("FromVec(nil) should be nil")
	}
}

func TestStepErrorUnwrap(t *testing.T) {
	err := &StepError{Step: 3, Time: 0.1, Wrapped: ErrInvalidState}
	if !errors.Is(err, ErrInvalidState) {
		t.Error("StepError should unwrap to its cause")
	}
	if err.Error() != "step 3 (t=0.1000): dynamo: invalid state (NaN or Inf detected)" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

type twoByOne struct{}

func (twoByOne) Derive(x State, u Control, t float64) State { return State{x[1], u[0]} }
func (twoByOne) StateDim() int                             { return 2 }
func (twoByOne) ControlDim() int                           { return 1 }

func TestCheckDims(t *testing.T) {
	tests := []struct {
		name string
		x    State
		u    Control
		ok   bool
	}{
		{"match", State{0, 1}, Control{2}, true},
		{"short state", State{0}, Control{2}, false},
		{"long control", State{0, 1}, Control{2, 3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckDims(twoByOne{}, tt.x, tt.u)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("expected ErrDimensionMismatch, got %v", err)
			}
		})
	}
}
