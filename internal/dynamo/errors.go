package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for plant simulation.
var (
	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// CheckDims reports whether x and u fit sys.
func CheckDims(sys System, x State, u Control) error {
	if len(x) != sys.StateDim() {
		return fmt.Errorf("%w: state has %d entries, system wants %d", ErrDimensionMismatch, len(x), sys.StateDim())
	}
	if len(u) != sys.ControlDim() {
		return fmt.Errorf("%w: control has %d entries, system wants %d", ErrDimensionMismatch, len(u), sys.ControlDim())
	}
	return nil
}

// StepError wraps an error with the step at which it happened.
type StepError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
