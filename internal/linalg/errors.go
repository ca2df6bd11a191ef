package linalg

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for matrix validation and factorization.
var (
	// ErrInvalidDimension indicates a matrix or vector whose shape does not
	// match the model it is used with.
	ErrInvalidDimension = errors.New("linalg: invalid dimension")

	// ErrSingular indicates a matrix that could not be inverted, either
	// because it is not positive definite or because its condition number
	// exceeds the configured limit.
	ErrSingular = errors.New("linalg: matrix is singular or ill-conditioned")
)

// OpError wraps an error with the operation and matrix that produced it.
// Step is the recursion or update index, or -1 when not applicable.
type OpError struct {
	Op     string
	Matrix string
	Step   int
	Detail string
	Err    error
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Op != "" {
		b.WriteString(" in " + e.Op)
	}
	if e.Matrix != "" {
		b.WriteString(" [" + e.Matrix + "]")
	}
	if e.Step >= 0 {
		fmt.Fprintf(&b, " at step %d", e.Step)
	}
	if e.Detail != "" {
		b.WriteString(": " + e.Detail)
	}
	return b.String()
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func dimErr(name, format string, args ...any) error {
	return &OpError{
		Matrix: name,
		Step:   -1,
		Detail: fmt.Sprintf(format, args...),
		Err:    ErrInvalidDimension,
	}
}

// WithOp returns err annotated with op when it is an *OpError without one.
// Other errors are wrapped in a fresh *OpError.
func WithOp(op string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OpError
	if errors.As(err, &oe) && oe.Op == "" {
		oe.Op = op
		return oe
	}
	return &OpError{Op: op, Step: -1, Err: err}
}

// Retarget converts a factorization failure into the caller's own error
// kind, keeping the detail. Errors that are not *OpError pass through.
func Retarget(err error, op string, step int, target error) error {
	var oe *OpError
	if !errors.As(err, &oe) {
		return err
	}
	return &OpError{
		Op:     op,
		Matrix: oe.Matrix,
		Step:   step,
		Detail: oe.Detail,
		Err:    target,
	}
}
