package linalg

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultConditionLimit is the largest condition number accepted when a
// symmetric matrix has to be inverted.
const DefaultConditionLimit = 1e12

const (
	symmetryTol = 1e-9
	psdTol      = 1e-10
)

// Square reports whether m is an n×n matrix.
func Square(name string, m mat.Matrix, n int) error {
	return Shape(name, m, n, n)
}

// Shape reports whether m is a rows×cols matrix.
func Shape(name string, m mat.Matrix, rows, cols int) error {
	if m == nil {
		return dimErr(name, "missing, want %dx%d", rows, cols)
	}
	r, c := m.Dims()
	if r != rows || c != cols {
		return dimErr(name, "got %dx%d, want %dx%d", r, c, rows, cols)
	}
	return nil
}

// VecLen reports whether v has n elements.
func VecLen(name string, v mat.Vector, n int) error {
	if v == nil {
		return dimErr(name, "missing, want length %d", n)
	}
	if v.Len() != n {
		return dimErr(name, "got length %d, want %d", v.Len(), n)
	}
	return nil
}

// Symmetric reports whether m is square, finite and symmetric within a
// relative tolerance.
func Symmetric(name string, m mat.Matrix) error {
	r, c := m.Dims()
	if r != c {
		return dimErr(name, "got %dx%d, want square", r, c)
	}
	for i := 0; i < r; i++ {
		for j := i; j < c; j++ {
			a, b := m.At(i, j), m.At(j, i)
			if !finite(a) || !finite(b) {
				return dimErr(name, "non-finite entry at (%d,%d)", i, j)
			}
			scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
			if math.Abs(a-b) > symmetryTol*scale {
				return dimErr(name, "not symmetric at (%d,%d): %g != %g", i, j, a, b)
			}
		}
	}
	return nil
}

// PSD reports whether m is symmetric positive semi-definite.
func PSD(name string, m mat.Matrix) error {
	if err := Symmetric(name, m); err != nil {
		return err
	}
	var es mat.EigenSym
	if ok := es.Factorize(Symmetrize(m), false); !ok {
		return dimErr(name, "eigen decomposition did not converge")
	}
	vals := es.Values(nil)
	scale := 1.0
	for _, v := range vals {
		scale = math.Max(scale, math.Abs(v))
	}
	for _, v := range vals {
		if v < -psdTol*scale {
			return dimErr(name, "not positive semi-definite (eigenvalue %g)", v)
		}
	}
	return nil
}

// Symmetrize returns (m + mᵀ)/2 as a symmetric matrix. m must be square.
func Symmetrize(m mat.Matrix) *mat.SymDense {
	n, _ := m.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return s
}

// Identity returns the n×n identity matrix.
func Identity(n int) *mat.Dense {
	id := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		id.Set(i, i, 1)
	}
	return id
}

// Solver solves s·X = B for X.
type Solver interface {
	SolveTo(dst *mat.Dense, b mat.Matrix) error
}

type scalar float64

func (s scalar) SolveTo(dst *mat.Dense, b mat.Matrix) error {
	dst.Scale(1/float64(s), b)
	return nil
}

// Factor prepares s for inversion. A 1×1 matrix is inverted directly; larger
// ones go through a Cholesky decomposition whose condition number must not
// exceed condLimit (a non-positive limit disables the check).
func Factor(name string, s mat.Symmetric, condLimit float64) (Solver, error) {
	n, _ := s.Dims()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if v := s.At(i, j); !finite(v) {
				return nil, singularErr(name, "non-finite entry %g at (%d,%d)", v, i, j)
			}
		}
	}

	if n == 1 {
		v := s.At(0, 0)
		if v <= 0 {
			return nil, singularErr(name, "scalar %g is not positive", v)
		}
		return scalar(v), nil
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(s); !ok {
		return nil, singularErr(name, "not positive definite")
	}
	if condLimit > 0 {
		if c := chol.Cond(); math.IsNaN(c) || c > condLimit {
			return nil, singularErr(name, "condition number %.3g exceeds %.3g", c, condLimit)
		}
	}
	return &chol, nil
}

func singularErr(name, format string, args ...any) error {
	err := dimErr(name, format, args...).(*OpError)
	err.Err = ErrSingular
	return err
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
