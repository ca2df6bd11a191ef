package estimator

import (
	"errors"

	"github.com/san-kum/lander/internal/linalg"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotInitialized is returned by Update before Init succeeded.
	ErrNotInitialized = errors.New("estimator: not initialized")

	// ErrSingularCovariance is returned when the innovation covariance
	// cannot be inverted.
	ErrSingularCovariance = errors.New("estimator: singular innovation covariance")

	// ErrInvalidTimeStep is returned by Init for a non-positive dt.
	ErrInvalidTimeStep = errors.New("estimator: time step must be positive")
)

// Model is a discrete-time linear state-space model
//
//	x[k+1] = A·x[k] + B·u[k] + w,  w ~ N(0, Q)
//	y[k]   = C·x[k] + v,           v ~ N(0, R)
//
// B may be nil when the model has no control input.
type Model struct {
	A mat.Matrix
	B mat.Matrix
	C mat.Matrix
	Q mat.Matrix
	R mat.Matrix
}

type Option func(*Filter)

// WithConditionLimit sets the largest condition number accepted for the
// innovation covariance S. Zero or less disables the check.
func WithConditionLimit(limit float64) Option {
	return func(f *Filter) { f.condLimit = limit }
}

// Filter is a linear Kalman filter with fused predict/correct steps.
// It is not safe for concurrent use; run one Filter per trajectory.
type Filter struct {
	a, b, c *mat.Dense
	q, r    *mat.SymDense
	n, m, p int

	condLimit float64

	ready bool
	dt    float64
	steps int
	x     *mat.VecDense
	cov   *mat.SymDense
	inn   *mat.VecDense
	gain  *mat.Dense
}

// New validates the model and returns an uninitialized filter.
func New(model Model, opts ...Option) (*Filter, error) {
	if err := validate(model); err != nil {
		return nil, linalg.WithOp("estimator.New", err)
	}

	n, _ := model.A.Dims()
	m, _ := model.C.Dims()

	f := &Filter{
		a:         mat.DenseCopyOf(model.A),
		c:         mat.DenseCopyOf(model.C),
		q:         linalg.Symmetrize(model.Q),
		r:         linalg.Symmetrize(model.R),
		n:         n,
		m:         m,
		condLimit: linalg.DefaultConditionLimit,
	}
	if model.B != nil {
		f.b = mat.DenseCopyOf(model.B)
		_, f.p = model.B.Dims()
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func validate(model Model) error {
	if model.A == nil || model.C == nil || model.Q == nil || model.R == nil {
		return &linalg.OpError{Step: -1, Detail: "A, C, Q and R are required", Err: linalg.ErrInvalidDimension}
	}
	n, _ := model.A.Dims()
	if n < 1 {
		return &linalg.OpError{Matrix: "A", Step: -1, Detail: "empty state", Err: linalg.ErrInvalidDimension}
	}
	if err := linalg.Square("A", model.A, n); err != nil {
		return err
	}
	if model.B != nil {
		_, p := model.B.Dims()
		if err := linalg.Shape("B", model.B, n, p); err != nil {
			return err
		}
		if p < 1 {
			return &linalg.OpError{Matrix: "B", Step: -1, Detail: "empty control", Err: linalg.ErrInvalidDimension}
		}
	}
	m, _ := model.C.Dims()
	if m < 1 {
		return &linalg.OpError{Matrix: "C", Step: -1, Detail: "empty measurement", Err: linalg.ErrInvalidDimension}
	}
	if err := linalg.Shape("C", model.C, m, n); err != nil {
		return err
	}
	if err := linalg.Square("Q", model.Q, n); err != nil {
		return err
	}
	if err := linalg.PSD("Q", model.Q); err != nil {
		return err
	}
	if err := linalg.Square("R", model.R, m); err != nil {
		return err
	}
	return linalg.PSD("R", model.R)
}

// Init sets the time step, initial estimate and initial covariance and
// makes the filter ready. Calling Init again restarts the filter.
func (f *Filter) Init(dt float64, x0 mat.Vector, p0 mat.Matrix) error {
	const op = "estimator.Init"
	if !(dt > 0) {
		return &linalg.OpError{Op: op, Step: -1, Err: ErrInvalidTimeStep}
	}
	if err := linalg.VecLen("x0", x0, f.n); err != nil {
		return linalg.WithOp(op, err)
	}
	if err := linalg.Square("P0", p0, f.n); err != nil {
		return linalg.WithOp(op, err)
	}
	if err := linalg.PSD("P0", p0); err != nil {
		return linalg.WithOp(op, err)
	}

	f.dt = dt
	f.x = mat.VecDenseCopyOf(x0)
	f.cov = linalg.Symmetrize(p0)
	f.inn = mat.NewVecDense(f.m, nil)
	f.gain = mat.NewDense(f.n, f.m, nil)
	f.steps = 0
	f.ready = true
	return nil
}

// Update runs one predict-correct cycle with measurement y and the control
// u applied since the previous update. u may be nil, meaning B·u = 0.
// On error the estimate and covariance are left unchanged.
func (f *Filter) Update(y, u mat.Vector) (mat.Vector, error) {
	const op = "estimator.Update"
	if !f.ready {
		return nil, &linalg.OpError{Op: op, Step: -1, Err: ErrNotInitialized}
	}
	if err := linalg.VecLen("y", y, f.m); err != nil {
		return nil, linalg.WithOp(op, err)
	}
	if u != nil {
		if f.b == nil {
			return nil, &linalg.OpError{Op: op, Matrix: "u", Step: f.steps, Detail: "model has no control input", Err: linalg.ErrInvalidDimension}
		}
		if err := linalg.VecLen("u", u, f.p); err != nil {
			return nil, linalg.WithOp(op, err)
		}
	}

	// Predict.
	xPred := mat.NewVecDense(f.n, nil)
	xPred.MulVec(f.a, f.x)
	if u != nil {
		var bu mat.VecDense
		bu.MulVec(f.b, u)
		xPred.AddVec(xPred, &bu)
	}

	var pPred mat.Dense
	pPred.Product(f.a, f.cov, f.a.T())
	pPred.Add(&pPred, f.q)

	// Innovation and its covariance.
	inn := mat.NewVecDense(f.m, nil)
	inn.MulVec(f.c, xPred)
	inn.SubVec(y, inn)

	var s mat.Dense
	s.Product(f.c, &pPred, f.c.T())
	s.Add(&s, f.r)

	solver, err := linalg.Factor("S", linalg.Symmetrize(&s), f.condLimit)
	if err != nil {
		return nil, linalg.Retarget(err, op, f.steps, ErrSingularCovariance)
	}

	// K = P⁻·Cᵀ·S⁻¹, computed as Kᵀ = S⁻¹·(C·P⁻) since P⁻ and S are symmetric.
	var cp, kt mat.Dense
	cp.Mul(f.c, &pPred)
	if err := solver.SolveTo(&kt, &cp); err != nil {
		return nil, &linalg.OpError{Op: op, Matrix: "S", Step: f.steps, Detail: err.Error(), Err: ErrSingularCovariance}
	}
	gain := mat.DenseCopyOf(kt.T())

	// Correct.
	x := mat.NewVecDense(f.n, nil)
	x.MulVec(gain, inn)
	x.AddVec(xPred, x)

	var kc, p mat.Dense
	kc.Mul(gain, f.c)
	kc.Sub(linalg.Identity(f.n), &kc)
	p.Mul(&kc, &pPred)

	f.x = x
	f.cov = linalg.Symmetrize(&p)
	f.inn = inn
	f.gain = gain
	f.steps++
	return mat.VecDenseCopyOf(f.x), nil
}

// State returns a copy of the current estimate, or nil before Init.
func (f *Filter) State() mat.Vector {
	if !f.ready {
		return nil
	}
	return mat.VecDenseCopyOf(f.x)
}

// Covariance returns a copy of the current estimate covariance, or nil
// before Init.
func (f *Filter) Covariance() mat.Symmetric {
	if !f.ready {
		return nil
	}
	cov := mat.NewSymDense(f.n, nil)
	cov.CopySym(f.cov)
	return cov
}

// Innovation returns the measurement residual of the last update.
func (f *Filter) Innovation() mat.Vector {
	if !f.ready {
		return nil
	}
	return mat.VecDenseCopyOf(f.inn)
}

// Gain returns the Kalman gain of the last update.
func (f *Filter) Gain() mat.Matrix {
	if !f.ready {
		return nil
	}
	return mat.DenseCopyOf(f.gain)
}

func (f *Filter) Ready() bool { return f.ready }
func (f *Filter) Dt() float64 { return f.dt }
func (f *Filter) Steps() int  { return f.steps }

// Time is the elapsed time since Init, steps·dt.
func (f *Filter) Time() float64 { return float64(f.steps) * f.dt }

// Dims returns the state, measurement and control dimensions.
func (f *Filter) Dims() (n, m, p int) { return f.n, f.m, f.p }
