package regulator

import (
	"errors"
	"fmt"

	"github.com/san-kum/lander/internal/linalg"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotSolved is returned by accessors called before a successful Solve.
	ErrNotSolved = errors.New("regulator: not solved")

	// ErrSingularGainDenominator is returned when R + Bᵀ·P·B cannot be
	// inverted at some step of the recursion.
	ErrSingularGainDenominator = errors.New("regulator: singular gain denominator")

	// ErrIndexOutOfRange is returned for a step index outside the horizon.
	ErrIndexOutOfRange = errors.New("regulator: index out of range")
)

type Option func(*Regulator)

// WithTerminalCost sets the terminal state cost Q_f. The default is Q.
func WithTerminalCost(qf mat.Matrix) Option {
	return func(r *Regulator) { r.qfIn = qf }
}

// WithConditionLimit sets the largest condition number accepted for the
// gain denominator. Zero or less disables the check.
func WithConditionLimit(limit float64) Option {
	return func(r *Regulator) { r.condLimit = limit }
}

// Regulator computes the optimal finite-horizon state-feedback gains for
//
//	J = Σ_{i<N} (xᵢᵀQxᵢ + uᵢᵀRuᵢ) + x_Nᵀ·Q_f·x_N,  x_{i+1} = A·xᵢ + B·uᵢ
//
// with the control law uᵢ = -K[i]·xᵢ.
type Regulator struct {
	a, b      *mat.Dense
	q, r, qf  *mat.SymDense
	n, p      int
	horizon   int
	condLimit float64

	qfIn     mat.Matrix
	schedule *GainSchedule
}

// New validates the problem and returns an unsolved regulator.
func New(a, b, q, r mat.Matrix, horizon int, opts ...Option) (*Regulator, error) {
	reg := &Regulator{
		horizon:   horizon,
		condLimit: linalg.DefaultConditionLimit,
	}
	for _, opt := range opts {
		opt(reg)
	}
	if reg.qfIn == nil {
		reg.qfIn = q
	}

	if err := validate(a, b, q, r, reg.qfIn, horizon); err != nil {
		return nil, linalg.WithOp("regulator.New", err)
	}

	reg.a = mat.DenseCopyOf(a)
	reg.b = mat.DenseCopyOf(b)
	reg.q = linalg.Symmetrize(q)
	reg.r = linalg.Symmetrize(r)
	reg.qf = linalg.Symmetrize(reg.qfIn)
	reg.n, reg.p = b.Dims()
	reg.qfIn = nil
	return reg, nil
}

func validate(a, b, q, r, qf mat.Matrix, horizon int) error {
	if a == nil || b == nil || q == nil || r == nil {
		return &linalg.OpError{Step: -1, Detail: "A, B, Q and R are required", Err: linalg.ErrInvalidDimension}
	}
	if horizon < 1 {
		return &linalg.OpError{Step: -1, Detail: fmt.Sprintf("horizon %d, want >= 1", horizon), Err: linalg.ErrInvalidDimension}
	}
	n, _ := a.Dims()
	if n < 1 {
		return &linalg.OpError{Matrix: "A", Step: -1, Detail: "empty state", Err: linalg.ErrInvalidDimension}
	}
	if err := linalg.Square("A", a, n); err != nil {
		return err
	}
	_, p := b.Dims()
	if p < 1 {
		return &linalg.OpError{Matrix: "B", Step: -1, Detail: "empty control", Err: linalg.ErrInvalidDimension}
	}
	if err := linalg.Shape("B", b, n, p); err != nil {
		return err
	}
	for _, c := range []struct {
		name string
		m    mat.Matrix
		dim  int
	}{
		{"Q", q, n},
		{"Qf", qf, n},
		{"R", r, p},
	} {
		if err := linalg.Square(c.name, c.m, c.dim); err != nil {
			return err
		}
		if err := linalg.PSD(c.name, c.m); err != nil {
			return err
		}
	}
	return nil
}

// Solve runs the backward Riccati recursion from P[N] = Q_f down to P[0].
// Each call recomputes the schedule from scratch. On failure the regulator
// is left unsolved.
func (reg *Regulator) Solve() error {
	const op = "regulator.Solve"
	reg.schedule = nil

	n, p, N := reg.n, reg.p, reg.horizon
	gains := make([]*mat.Dense, N)
	costs := make([]*mat.SymDense, N+1)

	costs[N] = mat.NewSymDense(n, nil)
	costs[N].CopySym(reg.qf)

	for i := N - 1; i >= 0; i-- {
		next := costs[i+1]

		// BᵀP (p×n) is reused for the denominator and the numerator.
		var btp mat.Dense
		btp.Mul(reg.b.T(), next)

		var den mat.Dense
		den.Mul(&btp, reg.b)
		den.Add(&den, reg.r)

		solver, err := linalg.Factor("R+BᵀPB", linalg.Symmetrize(&den), reg.condLimit)
		if err != nil {
			return linalg.Retarget(err, op, i, ErrSingularGainDenominator)
		}

		// K[i] = (R + BᵀPB)⁻¹·BᵀPA
		var num mat.Dense
		num.Mul(&btp, reg.a)
		k := mat.NewDense(p, n, nil)
		if err := solver.SolveTo(k, &num); err != nil {
			return &linalg.OpError{Op: op, Step: i, Detail: err.Error(), Err: ErrSingularGainDenominator}
		}

		// P[i] = Q + AᵀPA - AᵀPB·K[i], with AᵀPB = (BᵀPA)ᵀ.
		var pi, correction mat.Dense
		pi.Product(reg.a.T(), next, reg.a)
		pi.Add(&pi, reg.q)
		correction.Mul(num.T(), k)
		pi.Sub(&pi, &correction)

		gains[i] = k
		costs[i] = linalg.Symmetrize(&pi)
	}

	reg.schedule = &GainSchedule{gains: gains, costs: costs}
	return nil
}

// Solved reports whether the last Solve succeeded.
func (reg *Regulator) Solved() bool { return reg.schedule != nil }

// Schedule returns the gain schedule of the last successful Solve.
func (reg *Regulator) Schedule() (*GainSchedule, error) {
	if reg.schedule == nil {
		return nil, &linalg.OpError{Op: "regulator.Schedule", Step: -1, Err: ErrNotSolved}
	}
	return reg.schedule, nil
}

// Gain returns K[i] for 0 <= i < N.
func (reg *Regulator) Gain(i int) (*mat.Dense, error) {
	if reg.schedule == nil {
		return nil, &linalg.OpError{Op: "regulator.Gain", Step: i, Err: ErrNotSolved}
	}
	return reg.schedule.Gain(i)
}

// CostToGo returns P[i] for 0 <= i <= N.
func (reg *Regulator) CostToGo(i int) (*mat.SymDense, error) {
	if reg.schedule == nil {
		return nil, &linalg.OpError{Op: "regulator.CostToGo", Step: i, Err: ErrNotSolved}
	}
	return reg.schedule.CostToGo(i)
}

func (reg *Regulator) Horizon() int { return reg.horizon }

// Dims returns the state and control dimensions.
func (reg *Regulator) Dims() (n, p int) { return reg.n, reg.p }
