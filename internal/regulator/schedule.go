package regulator

import (
	"fmt"

	"github.com/san-kum/lander/internal/linalg"
	"gonum.org/v1/gonum/mat"
)

// GainSchedule is the result of a Solve: N gains K[0..N-1] (p×n) and N+1
// cost-to-go matrices P[0..N] (n×n). It is never modified after Solve
// returns, so it may be shared between goroutines without locking.
type GainSchedule struct {
	gains []*mat.Dense
	costs []*mat.SymDense
}

// Len returns the horizon N.
func (s *GainSchedule) Len() int { return len(s.gains) }

// Gain returns a copy of K[i].
func (s *GainSchedule) Gain(i int) (*mat.Dense, error) {
	if i < 0 || i >= len(s.gains) {
		return nil, &linalg.OpError{
			Op:     "regulator.Gain",
			Step:   i,
			Detail: fmt.Sprintf("want 0 <= i < %d", len(s.gains)),
			Err:    ErrIndexOutOfRange,
		}
	}
	return mat.DenseCopyOf(s.gains[i]), nil
}

// CostToGo returns a copy of P[i].
func (s *GainSchedule) CostToGo(i int) (*mat.SymDense, error) {
	if i < 0 || i >= len(s.costs) {
		return nil, &linalg.OpError{
			Op:     "regulator.CostToGo",
			Step:   i,
			Detail: fmt.Sprintf("want 0 <= i <= %d", len(s.gains)),
			Err:    ErrIndexOutOfRange,
		}
	}
	n, _ := s.costs[i].Dims()
	p := mat.NewSymDense(n, nil)
	p.CopySym(s.costs[i])
	return p, nil
}

// Feedback returns u = -K[i]·x without copying the gain.
func (s *GainSchedule) Feedback(i int, x mat.Vector) (*mat.VecDense, error) {
	if i < 0 || i >= len(s.gains) {
		return nil, &linalg.OpError{Op: "regulator.Feedback", Step: i, Err: ErrIndexOutOfRange}
	}
	p, n := s.gains[i].Dims()
	if err := linalg.VecLen("x", x, n); err != nil {
		return nil, linalg.WithOp("regulator.Feedback", err)
	}
	u := mat.NewVecDense(p, nil)
	u.MulVec(s.gains[i], x)
	u.ScaleVec(-1, u)
	return u, nil
}

// Cost returns the optimal cost x₀ᵀ·P[0]·x₀ of starting the horizon in x0.
func (s *GainSchedule) Cost(x0 mat.Vector) (float64, error) {
	if len(s.costs) == 0 {
		return 0, &linalg.OpError{Op: "regulator.Cost", Step: -1, Err: ErrNotSolved}
	}
	n, _ := s.costs[0].Dims()
	if err := linalg.VecLen("x0", x0, n); err != nil {
		return 0, linalg.WithOp("regulator.Cost", err)
	}
	return mat.Inner(x0, s.costs[0], x0), nil
}
