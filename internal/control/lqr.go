package control

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/regulator"
)

// Policy selects which gain of the schedule is applied at a step.
type Policy int

const (
	// Receding applies K[0] at every step, as if the horizon were re-solved
	// from the current step each time.
	Receding Policy = iota
	// Schedule applies K[step] and holds K[N-1] once the horizon is spent.
	Schedule
)

func (p Policy) String() string {
	switch p {
	case Receding:
		return "receding"
	case Schedule:
		return "schedule"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy accepts "receding" (or "") and "schedule".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "receding":
		return Receding, nil
	case "schedule":
		return Schedule, nil
	default:
		return 0, fmt.Errorf("unknown policy: %s", s)
	}
}

// LQR computes u = -K·(x - Target) from a solved gain schedule. A positive
// MaxThrust clamps every component of u to ±MaxThrust.
type LQR struct {
	Target    dynamo.State
	MaxThrust float64

	schedule *regulator.GainSchedule
	policy   Policy
	log      *slog.Logger
}

func NewLQR(schedule *regulator.GainSchedule, policy Policy) *LQR {
	return &LQR{schedule: schedule, policy: policy, log: slog.New(slog.DiscardHandler)}
}

// SetLogger routes the controller's warnings to log.
func (l *LQR) SetLogger(log *slog.Logger) {
	if log != nil {
		l.log = log
	}
}

func (l *LQR) Policy() Policy { return l.policy }

func (l *LQR) index(step int) int {
	if l.policy == Receding || step < 0 {
		return 0
	}
	if n := l.schedule.Len(); step >= n {
		return n - 1
	}
	return step
}

func (l *LQR) Compute(x dynamo.State, step int) dynamo.Control {
	u, err := l.schedule.Feedback(l.index(step), x.Sub(l.Target).Vec())
	if err != nil {
		// estimate of the wrong size; command nothing
		l.log.Warn("lqr: no feedback, commanding zero thrust", "step", step, "state_dim", len(x), "err", err)
		return dynamo.Control{0}
	}
	out := dynamo.FromVec(u)
	if l.MaxThrust > 0 {
		for i, v := range out {
			out[i] = math.Max(-l.MaxThrust, math.Min(l.MaxThrust, v))
		}
	}
	return dynamo.Control(out)
}
