package metrics

import (
	"math"

	"github.com/san-kum/lander/internal/dynamo"
	"gonum.org/v1/gonum/stat"
)

// HeightRMSE is the root-mean-square error of the height estimate
// against the true height.
type HeightRMSE struct {
	sq []float64
}

func NewHeightRMSE() *HeightRMSE { return &HeightRMSE{} }

func (m *HeightRMSE) Name() string { return "height_rmse" }

func (m *HeightRMSE) Observe(s dynamo.Sample) {
	if len(s.Estimate) < 1 || len(s.Truth) < 1 {
		return
	}
	e := s.Estimate[0] - s.Truth[0]
	m.sq = append(m.sq, e*e)
}

func (m *HeightRMSE) Value() float64 {
	if len(m.sq) == 0 {
		return 0
	}
	return math.Sqrt(stat.Mean(m.sq, nil))
}

func (m *HeightRMSE) Reset() { m.sq = m.sq[:0] }

// GravityError is |ĝ - g| at the last observed step.
type GravityError struct {
	gravity float64
	last    float64
	seen    bool
}

func NewGravityError(gravity float64) *GravityError {
	return &GravityError{gravity: gravity}
}

func (m *GravityError) Name() string { return "gravity_error" }

func (m *GravityError) Observe(s dynamo.Sample) {
	if len(s.Estimate) < 3 {
		return
	}
	m.last = s.Estimate[2]
	m.seen = true
}

func (m *GravityError) Value() float64 {
	if !m.seen {
		return math.NaN()
	}
	return math.Abs(m.last - m.gravity)
}

func (m *GravityError) Reset() {
	m.last = 0
	m.seen = false
}

// TouchdownSpeed is the true |v| of the last observed sample. For a
// finished mission that is the terminal sample, so a landing reports the
// speed at ground contact.
type TouchdownSpeed struct {
	speed float64
}

func NewTouchdownSpeed() *TouchdownSpeed { return &TouchdownSpeed{} }

func (m *TouchdownSpeed) Name() string { return "touchdown_speed" }

func (m *TouchdownSpeed) Observe(s dynamo.Sample) {
	if len(s.Truth) >= 2 {
		m.speed = math.Abs(s.Truth[1])
	}
}

func (m *TouchdownSpeed) Value() float64 { return m.speed }
func (m *TouchdownSpeed) Reset()         { m.speed = 0 }

// InnovationSpread is the standard deviation of the measurement
// residuals. For a consistent filter it approaches sqrt(S).
type InnovationSpread struct {
	inn []float64
}

func NewInnovationSpread() *InnovationSpread { return &InnovationSpread{} }

func (m *InnovationSpread) Name() string { return "innovation_std" }

func (m *InnovationSpread) Observe(s dynamo.Sample) {
	if len(s.Innovation) > 0 {
		m.inn = append(m.inn, s.Innovation[0])
	}
}

func (m *InnovationSpread) Value() float64 {
	if len(m.inn) < 2 {
		return 0
	}
	return stat.StdDev(m.inn, nil)
}

func (m *InnovationSpread) Reset() { m.inn = m.inn[:0] }

// Standard returns the metrics recorded for every mission.
func Standard(gravity float64) []dynamo.Metric {
	return []dynamo.Metric{
		NewHeightRMSE(),
		NewGravityError(gravity),
		NewControlEffort(),
		NewTouchdownSpeed(),
		NewInnovationSpread(),
	}
}
