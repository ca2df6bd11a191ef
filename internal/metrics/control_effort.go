package metrics

import (
	"math"

	"github.com/san-kum/lander/internal/dynamo"
	"gonum.org/v1/gonum/stat"
)

// ControlEffort is the mean absolute thrust over the steps of the run.
// The terminal sample commands nothing and is not counted.
type ControlEffort struct {
	name string
	abs  []float64
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(s dynamo.Sample) {
	if s.Terminal {
		return
	}
	sum := 0.0
	for _, val := range s.Control {
		sum += math.Abs(val)
	}
	c.abs = append(c.abs, sum)
}

func (c *ControlEffort) Value() float64 {
	if len(c.abs) == 0 {
		return 0
	}
	return stat.Mean(c.abs, nil)
}

func (c *ControlEffort) Reset() {
	c.abs = c.abs[:0]
}
