package control

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/regulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// scalarSchedule solves x' = x + u with unit costs, whose gains differ
// along the horizon.
func scalarSchedule(t *testing.T, horizon int) *regulator.GainSchedule {
	t.Helper()
	one := mat.NewDense(1, 1, []float64{1})
	reg, err := regulator.New(one, one, one, one, horizon)
	require.NoError(t, err)
	require.NoError(t, reg.Solve())
	s, err := reg.Schedule()
	require.NoError(t, err)
	return s
}

func gain(t *testing.T, s *regulator.GainSchedule, i int) float64 {
	t.Helper()
	k, err := s.Gain(i)
	require.NoError(t, err)
	return k.At(0, 0)
}

func TestLQRReceding(t *testing.T) {
	s := scalarSchedule(t, 3)
	c := NewLQR(s, Receding)
	k0 := gain(t, s, 0)
	for _, step := range []int{0, 1, 2, 10} {
		u := c.Compute(dynamo.State{2}, step)
		require.Len(t, u, 1)
		assert.InDelta(t, -2*k0, u[0], 1e-12)
	}
}

func TestLQRSchedule(t *testing.T) {
	s := scalarSchedule(t, 3)
	c := NewLQR(s, Schedule)
	for step, want := range []int{0, 1, 2, 2, 2} {
		u := c.Compute(dynamo.State{1}, step)
		assert.InDelta(t, -gain(t, s, want), u[0], 1e-12, "step %d", step)
	}
	// the schedule's gains actually differ, so indexing matters
	assert.NotEqual(t, gain(t, s, 0), gain(t, s, 2))
}

func TestLQRTargetAndClamp(t *testing.T) {
	s := scalarSchedule(t, 2)
	c := NewLQR(s, Receding)
	c.Target = dynamo.State{5}
	u := c.Compute(dynamo.State{5}, 0)
	assert.InDelta(t, 0, u[0], 1e-12)

	c.MaxThrust = 0.1
	u = c.Compute(dynamo.State{100}, 0)
	assert.Equal(t, -0.1, u[0])
	u = c.Compute(dynamo.State{-100}, 0)
	assert.Equal(t, 0.1, u[0])
}

func TestLQRWrongDimension(t *testing.T) {
	var buf bytes.Buffer
	c := NewLQR(scalarSchedule(t, 1), Receding)
	c.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	u := c.Compute(dynamo.State{1, 2}, 3)
	assert.Equal(t, dynamo.Control{0}, u)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "step=3")
	assert.Contains(t, buf.String(), "state_dim=2")
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", Receding, false},
		{"receding", Receding, false},
		{"schedule", Schedule, false},
		{"mpc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.in != "" {
				assert.Equal(t, tt.in, got.String())
			}
		})
	}
}

func TestNone(t *testing.T) {
	u := NewNone(1).Compute(dynamo.State{100, -3, 9.8}, 4)
	assert.Equal(t, dynamo.Control{0}, u)
}

func TestPIDFeedforward(t *testing.T) {
	p := NewPID(2, 0, 0, -1, 0.1)
	// on target: thrust equals estimated gravity
	u := p.Compute(dynamo.State{50, -1, 9.81}, 0)
	assert.InDelta(t, 9.81, u[0], 1e-12)

	// falling too fast: more thrust
	u = p.Compute(dynamo.State{50, -3, 9.81}, 1)
	assert.InDelta(t, 9.81+2*2, u[0], 1e-12)
}

func TestPIDIntegralAndReset(t *testing.T) {
	p := NewPID(0, 1, 0, 0, 0.5)
	x := dynamo.State{10, -2, 0}
	p.Compute(x, 0)
	u := p.Compute(x, 1)
	assert.InDelta(t, 1.0, u[0], 1e-12) // ∫e = 2·0.5
	u = p.Compute(x, 2)
	assert.InDelta(t, 2.0, u[0], 1e-12)

	p.Reset()
	u = p.Compute(x, 0)
	assert.InDelta(t, 0, u[0], 1e-12)
}

func TestPIDClampAndShortState(t *testing.T) {
	p := NewPID(100, 0, 0, 0, 0.1)
	p.MaxThrust = 15
	u := p.Compute(dynamo.State{10, -5, 9.81}, 0)
	assert.Equal(t, 15.0, u[0])

	assert.Equal(t, dynamo.Control{0}, p.Compute(dynamo.State{1, 2}, 1))
	assert.Equal(t, 100.0, p.Params()["Kp"])
}
