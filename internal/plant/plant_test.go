package plant

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/estimator"
	"github.com/san-kum/lander/internal/integrators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newPlant(t *testing.T, integ dynamo.Integrator, noise *Noise) *Plant {
	t.Helper()
	p, err := New(Config{Height: 100, Gravity: 9.81, Dt: 0.01}, integ, noise)
	require.NoError(t, err)
	return p
}

func TestFallingBodyDerive(t *testing.T) {
	b := NewFallingBody(9.81)
	d := b.Derive(dynamo.State{10, -2}, dynamo.Control{3, 0.5, 0.25}, 0)
	assert.InDelta(t, -1.5, d[0], 1e-12)
	assert.InDelta(t, -(9.81+0.25)+3, d[1], 1e-12)

	// missing inputs are zero
	d = b.Derive(dynamo.State{10, -2}, nil, 0)
	assert.InDelta(t, -2, d[0], 1e-12)
	assert.InDelta(t, -9.81, d[1], 1e-12)

	assert.NoError(t, dynamo.CheckDims(b, dynamo.State{10, -2}, dynamo.Control{3, 0, 0}))
	assert.ErrorIs(t, dynamo.CheckDims(b, dynamo.State{10, -2, 0}, dynamo.Control{3, 0, 0}), dynamo.ErrDimensionMismatch)
}

func TestPlantFreeFallRK4(t *testing.T) {
	p := newPlant(t, integrators.NewRK4(), nil)
	for i := 0; i < 200; i++ {
		require.NoError(t, p.Step(0))
	}
	tt := p.Time()
	assert.InDelta(t, 2.0, tt, 1e-9)
	assert.InDelta(t, 100-0.5*9.81*tt*tt, p.Height(), 1e-9)
	assert.InDelta(t, -9.81*tt, p.Truth()[1], 1e-9)
	assert.Equal(t, 200, p.Steps())
	assert.False(t, p.Landed())
}

func TestPlantLands(t *testing.T) {
	p := newPlant(t, integrators.NewEuler(), nil)
	for i := 0; i < 10000 && !p.Landed(); i++ {
		require.NoError(t, p.Step(0))
	}
	assert.True(t, p.Landed())
	// sqrt(2h/g) is about 4.5 s
	assert.InDelta(t, 4.5, p.Time(), 0.1)
}

func TestPlantThrustHovers(t *testing.T) {
	p := newPlant(t, integrators.NewEuler(), nil)
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Step(9.81))
	}
	assert.InDelta(t, 100, p.Height(), 1e-9)
	assert.InDelta(t, 0, p.Truth()[1], 1e-9)
}

func TestPlantMeasureWithoutNoise(t *testing.T) {
	p := newPlant(t, integrators.NewEuler(), nil)
	assert.Equal(t, p.Height(), p.Measure())
}

func TestPlantTruthIsCopy(t *testing.T) {
	p := newPlant(t, integrators.NewEuler(), nil)
	x := p.Truth()
	x[0] = -1
	assert.Equal(t, 100.0, p.Height())
}

func TestNewPlantInvalid(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		integ dynamo.Integrator
	}{
		{"zero dt", Config{Height: 1, Gravity: 1}, integrators.NewEuler()},
		{"negative dt", Config{Height: 1, Gravity: 1, Dt: -1}, integrators.NewEuler()},
		{"nan height", Config{Height: math.NaN(), Gravity: 1, Dt: 0.1}, integrators.NewEuler()},
		{"inf gravity", Config{Height: 1, Gravity: math.Inf(1), Dt: 0.1}, integrators.NewEuler()},
		{"no integrator", Config{Height: 1, Gravity: 1, Dt: 0.1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, tt.integ, nil)
			assert.Error(t, err)
		})
	}
}

func TestPlantStepInvalidState(t *testing.T) {
	p := newPlant(t, integrators.NewEuler(), nil)
	err := p.Step(math.Inf(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dynamo.ErrInvalidState))
	var se *dynamo.StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 0, se.Step)
	assert.Equal(t, 0, p.Steps())
	assert.Equal(t, 100.0, p.Height())
}

func TestNoiseReproducible(t *testing.T) {
	cfg := NoiseConfig{SigmaH: 0.01, SigmaG: 0.1, SigmaM: 1}
	a, b := NewNoise(cfg, 42), NewNoise(cfg, 42)
	for i := 0; i < 50; i++ {
		ah, ag := a.Process()
		bh, bg := b.Process()
		assert.Equal(t, ah, bh)
		assert.Equal(t, ag, bg)
		assert.Equal(t, a.Measurement(), b.Measurement())
	}

	c := NewNoise(cfg, 43)
	differs := false
	for i := 0; i < 10; i++ {
		if a.Measurement() != c.Measurement() {
			differs = true
		}
	}
	assert.True(t, differs)
}

func TestNoiseZeroSigma(t *testing.T) {
	n := NewNoise(NoiseConfig{}, 7)
	for i := 0; i < 10; i++ {
		wh, wg := n.Process()
		assert.Zero(t, wh)
		assert.Zero(t, wg)
		assert.Zero(t, n.Measurement())
	}
}

func TestNoiseStatistics(t *testing.T) {
	n := NewNoise(NoiseConfig{SigmaM: 2}, 1)
	const draws = 20000
	var sum, sumSq float64
	for i := 0; i < draws; i++ {
		v := n.Measurement()
		sum += v
		sumSq += v * v
	}
	mean := sum / draws
	std := math.Sqrt(sumSq/draws - mean*mean)
	assert.InDelta(t, 0, mean, 0.1)
	assert.InDelta(t, 2, std, 0.1)
}

// The linear model must agree exactly with the noiseless Euler plant when
// gravity is carried as a state.
func TestTransitionMatchesEulerPlant(t *testing.T) {
	const dt, g, thrust = 0.05, 3.7, 1.2
	p, err := New(Config{Height: 50, Velocity: 1, Gravity: g, Dt: dt}, integrators.NewEuler(), nil)
	require.NoError(t, err)

	a, b := Transition(dt), ControlInput(dt)
	x := mat.NewVecDense(3, []float64{50, 1, g})
	u := mat.NewVecDense(1, []float64{thrust})
	for i := 0; i < 40; i++ {
		require.NoError(t, p.Step(thrust))
		var ax, bu mat.VecDense
		ax.MulVec(a, x)
		bu.MulVec(b, u)
		x.AddVec(&ax, &bu)
	}
	assert.InDelta(t, p.Height(), x.AtVec(0), 1e-9)
	assert.InDelta(t, p.Truth()[1], x.AtVec(1), 1e-9)
	assert.InDelta(t, g, x.AtVec(2), 1e-12)
}

func TestEstimatorModelIsValid(t *testing.T) {
	noise := NoiseConfig{SigmaH: 0.01, SigmaG: 0.1, SigmaM: 1}
	q := ProcessVariance(noise)
	assert.InDeltaSlice(t, []float64{1e-4, 0, 1e-2}, q, 1e-15)

	model := EstimatorModel(1.0/30, q, noise.SigmaM*noise.SigmaM)
	f, err := estimator.New(model)
	require.NoError(t, err)
	n, m, p := f.Dims()
	assert.Equal(t, []int{3, 1, 1}, []int{n, m, p})
	assert.Equal(t, 1.0, model.R.At(0, 0))
}

func TestDiag(t *testing.T) {
	d := Diag([]float64{1, 2, 3})
	r, c := d.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 2.0, d.At(1, 1))
	assert.Equal(t, 0.0, d.At(0, 1))
}
