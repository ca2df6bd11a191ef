package plant

import (
	"github.com/san-kum/lander/internal/estimator"
	"gonum.org/v1/gonum/mat"
)

// The lander models augment [h, v] with the unknown constant gravity g:
//
//	h' = h + dt·v
//	v' = v - dt·g + dt·u
//	g' = g

// Transition returns A for the augmented state [h, v, g].
func Transition(dt float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, dt, 0,
		0, 1, -dt,
		0, 0, 1,
	})
}

// ControlInput returns B for a vertical thrust input.
func ControlInput(dt float64) *mat.Dense {
	return mat.NewDense(3, 1, []float64{0, dt, 0})
}

// Observation returns C for a height-only measurement.
func Observation() *mat.Dense {
	return mat.NewDense(1, 3, []float64{1, 0, 0})
}

// EstimatorModel builds the Kalman filter model from the process noise
// variances (one per state) and the measurement variance.
func EstimatorModel(dt float64, process []float64, measurement float64) estimator.Model {
	return estimator.Model{
		A: Transition(dt),
		B: ControlInput(dt),
		C: Observation(),
		Q: diag(process),
		R: mat.NewDense(1, 1, []float64{measurement}),
	}
}

// ProcessVariance is diag(Q) implied by the injected noise: the height
// disturbance enters with sigma_h, gravity with sigma_g, velocity with none.
func ProcessVariance(n NoiseConfig) []float64 {
	return []float64{n.SigmaH * n.SigmaH, 0, n.SigmaG * n.SigmaG}
}

func diag(v []float64) *mat.Dense {
	d := mat.NewDense(len(v), len(v), nil)
	for i, x := range v {
		d.Set(i, i, x)
	}
	return d
}

// Diag returns a square matrix with v on its diagonal.
func Diag(v []float64) *mat.Dense { return diag(v) }
