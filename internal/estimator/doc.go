// Package estimator implements a discrete-time linear Kalman filter.
//
// A [Filter] is built from a [Model] (A, B, C, Q, R), made ready with
// [Filter.Init], and then driven one measurement at a time with
// [Filter.Update], which fuses the predict and correct steps:
//
//	f, _ := estimator.New(model)
//	_ = f.Init(dt, x0, p0)
//	for y := range measurements {
//		xhat, err := f.Update(y, u)
//		...
//	}
//
// The innovation covariance is inverted through a Cholesky decomposition
// (directly for scalar measurements) and the estimate covariance is
// re-symmetrized after every update.
package estimator
