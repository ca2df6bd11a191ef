// Package dynamo provides the simulation primitives shared by the plant,
// the controllers and the closed-loop runner.
//
//   - [State] and [Control]: plain float64 vectors, convertible to gonum
//     vectors with [State.Vec] and [FromVec]
//   - [System]: continuous-time plant dynamics dX/dt = f(X, u, t)
//   - [Integrator]: one fixed-step integration scheme
//   - [Controller]: maps a state estimate to a control input
//   - [Metric] and [Observer]: consumers of per-step [Sample] values
package dynamo
