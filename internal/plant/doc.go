// Package plant simulates the true falling body that the lander estimates
// and controls, and builds the linear [h, v, g] models used by the filter
// and the regulator.
//
// The body is integrated with any [dynamo.Integrator]. Process and
// measurement noise come from gonum's distuv normals sharing one seeded
// source, so runs are reproducible.
package plant
