// Package mission closes the loop between the true plant, the Kalman
// filter and a thrust controller.
//
// Each [Runner.Step] feeds the pending height measurement and the previous
// thrust to the filter, asks the controller for the next thrust from the
// new estimate, advances the plant and takes the next measurement. A run
// ends when the body lands, the configured duration elapses or the context
// is cancelled.
//
// [Build] assembles a runner from a [config.Config]; [Ensemble] repeats a
// configuration over many seeds in parallel.
package mission
