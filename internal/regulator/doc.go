// Package regulator solves the discrete-time finite-horizon linear quadratic
// regulator problem by backward Riccati recursion.
//
// The recursion starts from the terminal cost P[N] = Q_f and walks back to
// step 0:
//
//	K[i] = (R + BᵀP[i+1]B)⁻¹ · BᵀP[i+1]A
//	P[i] = Q + AᵀP[i+1]A - AᵀP[i+1]B·K[i]
//
// A [Regulator] is solved once; its [GainSchedule] is immutable afterwards
// and can be read from several goroutines.
package regulator
