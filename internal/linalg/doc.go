// Package linalg holds the dense-matrix helpers shared by the estimator and
// the regulator: shape and definiteness checks, symmetrization, and guarded
// inversion of symmetric matrices.
//
// All failures are reported as [*OpError] values wrapping either
// [ErrInvalidDimension] or [ErrSingular], so callers can match them with
// errors.Is and still print which matrix was at fault.
package linalg
