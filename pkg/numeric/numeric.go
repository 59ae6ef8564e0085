// Package numeric provides small helpers for gradient vectors.
package numeric

import (
	"gonum.org/v1/gonum/floats"
)

// RealParts extracts the real components of a complex gradient vector.
func RealParts(values []complex128) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = real(v)
	}
	return out
}

// GradNorm returns the Euclidean norm of a complex gradient's real parts.
// Expectation gradients of Hermitian observables are real up to numeric
// noise; the imaginary parts are ignored here.
func GradNorm(values []complex128) float64 {
	return floats.Norm(RealParts(values), 2)
}

// MaxAbsImag returns the largest absolute imaginary component, useful for
// asserting a gradient is real to within tolerance.
func MaxAbsImag(values []complex128) float64 {
	max := 0.0
	for _, v := range values {
		im := imag(v)
		if im < 0 {
			im = -im
		}
		if im > max {
			max = im
		}
	}
	return max
}
