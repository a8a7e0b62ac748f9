package utils

import "gonum.org/v1/gonum/mat"

// LEThan reports whether a <= b + tol holds element-wise.
func LEThan(a, b *mat.VecDense, tol float64) bool {
	if a.Len() != b.Len() {
		panic("Two vectors should have the same length.")
	}

	for i := 0; i < a.Len(); i += 1 {
		if a.AtVec(i) > b.AtVec(i)+tol {
			return false
		}
	}

	return true
}

// Spread is max(v) - min(v), zero for an empty vector.
func Spread(v *mat.VecDense) float64 {
	if v.Len() == 0 {
		return 0
	}

	return mat.Max(v) - mat.Min(v)
}
