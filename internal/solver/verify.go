package solver

import (
	"fmt"
	"math"

	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/internal/utils"
	"gonum.org/v1/gonum/mat"
)

// Verify checks that x is a 0/1 assignment satisfying every row of m.
func Verify(m *DataModel, x []float64, tol float64) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if len(x) != m.NumVars {
		return fmt.Errorf("%w: assignment has %d values for %d variables", model.ErrValidation, len(x), m.NumVars)
	}

	for j, v := range x {
		if math.Abs(v) > tol && math.Abs(v-1) > tol {
			return fmt.Errorf("%w: variable %d is %g, not binary", model.ErrValidation, j, v)
		}
	}

	lhs := mat.NewVecDense(m.NumConstraints, nil)
	lhs.MulVec(m.ConstraintCoeffs, mat.NewVecDense(m.NumVars, x))

	numEquality := m.NumEquality()
	for i := 0; i < numEquality; i++ {
		if math.Abs(lhs.AtVec(i)-m.Bounds.AtVec(i)) > tol {
			return fmt.Errorf("%w: equality row %d is %g, want %g", model.ErrValidation, i, lhs.AtVec(i), m.Bounds.AtVec(i))
		}
	}

	if m.NumInequality > 0 {
		got := lhs.SliceVec(numEquality, m.NumConstraints).(*mat.VecDense)
		limit := m.Bounds.SliceVec(numEquality, m.NumConstraints).(*mat.VecDense)
		if !utils.LEThan(got, limit, tol) {
			return fmt.Errorf("%w: an inequality row exceeds its bound", model.ErrValidation)
		}
	}

	return nil
}

// Objective evaluates m's objective at x.
func Objective(m *DataModel, x []float64) float64 {
	return mat.Dot(m.ObjCoeffs, mat.NewVecDense(len(x), x))
}
