package solver

import (
	"fmt"

	"github.com/amsen20/sdx-pce/internal/model"
	"gonum.org/v1/gonum/mat"
)

// DataModel is a 0/1 integer program:
//
//	minimize   ObjCoeffs · x
//	subject to row i of ConstraintCoeffs · x == Bounds[i]   for i <  NumEquality()
//	           row i of ConstraintCoeffs · x <= Bounds[i]   for i >= NumEquality()
//	           x in {0, 1}^NumVars
type DataModel struct {
	ConstraintCoeffs *mat.Dense
	Bounds           *mat.VecDense
	ObjCoeffs        *mat.VecDense

	NumConstraints int
	NumVars        int
	NumInequality  int
}

func NewDataModel(numEquality, numInequality, numVars int) *DataModel {
	numConstraints := numEquality + numInequality

	return &DataModel{
		ConstraintCoeffs: mat.NewDense(numConstraints, numVars, nil),
		Bounds:           mat.NewVecDense(numConstraints, nil),
		ObjCoeffs:        mat.NewVecDense(numVars, nil),
		NumConstraints:   numConstraints,
		NumVars:          numVars,
		NumInequality:    numInequality,
	}
}

func (m *DataModel) NumEquality() int {
	return m.NumConstraints - m.NumInequality
}

// Validate checks that every dimension agrees.
func (m *DataModel) Validate() error {
	if m == nil || m.ConstraintCoeffs == nil || m.Bounds == nil || m.ObjCoeffs == nil {
		return fmt.Errorf("%w: incomplete data model", model.ErrValidation)
	}

	rows, cols := m.ConstraintCoeffs.Dims()
	if rows != m.NumConstraints || cols != m.NumVars {
		return fmt.Errorf("%w: constraint matrix is %dx%d, expected %dx%d",
			model.ErrValidation, rows, cols, m.NumConstraints, m.NumVars)
	}
	if m.Bounds.Len() != m.NumConstraints {
		return fmt.Errorf("%w: %d bounds for %d constraints", model.ErrValidation, m.Bounds.Len(), m.NumConstraints)
	}
	if m.ObjCoeffs.Len() != m.NumVars {
		return fmt.Errorf("%w: %d objective coefficients for %d variables",
			model.ErrValidation, m.ObjCoeffs.Len(), m.NumVars)
	}
	if m.NumInequality < 0 || m.NumInequality > m.NumConstraints {
		return fmt.Errorf("%w: %d inequalities out of %d constraints",
			model.ErrValidation, m.NumInequality, m.NumConstraints)
	}

	return nil
}
