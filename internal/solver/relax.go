package solver

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Models above this many matrix cells are not relaxed.
const maxRelaxCells = 1 << 20

var ErrTooLarge = errors.New("model too large to relax")

// Relax returns the optimum of the LP relaxation of m (0 <= x <= 1), a lower
// bound on the integer optimum. Equality rows that are linearly dependent
// on earlier ones are dropped first, since the simplex needs full row rank;
// dropping rows only loosens the relaxation, so the bound stays valid.
func Relax(m *DataModel) (bound float64, err error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}

	n := m.NumVars
	numEquality := m.NumEquality()
	numIneqRows := m.NumInequality + 2*n
	if (numEquality+numIneqRows)*(3*n+numIneqRows) > maxRelaxCells {
		return 0, ErrTooLarge
	}

	eqRows := independentRows(m.ConstraintCoeffs, numEquality)

	c := make([]float64, n)
	for j := 0; j < n; j++ {
		c[j] = m.ObjCoeffs.AtVec(j)
	}

	// G x <= h: the model's inequalities, then x <= 1, then -x <= 0.
	g := mat.NewDense(numIneqRows, n, nil)
	h := make([]float64, numIneqRows)
	for i := 0; i < m.NumInequality; i++ {
		row := numEquality + i
		g.SetRow(i, mat.Row(nil, row, m.ConstraintCoeffs))
		h[i] = m.Bounds.AtVec(row)
	}
	for j := 0; j < n; j++ {
		g.Set(m.NumInequality+j, j, 1)
		h[m.NumInequality+j] = 1
		g.Set(m.NumInequality+n+j, j, -1)
	}

	var a mat.Matrix
	var b []float64
	if len(eqRows) > 0 {
		ad := mat.NewDense(len(eqRows), n, nil)
		b = make([]float64, len(eqRows))
		for k, row := range eqRows {
			ad.SetRow(k, mat.Row(nil, row, m.ConstraintCoeffs))
			b[k] = m.Bounds.AtVec(row)
		}
		a = ad
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lp relaxation panicked: %v", r)
		}
	}()

	cNew, aNew, bNew := lp.Convert(c, g, h, a, b)
	bound, _, err = lp.Simplex(cNew, aNew, bNew, 0, nil)
	if err != nil {
		return 0, err
	}

	return bound, nil
}

// independentRows returns the indexes of the first count rows of coeffs
// that are linearly independent of the rows kept before them, using
// Gram-Schmidt on the row vectors.
func independentRows(coeffs *mat.Dense, count int) []int {
	_, n := coeffs.Dims()

	var basis []*mat.VecDense
	var kept []int
	for i := 0; i < count; i++ {
		v := mat.NewVecDense(n, mat.Row(nil, i, coeffs))
		for _, q := range basis {
			v.AddScaledVec(v, -mat.Dot(v, q), q)
		}

		norm := mat.Norm(v, 2)
		if norm < 1e-9 {
			continue
		}
		v.ScaleVec(1/norm, v)

		basis = append(basis, v)
		kept = append(kept, i)
	}

	return kept
}
