package solver

import (
	"context"
	"math"
	"testing"

	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pickOne: x2 == 1, x0 + x1 <= 1, minimize -x0 - 2x1.
func pickOne() *DataModel {
	m := NewDataModel(1, 1, 3)
	m.ConstraintCoeffs.Set(0, 2, 1)
	m.Bounds.SetVec(0, 1)
	m.ConstraintCoeffs.Set(1, 0, 1)
	m.ConstraintCoeffs.Set(1, 1, 1)
	m.Bounds.SetVec(1, 1)
	m.ObjCoeffs.SetVec(0, -1)
	m.ObjCoeffs.SetVec(1, -2)

	return m
}

func TestBranchAndBound(t *testing.T) {
	s := NewBranchAndBound()

	t.Run("Optimal", func(t *testing.T) {
		m := pickOne()
		res, err := s.Solve(context.Background(), m)
		require.NoError(t, err)

		require.True(t, res.IsOptimal())
		assert.Equal(t, -2.0, res.Objective)
		assert.Equal(t, []float64{0, 1, 1}, res.Assignment)
		assert.NoError(t, Verify(m, res.Assignment, 1e-9))
		assert.Equal(t, res.Objective, Objective(m, res.Assignment))

		if !math.IsNaN(res.LowerBound) {
			assert.LessOrEqual(t, res.LowerBound, res.Objective+1e-6)
		}
	})

	t.Run("Infeasible", func(t *testing.T) {
		m := NewDataModel(1, 0, 2)
		m.ConstraintCoeffs.Set(0, 0, 1)
		m.ConstraintCoeffs.Set(0, 1, 1)
		m.Bounds.SetVec(0, 3)

		res, err := s.Solve(context.Background(), m)
		require.NoError(t, err)
		assert.Equal(t, Infeasible, res.Status)
		assert.True(t, math.IsInf(res.Objective, 1))
		assert.Nil(t, res.Assignment)
	})

	t.Run("DefaultNodeLimit", func(t *testing.T) {
		assert.Equal(t, DefaultNodeLimit, NewBranchAndBound().NodeLimit)
	})

	t.Run("NodeLimit", func(t *testing.T) {
		limited := &BranchAndBound{NodeLimit: 1}
		res, err := limited.Solve(context.Background(), pickOne())
		require.NoError(t, err)
		assert.Equal(t, Aborted, res.Status)
		assert.False(t, res.IsOptimal())
	})

	t.Run("MalformedModel", func(t *testing.T) {
		m := pickOne()
		m.NumVars = 4
		_, err := s.Solve(context.Background(), m)
		assert.ErrorIs(t, err, model.ErrValidation)
	})
}

func TestVerify(t *testing.T) {
	m := pickOne()

	assert.ErrorIs(t, Verify(m, []float64{0.5, 0, 1}, 1e-9), model.ErrValidation)
	assert.ErrorIs(t, Verify(m, []float64{0, 0, 0}, 1e-9), model.ErrValidation)
	assert.ErrorIs(t, Verify(m, []float64{1, 1, 1}, 1e-9), model.ErrValidation)
	assert.ErrorIs(t, Verify(m, []float64{1, 1}, 1e-9), model.ErrValidation)
	assert.NoError(t, Verify(m, []float64{1, 0, 1}, 1e-9))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "optimal", Optimal.String())
	assert.Equal(t, "timeout", Timeout.String())
	assert.Equal(t, "unknown", Status(42).String())
}
