package solver

import (
	"context"
	"math"
)

// BranchAndBound is an exact depth-first 0/1 solver. Each constraint row
// keeps the range its left-hand side can still reach from the unassigned
// variables; a branch is cut as soon as some row can no longer be
// satisfied, or as soon as its cost can not beat the incumbent.
//
// It is meant for the model sizes a single traffic-matrix group produces.
// Large matrices should go through the group partitioner first.
type BranchAndBound struct {
	// Tolerance used when comparing row sums with bounds. Default 1e-9.
	Tolerance float64
	// NodeLimit stops the search after that many nodes, 0 means no limit.
	NodeLimit int
	// Relax computes the LP relaxation bound for the result.
	Relax bool
}

// DefaultNodeLimit keeps one search to a few seconds. A 5x5 grid with two
// requests (160 variables) already needs millions of nodes.
const DefaultNodeLimit = 2000000

func NewBranchAndBound() *BranchAndBound {
	return &BranchAndBound{
		Tolerance: 1e-9,
		NodeLimit: DefaultNodeLimit,
		Relax:     true,
	}
}

type entry struct {
	row  int
	coef float64
}

type search struct {
	ctx context.Context
	tol float64

	numEquality int
	bounds      []float64
	obj         []float64
	cols        [][]entry

	sum []float64
	lo  []float64
	hi  []float64
	// negSuffix[j] is the sum of negative objective coefficients of
	// variables j..n-1, the best the rest of the assignment can add.
	negSuffix []float64

	x     []float64
	best  float64
	bestX []float64

	nodes     int
	nodeLimit int
	stopped   Status
	halted    bool
}

func (b *BranchAndBound) Solve(ctx context.Context, m *DataModel) (*Result, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	tol := b.Tolerance
	if tol <= 0 {
		tol = 1e-9
	}

	s := &search{
		ctx:         ctx,
		tol:         tol,
		numEquality: m.NumEquality(),
		bounds:      make([]float64, m.NumConstraints),
		obj:         make([]float64, m.NumVars),
		cols:        make([][]entry, m.NumVars),
		sum:         make([]float64, m.NumConstraints),
		lo:          make([]float64, m.NumConstraints),
		hi:          make([]float64, m.NumConstraints),
		negSuffix:   make([]float64, m.NumVars+1),
		x:           make([]float64, m.NumVars),
		best:        math.Inf(1),
		nodeLimit:   b.NodeLimit,
	}

	for i := 0; i < m.NumConstraints; i++ {
		s.bounds[i] = m.Bounds.AtVec(i)
		for j := 0; j < m.NumVars; j++ {
			coef := m.ConstraintCoeffs.At(i, j)
			if coef == 0 {
				continue
			}
			s.cols[j] = append(s.cols[j], entry{row: i, coef: coef})
			if coef > 0 {
				s.hi[i] += coef
			} else {
				s.lo[i] += coef
			}
		}
	}
	for j := m.NumVars - 1; j >= 0; j-- {
		s.obj[j] = m.ObjCoeffs.AtVec(j)
		s.negSuffix[j] = s.negSuffix[j+1] + math.Min(0, s.obj[j])
	}

	// Rows no variable touches must already hold.
	for i := 0; i < m.NumConstraints; i++ {
		if !s.rowFeasible(i) {
			log.Debug().Msgf("row %d can never be satisfied", i)
			return s.finish(b, m), nil
		}
	}

	s.dfs(0, 0)

	return s.finish(b, m), nil
}

func (s *search) finish(b *BranchAndBound, m *DataModel) *Result {
	if s.halted {
		res := nonOptimal(s.stopped, s.nodes)
		res.Objective = s.best
		log.Warn().Msgf("search stopped (%v) after %d nodes", s.stopped, s.nodes)
		return res
	}

	if s.bestX == nil {
		return nonOptimal(Infeasible, s.nodes)
	}

	res := &Result{
		Status:     Optimal,
		Objective:  s.best,
		Assignment: s.bestX,
		LowerBound: math.NaN(),
		Nodes:      s.nodes,
	}

	if b.Relax {
		bound, err := Relax(m)
		if err != nil {
			log.Debug().Msgf("no LP bound: %v", err)
		} else {
			res.LowerBound = bound
		}
	}

	return res
}

func (s *search) rowFeasible(i int) bool {
	lo := s.sum[i] + s.lo[i]
	hi := s.sum[i] + s.hi[i]
	if lo > s.bounds[i]+s.tol {
		return false
	}
	if i < s.numEquality && hi < s.bounds[i]-s.tol {
		return false
	}

	return true
}

func (s *search) consistent(col []entry) bool {
	for _, e := range col {
		if !s.rowFeasible(e.row) {
			return false
		}
	}

	return true
}

func (s *search) dfs(j int, cost float64) {
	if s.halted {
		return
	}

	s.nodes++
	if s.nodes&1023 == 0 {
		if s.ctx.Err() != nil {
			s.halted, s.stopped = true, Timeout
			return
		}
	}
	if s.nodeLimit > 0 && s.nodes > s.nodeLimit {
		s.halted, s.stopped = true, Aborted
		return
	}

	if cost+s.negSuffix[j] >= s.best-s.tol {
		return
	}

	if j == len(s.x) {
		s.best = cost
		s.bestX = make([]float64, len(s.x))
		copy(s.bestX, s.x)
		return
	}

	col := s.cols[j]
	for _, e := range col {
		if e.coef > 0 {
			s.hi[e.row] -= e.coef
		} else {
			s.lo[e.row] -= e.coef
		}
	}

	// x_j = 0
	if s.consistent(col) {
		s.x[j] = 0
		s.dfs(j+1, cost)
	}

	// x_j = 1
	for _, e := range col {
		s.sum[e.row] += e.coef
	}
	if s.consistent(col) {
		s.x[j] = 1
		s.dfs(j+1, cost+s.obj[j])
	}
	for _, e := range col {
		s.sum[e.row] -= e.coef
	}
	s.x[j] = 0

	for _, e := range col {
		if e.coef > 0 {
			s.hi[e.row] += e.coef
		} else {
			s.lo[e.row] += e.coef
		}
	}
}
