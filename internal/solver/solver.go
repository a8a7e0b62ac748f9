package solver

import (
	"context"
	"math"

	"github.com/amsen20/sdx-pce/logging"
)

var log = logging.Get()

type Status int

const (
	Optimal Status = iota
	Infeasible
	// The context expired before optimality was proven.
	Timeout
	// The node budget ran out before optimality was proven.
	Aborted
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Timeout:
		return "timeout"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// Result of one solve. Assignment is only meaningful when Status is Optimal.
// Objective is +Inf when no feasible assignment was found. LowerBound is the
// LP relaxation value, NaN when it was not computed.
type Result struct {
	Status     Status
	Objective  float64
	Assignment []float64
	LowerBound float64
	Nodes      int
}

func (r *Result) IsOptimal() bool {
	return r != nil && r.Status == Optimal
}

// Solver solves 0/1 integer programs. Only a malformed model is an error;
// infeasibility and timeouts are reported through Result.Status.
type Solver interface {
	Solve(ctx context.Context, m *DataModel) (*Result, error)
}

func nonOptimal(status Status, nodes int) *Result {
	return &Result{
		Status:     status,
		Objective:  math.Inf(1),
		LowerBound: math.NaN(),
		Nodes:      nodes,
	}
}
