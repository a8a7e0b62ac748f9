package alg

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/amsen20/sdx-pce/internal/config"
	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/internal/network"
	"github.com/amsen20/sdx-pce/internal/solver"
	"github.com/amsen20/sdx-pce/logging"
)

var log = logging.Get()

const assignmentTolerance = 1e-6

// TESolver runs one build, solve and translate cycle. It never changes
// the graph; committing a solution is up to the caller.
type TESolver struct {
	Solver  solver.Solver
	Options BuildOptions
	MaxHops int
	// Timeout bounds each solver call, 0 means none.
	Timeout time.Duration
	// Precheck rejects requests Dijkstra already proves infeasible before
	// the solver runs.
	Precheck bool
}

func NewTESolver(cfg config.GeneralConfig, s solver.Solver) *TESolver {
	return &TESolver{
		Solver: s,
		Options: BuildOptions{
			Objective:    cfg.Objective,
			CapacityMode: cfg.CapacityMode,
		},
		MaxHops:  cfg.MaxPathHops,
		Timeout:  time.Duration(cfg.SolverTimeout) * time.Millisecond,
		Precheck: true,
	}
}

// checkAssignment rejects an optimal result whose assignment breaks a row
// of m or whose objective does not match it.
func checkAssignment(m *Model, res *solver.Result) error {
	if err := solver.Verify(m.DataModel, res.Assignment, assignmentTolerance); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSolution, err)
	}

	objective := solver.Objective(m.DataModel, res.Assignment)
	if math.Abs(objective-res.Objective) > assignmentTolerance*math.Max(1, math.Abs(objective)) {
		return fmt.Errorf("%w: reported objective %g, assignment gives %g",
			ErrMalformedSolution, res.Objective, objective)
	}

	return nil
}

// Solve routes tm over g. The returned solution is empty when the solver
// did not prove optimality; res tells why. err is only set for a model that
// could not be built or an assignment that could not be decoded.
func (ts *TESolver) Solve(ctx context.Context, g *network.Graph, tm model.TrafficMatrix) (*model.ConnectionSolution, *solver.Result, error) {
	if ts.Precheck {
		if err := ValidateTrafficMatrix(g.NumNodes(), tm); err != nil {
			return nil, nil, err
		}

		for _, request := range tm {
			if ok, latency := g.Feasible(request); !ok {
				log.Info().Msgf("request %v can not be routed (best latency %g), skipping the solver", request, latency)

				res := &solver.Result{
					Status:     solver.Infeasible,
					Objective:  math.Inf(1),
					LowerBound: math.NaN(),
				}
				solution := model.NewConnectionSolution()
				solution.Cost = res.Objective
				return solution, res, nil
			}
		}
	}

	maxHops := ts.MaxHops
	if maxHops <= 0 {
		maxHops = config.DefaultMaxPathHops
	}

	opts := ts.Options
	if opts.MaxHops <= 0 {
		opts.MaxHops = maxHops
	}
	m, err := BuildModel(g, tm, opts)
	if err != nil {
		return nil, nil, err
	}

	if ts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ts.Timeout)
		defer cancel()
	}

	res, err := ts.Solver.Solve(ctx, m.DataModel)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msgf("solved %d requests: %v, objective %g, LP bound %g, %d nodes",
		len(tm), res.Status, res.Objective, res.LowerBound, res.Nodes)

	if res.IsOptimal() {
		if err := checkAssignment(m, res); err != nil {
			return nil, res, err
		}
	}

	solution, err := Translate(m, res, maxHops)
	if err != nil {
		return nil, res, err
	}

	return solution, res, nil
}
