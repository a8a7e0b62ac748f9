package alg

import (
	"context"

	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/internal/network"
	"github.com/amsen20/sdx-pce/internal/solver"
)

type GroupOutcome struct {
	Index    int
	Requests model.TrafficMatrix
	Status   solver.Status
	Cost     float64
}

// HeuristicResult aggregates the per-group solves. Cost sums the objective
// of the groups that were routed; Unrouted lists requests of groups that
// were not.
type HeuristicResult struct {
	Solution *model.ConnectionSolution
	Unrouted model.TrafficMatrix
	Groups   []GroupOutcome
	Report   PartitionReport
}

// SolveGroups splits tm into k groups with policy and solves them one by
// one, from the last group to the first. Every routed group is committed to
// g before the next one is built, so later groups only see what earlier
// groups left. A group that can not be routed leaves g unchanged and the
// loop moves on.
//
// Pass a clone of the shared graph when the result still has to be
// accepted by someone else.
func (ts *TESolver) SolveGroups(ctx context.Context, g *network.Graph, tm model.TrafficMatrix, policy string, k int) (*HeuristicResult, error) {
	if err := ValidateTrafficMatrix(g.NumNodes(), tm); err != nil {
		return nil, err
	}

	groups, err := Partition(policy, tm, k)
	if err != nil {
		return nil, err
	}

	result := &HeuristicResult{
		Solution: model.NewConnectionSolution(),
		Report:   Report(policy, groups),
	}
	log.Info().Msgf("partitioned %d requests into %d groups (%s), bandwidth spread %g",
		len(tm), len(groups), policy, result.Report.Spread)

	for i := len(groups) - 1; i >= 0; i-- {
		group := groups[i]
		if len(group) == 0 {
			continue
		}

		solution, res, err := ts.Solve(ctx, g, group)
		if err != nil {
			return nil, err
		}

		outcome := GroupOutcome{
			Index:    i,
			Requests: group,
			Status:   res.Status,
			Cost:     res.Objective,
		}
		result.Groups = append(result.Groups, outcome)

		if solution.IsEmpty() {
			log.Warn().Msgf("group %d (%d requests) not routed: %v", i, len(group), res.Status)
			result.Unrouted = append(result.Unrouted, group...)
			continue
		}

		if err := g.UpdateGraph(solution); err != nil {
			return nil, err
		}
		result.Solution.Merge(solution)
	}

	return result, nil
}
