package alg

import (
	"fmt"

	"github.com/amsen20/sdx-pce/internal/config"
	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/internal/network"
	"github.com/amsen20/sdx-pce/internal/solver"
)

type BuildOptions struct {
	// config.ObjectiveCost or config.ObjectiveLoadBalance.
	Objective string
	// config.CapacityPerLink or config.CapacityPerArc.
	CapacityMode string
	// MaxHops adds one row per request bounding its arc count, 0 adds none.
	MaxHops int
}

func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Objective:    config.ObjectiveCost,
		CapacityMode: config.CapacityPerLink,
	}
}

// Arc is one direction of an undirected edge.
type Arc struct {
	Edge int
	From int
	To   int
}

// Model is the integer program of one traffic matrix plus the layout
// needed to decode its assignment: variable r*len(Arcs)+a selects arc a
// for request r.
type Model struct {
	*solver.DataModel

	Arcs     []Arc
	Requests model.TrafficMatrix
	NumNodes int
}

func (m *Model) Var(request, arc int) int {
	return request*len(m.Arcs) + arc
}

// ValidateTrafficMatrix rejects requests the builder can not model.
func ValidateTrafficMatrix(numNodes int, tm model.TrafficMatrix) error {
	if len(tm) == 0 {
		return fmt.Errorf("%w: empty traffic matrix", model.ErrModelConstruction)
	}

	for _, r := range tm {
		if r.Source < 0 || r.Source >= numNodes || r.Destination < 0 || r.Destination >= numNodes {
			return fmt.Errorf("%w: request %v references a node outside [0, %d)",
				model.ErrModelConstruction, r, numNodes)
		}
		if r.Source == r.Destination {
			return fmt.Errorf("%w: request %v starts and ends on the same node",
				model.ErrModelConstruction, r)
		}
		if r.Bandwidth <= 0 {
			return fmt.Errorf("%w: request %v has non-positive bandwidth", model.ErrModelConstruction, r)
		}
	}

	return nil
}

// BuildModel writes the multi-commodity unsplittable routing program of tm
// over a snapshot of g:
//
//   - flow conservation, R*N equalities: at node n, the arcs of request r
//     entering n minus those leaving n equal -1 at the source, +1 at the
//     destination and 0 elsewhere.
//   - capacity: the bandwidth routed over a link (both directions share one
//     pool) or over an arc (CapacityPerArc) stays within its residual.
//   - latency, R inequalities: the latency of the arcs a request selects
//     stays within its budget. A zero budget becomes the total latency of
//     the graph, which every simple path satisfies.
//   - hops, R inequalities when opts.MaxHops > 0: a request selects at most
//     MaxHops arcs.
//
// The objective is the weight of every selected arc (cost), or
// bandwidth/capacity of every selected arc (load-balance).
func BuildModel(g *network.Graph, tm model.TrafficMatrix, opts BuildOptions) (*Model, error) {
	snapshot := g.Snapshot()

	if err := ValidateTrafficMatrix(snapshot.NumNodes, tm); err != nil {
		return nil, err
	}
	if len(snapshot.Edges) == 0 {
		return nil, fmt.Errorf("%w: graph has no edges", model.ErrModelConstruction)
	}

	var perArc bool
	switch opts.CapacityMode {
	case config.CapacityPerLink, "":
	case config.CapacityPerArc:
		perArc = true
	default:
		return nil, fmt.Errorf("%w: unknown capacity mode %q", model.ErrModelConstruction, opts.CapacityMode)
	}

	var loadBalance bool
	switch opts.Objective {
	case config.ObjectiveCost, "":
	case config.ObjectiveLoadBalance:
		loadBalance = true
	default:
		return nil, fmt.Errorf("%w: unknown objective %q", model.ErrModelConstruction, opts.Objective)
	}

	edges := snapshot.Edges
	arcs := make([]Arc, 0, 2*len(edges))
	var totalLatency float64
	for _, e := range edges {
		arcs = append(arcs, Arc{Edge: e.Index, From: e.U, To: e.V}, Arc{Edge: e.Index, From: e.V, To: e.U})
		totalLatency += e.Latency
	}

	numNodes := snapshot.NumNodes
	numRequests := len(tm)
	numArcs := len(arcs)

	numCapacity := len(edges)
	if perArc {
		numCapacity = numArcs
	}
	numHops := 0
	if opts.MaxHops > 0 {
		numHops = numRequests
	}
	numEquality := numRequests * numNodes
	numInequality := numCapacity + numRequests + numHops

	m := &Model{
		DataModel: solver.NewDataModel(numEquality, numInequality, numRequests*numArcs),
		Arcs:      arcs,
		Requests:  tm.Clone(),
		NumNodes:  numNodes,
	}
	coeffs := m.ConstraintCoeffs

	// Flow conservation.
	for r, request := range tm {
		base := r * numNodes
		for a, arc := range arcs {
			coeffs.Set(base+arc.From, m.Var(r, a), -1)
			coeffs.Set(base+arc.To, m.Var(r, a), 1)
		}
		m.Bounds.SetVec(base+request.Source, -1)
		m.Bounds.SetVec(base+request.Destination, 1)
	}

	// Capacity.
	capacityBase := numEquality
	for a, arc := range arcs {
		row := capacityBase + arc.Edge
		if perArc {
			row = capacityBase + a
		}
		for r, request := range tm {
			coeffs.Set(row, m.Var(r, a), request.Bandwidth)
		}
		m.Bounds.SetVec(row, edges[arc.Edge].Residual)
	}

	// Latency.
	latencyBase := numEquality + numCapacity
	for r, request := range tm {
		row := latencyBase + r
		for a, arc := range arcs {
			coeffs.Set(row, m.Var(r, a), edges[arc.Edge].Latency)
		}

		budget := request.Latency
		if budget <= 0 {
			budget = totalLatency
		}
		m.Bounds.SetVec(row, budget)
	}

	// Hops.
	hopBase := latencyBase + numRequests
	for r := 0; r < numHops; r++ {
		for a := range arcs {
			coeffs.Set(hopBase+r, m.Var(r, a), 1)
		}
		m.Bounds.SetVec(hopBase+r, float64(opts.MaxHops))
	}

	// Objective.
	for r, request := range tm {
		for a, arc := range arcs {
			e := edges[arc.Edge]
			coef := e.Weight
			if loadBalance {
				coef = request.Bandwidth / e.Capacity
			}
			m.ObjCoeffs.SetVec(m.Var(r, a), coef)
		}
	}

	log.Debug().Msgf("built model: %d requests, %d nodes, %d arcs, %d variables, %d constraints",
		numRequests, numNodes, numArcs, m.NumVars, m.NumConstraints)

	return m, nil
}
