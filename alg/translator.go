package alg

import (
	"errors"
	"fmt"
	"math"

	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/internal/solver"
)

// A selected arc is one whose value is within this distance of 1.
const selectionTolerance = 1e-3

// ErrMalformedSolution is returned when the selected arcs of a request do
// not form a walk from its source to its destination within the hop cap.
var ErrMalformedSolution = errors.New("malformed solution")

// Translate decodes an assignment into one ordered path per request.
//
// A non-optimal result yields an empty solution carrying the solver's raw
// objective; the caller treats it as "no route" and does not retry.
func Translate(m *Model, res *solver.Result, maxHops int) (*model.ConnectionSolution, error) {
	solution := model.NewConnectionSolution()

	if !res.IsOptimal() {
		solution.Cost = res.Objective
		log.Info().Msgf("solver finished %v, no paths for %d requests", res.Status, len(m.Requests))
		return solution, nil
	}

	if len(res.Assignment) != m.NumVars {
		return nil, fmt.Errorf("%w: %d values for %d variables", ErrMalformedSolution, len(res.Assignment), m.NumVars)
	}

	for r, request := range m.Requests {
		var selected []Arc
		for a, arc := range m.Arcs {
			if math.Abs(res.Assignment[m.Var(r, a)]-1) < selectionTolerance {
				selected = append(selected, arc)
			}
		}

		path, err := walk(request, selected, maxHops)
		if err != nil {
			return nil, err
		}
		solution.Add(request, path)
	}
	solution.Cost = res.Objective

	return solution, nil
}

// walk follows the selected arcs from the source, at most maxHops times,
// never revisiting a node. Ties go to the arc listed first.
func walk(request model.ConnectionRequest, selected []Arc, maxHops int) ([]model.ConnectionPath, error) {
	used := make([]bool, len(selected))
	visited := map[int]bool{request.Source: true}

	path := make([]model.ConnectionPath, 0)
	current := request.Source
	for hops := 0; hops < maxHops && current != request.Destination; hops++ {
		next := -1
		for i, arc := range selected {
			if used[i] || arc.From != current || visited[arc.To] {
				continue
			}
			next = i
			break
		}
		if next == -1 {
			break
		}

		used[next] = true
		arc := selected[next]
		path = append(path, model.ConnectionPath{Source: arc.From, Destination: arc.To})
		visited[arc.To] = true
		current = arc.To
	}

	if current != request.Destination {
		return nil, fmt.Errorf("%w: request %v stopped at node %d after %d hops",
			ErrMalformedSolution, request, current, len(path))
	}

	return path, nil
}
