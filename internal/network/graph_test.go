package network

import (
	"math"
	"testing"

	"github.com/amsen20/sdx-pce/internal/config"
	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// line builds a-b-c with the given capacities and latencies.
func line(t *testing.T, capacity, latency float64) *Graph {
	g := NewGraph(HopCount())
	a := g.AddNode("a", "d1")
	b := g.AddNode("b", "d1")
	c := g.AddNode("c", "d2")
	require.NoError(t, g.AddEdge(a, b, capacity, 0, latency))
	require.NoError(t, g.AddEdge(b, c, capacity, 0, latency))

	return g
}

func TestAddEdge(t *testing.T) {
	g := NewGraph(nil)
	a := g.AddNode("a", "d")
	b := g.AddNode("b", "d")

	assert.Equal(t, a, g.AddNode("a", "d"))
	assert.ErrorIs(t, g.AddEdge(a, a, 10, 0, 1), model.ErrValidation)
	assert.ErrorIs(t, g.AddEdge(a, 7, 10, 0, 1), model.ErrValidation)
	assert.ErrorIs(t, g.AddEdge(a, b, 0, 0, 1), model.ErrValidation)
	assert.ErrorIs(t, g.AddEdge(a, b, 10, 0, -1), model.ErrValidation)

	require.NoError(t, g.AddEdge(a, b, 10, 4, 1))
	assert.ErrorIs(t, g.AddEdge(b, a, 10, 0, 1), model.ErrValidation)

	e, ok := g.Edge(b, a)
	require.True(t, ok)
	assert.Equal(t, 10.0, e.Capacity)
	assert.Equal(t, 4.0, e.Residual)
	assert.Equal(t, 1.0, e.Weight)
}

func TestUpdateGraph(t *testing.T) {
	g := line(t, 10, 1)
	request := model.ConnectionRequest{Id: "r", Source: 0, Destination: 2, Bandwidth: 4}

	solution := model.NewConnectionSolution()
	solution.Add(request, []model.ConnectionPath{{Source: 0, Destination: 1}, {Source: 1, Destination: 2}})

	t.Run("Decrement", func(t *testing.T) {
		require.NoError(t, g.UpdateGraph(solution))
		for _, e := range g.Edges() {
			assert.Equal(t, 6.0, e.Residual)
			assert.Equal(t, 10.0, e.Capacity)
		}
	})

	t.Run("Floor", func(t *testing.T) {
		require.NoError(t, g.UpdateGraph(solution))
		require.NoError(t, g.UpdateGraph(solution))
		for _, e := range g.Edges() {
			assert.Equal(t, config.MinResidualBandwidth, e.Residual)
		}
	})

	t.Run("MissingEdgeLeavesGraphUntouched", func(t *testing.T) {
		fresh := line(t, 10, 1)
		bad := model.NewConnectionSolution()
		bad.Add(request, []model.ConnectionPath{{Source: 0, Destination: 1}, {Source: 0, Destination: 2}})

		assert.ErrorIs(t, fresh.UpdateGraph(bad), model.ErrNotFound)
		for _, e := range fresh.Edges() {
			assert.Equal(t, 10.0, e.Residual)
		}
	})
}

func TestInverseBandwidthFollowsResidual(t *testing.T) {
	g := line(t, 10, 1)
	g.SetWeightPolicy(InverseBandwidth())

	e, _ := g.Edge(0, 1)
	assert.InDelta(t, 0.1, e.Weight, 1e-12)

	solution := model.NewConnectionSolution()
	solution.Add(model.ConnectionRequest{Id: "r", Source: 0, Destination: 1, Bandwidth: 5},
		[]model.ConnectionPath{{Source: 0, Destination: 1}})
	require.NoError(t, g.UpdateGraph(solution))

	e, _ = g.Edge(0, 1)
	assert.InDelta(t, 0.2, e.Weight, 1e-12)
}

func TestFeasible(t *testing.T) {
	g := line(t, 10, 5)

	ok, latency := g.Feasible(model.ConnectionRequest{Source: 0, Destination: 2, Bandwidth: 10})
	assert.True(t, ok)
	assert.Equal(t, 10.0, latency)

	ok, _ = g.Feasible(model.ConnectionRequest{Source: 0, Destination: 2, Bandwidth: 11})
	assert.False(t, ok)

	ok, latency = g.Feasible(model.ConnectionRequest{Source: 0, Destination: 2, Bandwidth: 1, Latency: 9})
	assert.False(t, ok)
	assert.Equal(t, 10.0, latency)

	ok, latency = g.Feasible(model.ConnectionRequest{Source: 0, Destination: 9, Bandwidth: 1})
	assert.False(t, ok)
	assert.True(t, math.IsInf(latency, 1))
}

func TestLatencies(t *testing.T) {
	g := line(t, 10, 5)

	latency, err := g.PathLatency([]model.ConnectionPath{{Source: 2, Destination: 1}, {Source: 1, Destination: 0}})
	require.NoError(t, err)
	assert.Equal(t, 10.0, latency)
	assert.Equal(t, 10.0, g.TotalLatency())

	_, err = g.PathLatency([]model.ConnectionPath{{Source: 0, Destination: 2}})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestClone(t *testing.T) {
	g := line(t, 10, 1)
	clone := g.Clone()

	solution := model.NewConnectionSolution()
	solution.Add(model.ConnectionRequest{Id: "r", Source: 0, Destination: 1, Bandwidth: 3},
		[]model.ConnectionPath{{Source: 0, Destination: 1}})
	require.NoError(t, clone.UpdateGraph(solution))

	e, _ := g.Edge(0, 1)
	assert.Equal(t, 10.0, e.Residual)
	e, _ = clone.Edge(0, 1)
	assert.Equal(t, 7.0, e.Residual)

	index, ok := clone.NodeIndex("c")
	assert.True(t, ok)
	assert.Equal(t, 2, index)
}

func TestPolicyByName(t *testing.T) {
	for _, name := range []string{
		config.WeightHop, config.WeightInverseBandwidth, config.WeightLatency, config.WeightStatic, config.WeightRandom,
	} {
		policy, err := PolicyByName(name, 1)
		require.NoError(t, err)
		assert.Equal(t, name, policy.Name())
	}

	_, err := PolicyByName("shortest", 1)
	assert.Error(t, err)
}
