// Package network holds the merged topology graph the TE pipeline routes
// over. Every edge is an undirected link with an immutable capacity and a
// residual bandwidth that only goes down as solutions are committed.
//
// All methods are safe for concurrent use. Reads take a snapshot under a
// read lock; UpdateGraph is the only writer of residual bandwidth.
package network

import (
	"fmt"
	"math"
	"sync"

	"github.com/amsen20/sdx-pce/internal/config"
	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/logging"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

var log = logging.Get()

type Edge struct {
	Index int
	U     int
	V     int

	Capacity   float64
	Residual   float64
	Latency    float64
	StaticCost float64
	Weight     float64
}

type pair [2]int

func key(u, v int) pair {
	if u > v {
		u, v = v, u
	}
	return pair{u, v}
}

type Graph struct {
	mu sync.RWMutex

	nodes     []model.Node
	nodeIndex map[string]int

	edges     []*Edge
	edgeIndex map[pair]int

	policy WeightPolicy
}

func NewGraph(policy WeightPolicy) *Graph {
	if policy == nil {
		policy = HopCount()
	}

	return &Graph{
		nodeIndex: make(map[string]int),
		edgeIndex: make(map[pair]int),
		policy:    policy,
	}
}

// AddNode registers a node and returns its local index. Adding the same
// id twice returns the existing index.
func (g *Graph) AddNode(id, domain string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	if index, ok := g.nodeIndex[id]; ok {
		return index
	}

	index := len(g.nodes)
	g.nodes = append(g.nodes, model.Node{Index: index, Id: id, Domain: domain})
	g.nodeIndex[id] = index

	return index
}

// AddEdge links u and v. The graph is simple: self loops and parallel
// links are rejected. A non-positive residual starts at capacity.
func (g *Graph) AddEdge(u, v int, capacity, residual, latency float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if u < 0 || u >= len(g.nodes) || v < 0 || v >= len(g.nodes) {
		return fmt.Errorf("%w: edge (%d, %d) references an unknown node", model.ErrValidation, u, v)
	}
	if u == v {
		return fmt.Errorf("%w: self loop on node %d", model.ErrValidation, u)
	}
	if _, ok := g.edgeIndex[key(u, v)]; ok {
		return fmt.Errorf("%w: parallel edge (%d, %d)", model.ErrValidation, u, v)
	}
	if capacity <= 0 {
		return fmt.Errorf("%w: edge (%d, %d) has non-positive capacity %g", model.ErrValidation, u, v, capacity)
	}
	if latency < 0 {
		return fmt.Errorf("%w: edge (%d, %d) has negative latency %g", model.ErrValidation, u, v, latency)
	}

	if residual <= 0 || residual > capacity {
		residual = capacity
	}

	e := &Edge{
		Index:      len(g.edges),
		U:          u,
		V:          v,
		Capacity:   capacity,
		Residual:   math.Max(residual, config.MinResidualBandwidth),
		Latency:    latency,
		StaticCost: 1,
	}
	e.Weight = g.policy.Weight(e)

	g.edgeIndex[key(u, v)] = e.Index
	g.edges = append(g.edges, e)

	return nil
}

func (g *Graph) NumNodes() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes)
}

func (g *Graph) NumEdges() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.edges)
}

func (g *Graph) Node(index int) (model.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if index < 0 || index >= len(g.nodes) {
		return model.Node{}, false
	}
	return g.nodes[index], true
}

func (g *Graph) NodeIndex(id string) (int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	index, ok := g.nodeIndex[id]
	return index, ok
}

// Edges returns a copy of every edge in insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ret := make([]Edge, len(g.edges))
	for i, e := range g.edges {
		ret[i] = *e
	}

	return ret
}

// Edge returns a copy of the edge between u and v in either direction.
func (g *Graph) Edge(u, v int) (Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	index, ok := g.edgeIndex[key(u, v)]
	if !ok {
		return Edge{}, false
	}
	return *g.edges[index], true
}

func (g *Graph) Policy() WeightPolicy {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.policy
}

func (g *Graph) SetWeightPolicy(policy WeightPolicy) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.policy = policy
	g.recomputeWeights()
}

// SetStaticCost sets the externally supplied cost used by the static policy.
func (g *Graph) SetStaticCost(u, v int, cost float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	index, ok := g.edgeIndex[key(u, v)]
	if !ok {
		return fmt.Errorf("%w: edge (%d, %d)", model.ErrNotFound, u, v)
	}
	if cost < 0 {
		return fmt.Errorf("%w: negative cost %g on edge (%d, %d)", model.ErrValidation, cost, u, v)
	}

	e := g.edges[index]
	e.StaticCost = cost
	e.Weight = g.policy.Weight(e)

	return nil
}

func (g *Graph) RecomputeWeights() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.recomputeWeights()
}

func (g *Graph) recomputeWeights() {
	for _, e := range g.edges {
		e.Weight = g.policy.Weight(e)
	}
}

// UpdateGraph subtracts each routed request's bandwidth from every edge its
// path traverses. Residual bandwidth is floored at MinResidualBandwidth.
// The solution is checked before anything is applied, so an unknown hop
// leaves the graph untouched.
func (g *Graph) UpdateGraph(solution *model.ConnectionSolution) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	decrements := make(map[int]float64)
	for _, request := range solution.Order {
		for _, hop := range solution.Paths[request] {
			index, ok := g.edgeIndex[key(hop.Source, hop.Destination)]
			if !ok {
				return fmt.Errorf("%w: request %v uses missing edge (%d, %d)",
					model.ErrNotFound, request, hop.Source, hop.Destination)
			}
			decrements[index] += request.Bandwidth
		}
	}

	for index, bandwidth := range decrements {
		e := g.edges[index]
		e.Residual = math.Max(e.Residual-bandwidth, config.MinResidualBandwidth)
		log.Debug().Msgf("edge (%d, %d) residual bandwidth now %g", e.U, e.V, e.Residual)
	}
	g.recomputeWeights()

	return nil
}

// Feasible reports whether request could be routed on its own: some path
// of edges with enough residual bandwidth must reach the destination within
// the latency budget. A zero budget is unbounded. It also returns the least
// latency found, +Inf when the destination is unreachable.
func (g *Graph) Feasible(request model.ConnectionRequest) (bool, float64) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := len(g.nodes)
	if request.Source < 0 || request.Source >= n || request.Destination < 0 || request.Destination >= n {
		return false, math.Inf(1)
	}

	wg := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i := 0; i < n; i++ {
		wg.AddNode(simple.Node(i))
	}
	for _, e := range g.edges {
		if e.Residual+1e-9 < request.Bandwidth {
			continue
		}
		wg.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(e.U),
			T: simple.Node(e.V),
			W: e.Latency,
		})
	}

	shortest := path.DijkstraFrom(simple.Node(request.Source), wg)
	latency := shortest.WeightTo(int64(request.Destination))
	if math.IsInf(latency, 1) {
		return false, latency
	}
	if request.Latency > 0 && latency > request.Latency+1e-9 {
		return false, latency
	}

	return true, latency
}

// PathLatency sums the latency of the edges a path traverses.
func (g *Graph) PathLatency(hops []model.ConnectionPath) (float64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var total float64
	for _, hop := range hops {
		index, ok := g.edgeIndex[key(hop.Source, hop.Destination)]
		if !ok {
			return 0, fmt.Errorf("%w: edge (%d, %d)", model.ErrNotFound, hop.Source, hop.Destination)
		}
		total += g.edges[index].Latency
	}

	return total, nil
}

// TotalLatency is the latency of every edge added together, an upper bound
// for any simple path.
func (g *Graph) TotalLatency() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var total float64
	for _, e := range g.edges {
		total += e.Latency
	}

	return total
}

// Snapshot is a consistent copy of the graph's size and edges.
type Snapshot struct {
	NumNodes int
	Edges    []Edge
}

func (g *Graph) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges := make([]Edge, len(g.edges))
	for i, e := range g.edges {
		edges[i] = *e
	}

	return Snapshot{NumNodes: len(g.nodes), Edges: edges}
}

// Clone returns an independent copy sharing nothing mutable with g. The
// random policy, if any, is reseeded deterministically.
func (g *Graph) Clone() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	policy := g.policy
	if _, ok := policy.(*randomPolicy); ok {
		policy = Random(int64(len(g.edges)))
	}

	ret := &Graph{
		nodes:     make([]model.Node, len(g.nodes)),
		nodeIndex: make(map[string]int, len(g.nodeIndex)),
		edges:     make([]*Edge, len(g.edges)),
		edgeIndex: make(map[pair]int, len(g.edgeIndex)),
		policy:    policy,
	}
	copy(ret.nodes, g.nodes)
	for id, index := range g.nodeIndex {
		ret.nodeIndex[id] = index
	}
	for i, e := range g.edges {
		edge := *e
		ret.edges[i] = &edge
	}
	for k, index := range g.edgeIndex {
		ret.edgeIndex[k] = index
	}

	return ret
}
