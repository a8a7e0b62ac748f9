// Package temanager turns connection requests into provisioned, tagged,
// per-domain breakdowns. It owns the shared graph and the VLAN table and
// accepts a routing only after every domain segment got its labels:
// nothing is committed to either until the whole connection fits.
package temanager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/amsen20/sdx-pce/alg"
	"github.com/amsen20/sdx-pce/internal/breakdown"
	"github.com/amsen20/sdx-pce/internal/config"
	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/internal/network"
	"github.com/amsen20/sdx-pce/internal/solver"
	"github.com/amsen20/sdx-pce/internal/topology"
	"github.com/amsen20/sdx-pce/internal/vlan"
	"github.com/amsen20/sdx-pce/logging"
	"github.com/amsen20/sdx-pce/statistics"
)

var log = logging.Get()

// ErrNoRoute is returned when the solver found no acceptable routing.
var ErrNoRoute = errors.New("no route")

type provisioned struct {
	connection   model.Connection
	request      model.ConnectionRequest
	path         []model.ConnectionPath
	breakdown    *model.TaggedBreakdown
	reservations []vlan.Reservation
}

type Manager struct {
	cfg      config.GeneralConfig
	topo     *topology.Topology
	graph    *network.Graph
	vlans    *vlan.Table
	te       *alg.TESolver
	resolver *topology.GraphResolver

	// serializes solve and commit so two requests never route over the
	// same residual bandwidth.
	lock        sync.Mutex
	connections map[string]*provisioned
}

// New builds the graph and the VLAN table of topo. s solves every model;
// a nil s picks the branch and bound solver bounded by solver_node_limit.
func New(cfg config.GeneralConfig, topo *topology.Topology, s solver.Solver) (*Manager, error) {
	policy, err := network.PolicyByName(cfg.WeightPolicy, cfg.Seed)
	if err != nil {
		return nil, err
	}

	graph, err := topo.Graph(policy)
	if err != nil {
		return nil, err
	}

	vlans, err := vlan.NewTableFromRanges(topo.LabelRanges())
	if err != nil {
		return nil, err
	}

	if s == nil {
		bnb := solver.NewBranchAndBound()
		bnb.NodeLimit = cfg.SolverNodeLimit
		s = bnb
	}

	log.Info().Msgf("TE manager %s ready: %d nodes, %d links, %d domains",
		cfg.Name, graph.NumNodes(), graph.NumEdges(), len(topo.Domains))

	return &Manager{
		cfg:         cfg,
		topo:        topo,
		graph:       graph,
		vlans:       vlans,
		te:          alg.NewTESolver(cfg, s),
		resolver:    topology.NewGraphResolver(topo, graph),
		connections: make(map[string]*provisioned),
	}, nil
}

func (m *Manager) Graph() *network.Graph {
	return m.graph
}

func (m *Manager) Vlans() *vlan.Table {
	return m.vlans
}

// Request maps a connection onto graph node indexes.
func (m *Manager) Request(conn model.Connection) (model.ConnectionRequest, error) {
	if err := conn.Validate(); err != nil {
		return model.ConnectionRequest{}, err
	}

	index := func(port string) (int, error) {
		node, err := m.topo.NodeOfPort(port)
		if err != nil {
			return 0, err
		}
		i, ok := m.graph.NodeIndex(node)
		if !ok {
			return 0, fmt.Errorf("%w: node %s is not in the graph", model.ErrNotFound, node)
		}
		return i, nil
	}

	source, err := index(conn.Ingress.PortId)
	if err != nil {
		return model.ConnectionRequest{}, err
	}
	destination, err := index(conn.Egress.PortId)
	if err != nil {
		return model.ConnectionRequest{}, err
	}

	return model.ConnectionRequest{
		Id:          conn.Id,
		Source:      source,
		Destination: destination,
		Bandwidth:   conn.Bandwidth,
		Latency:     conn.Latency,
	}, nil
}

// TrafficMatrix maps connections onto requests, in order.
func (m *Manager) TrafficMatrix(conns []model.Connection) (model.TrafficMatrix, error) {
	tm := make(model.TrafficMatrix, 0, len(conns))
	for _, conn := range conns {
		request, err := m.Request(conn)
		if err != nil {
			return nil, fmt.Errorf("connection %s: %w", conn.Id, err)
		}
		tm = append(tm, request)
	}

	return tm, nil
}

// Solve routes tm jointly over the current graph without committing.
func (m *Manager) Solve(ctx context.Context, tm model.TrafficMatrix) (*model.ConnectionSolution, *solver.Result, error) {
	solution, res, err := m.te.Solve(ctx, m.graph, tm)
	if err != nil {
		return nil, nil, err
	}

	statistics.Change(statistics.Solves, 1)
	if !res.IsOptimal() {
		statistics.Change(statistics.Infeasible, 1)
	}

	return solution, res, nil
}

// Commit subtracts a solution's bandwidth from the graph.
func (m *Manager) Commit(solution *model.ConnectionSolution) error {
	return m.graph.UpdateGraph(solution)
}

// Breakdown splits a routed path into per-domain segments. An empty path
// stands for a connection whose ports sit on one node.
func (m *Manager) Breakdown(conn model.Connection, path []model.ConnectionPath) ([]model.DomainSegment, error) {
	if len(path) > 0 {
		segments, err := breakdown.Breakdown(path, conn.Ingress.PortId, conn.Egress.PortId, m.resolver)
		if err != nil {
			statistics.Change(statistics.Breakdowns, 1)
		}
		return segments, err
	}

	node, err := m.topo.NodeOfPort(conn.Ingress.PortId)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrBreakdownResolution, err)
	}
	domain, err := m.topo.DomainOf(node)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrBreakdownResolution, err)
	}

	return []model.DomainSegment{{
		Domain:      domain,
		IngressPort: conn.Ingress.PortId,
		EgressPort:  conn.Egress.PortId,
	}}, nil
}

// Reserve tags every segment inside one VLAN transaction. Each inner
// ingress first tries the label its upstream segment left on. On failure
// every label taken so far is given back.
func (m *Manager) Reserve(conn model.Connection, segments []model.DomainSegment) (*vlan.Txn, error) {
	tx := m.vlans.Begin()

	previous := model.AnyVlan
	for i := range segments {
		segment := &segments[i]

		ingress := vlan.Request{Port: segment.IngressPort, Prefer: previous}
		if i == 0 {
			ingress = vlan.Request{Port: segment.IngressPort, Tag: conn.Ingress.Vlan}
		}
		egress := vlan.Request{Port: segment.EgressPort}
		if i == len(segments)-1 {
			egress.Tag = conn.Egress.Vlan
		}

		in, out, err := tx.ReserveSegment(segment.Domain, ingress, egress)
		if err != nil {
			if errors.Is(err, model.ErrVlanExhausted) {
				statistics.Change(statistics.VlanExhausted, 1)
			}
			statistics.Change(statistics.Rollbacks, 1)
			if rerr := tx.Rollback(); rerr != nil {
				log.Error().Err(rerr).Msgf("rollback of connection %s was incomplete", conn.Id)
			}
			return nil, fmt.Errorf("connection %s, domain %s: %w", conn.Id, segment.Domain, err)
		}

		segment.IngressVlan, segment.EgressVlan = in, out
		previous = out
	}

	return tx, nil
}

// Tag renders tagged segments in their outward form.
func (m *Manager) Tag(conn model.Connection, segments []model.DomainSegment) *model.TaggedBreakdown {
	ret := &model.TaggedBreakdown{
		ConnectionId: conn.Id,
		Domains:      make(map[string]model.TaggedDomain, len(segments)),
	}

	for _, segment := range segments {
		ret.Domains[segment.Domain] = model.TaggedDomain{
			Name:              m.segmentName(segment),
			DynamicBackupPath: true,
			UniA: model.UNI{
				Tag:    model.Tag{Value: segment.IngressVlan, Type: model.VlanTagType},
				PortId: segment.IngressPort,
			},
			UniZ: model.UNI{
				Tag:    model.Tag{Value: segment.EgressVlan, Type: model.VlanTagType},
				PortId: segment.EgressPort,
			},
		}
		ret.Order = append(ret.Order, segment.Domain)
	}

	return ret
}

func (m *Manager) segmentName(segment model.DomainSegment) string {
	name := segment.Domain
	if domain, ok := m.topo.Domain(segment.Domain); ok && domain.Name != "" {
		name = domain.Name
	}

	return fmt.Sprintf("%s_vlan_%d_%d", strings.ReplaceAll(name, ":", "_"), segment.IngressVlan, segment.EgressVlan)
}

// accept runs breakdown, tagging and the graph commit of one routed
// connection. The lock must be held.
func (m *Manager) accept(conn model.Connection, request model.ConnectionRequest, path []model.ConnectionPath) (*model.TaggedBreakdown, error) {
	segments, err := m.Breakdown(conn, path)
	if err != nil {
		return nil, err
	}

	tx, err := m.Reserve(conn, segments)
	if err != nil {
		return nil, err
	}

	if len(path) > 0 {
		solution := model.NewConnectionSolution()
		solution.Add(request, path)
		if err := m.Commit(solution); err != nil {
			statistics.Change(statistics.Rollbacks, 1)
			if rerr := tx.Rollback(); rerr != nil {
				log.Error().Err(rerr).Msgf("rollback of connection %s was incomplete", conn.Id)
			}
			return nil, err
		}
	}

	tagged := m.Tag(conn, segments)
	m.connections[conn.Id] = &provisioned{
		connection:   conn,
		request:      request,
		path:         path,
		breakdown:    tagged,
		reservations: tx.Commit(),
	}
	statistics.Change(statistics.Provisioned, 1)
	log.Info().Msgf("provisioned connection %s over %d domains", conn.Id, len(segments))

	return tagged, nil
}

func (m *Manager) checkNew(conn model.Connection) error {
	if err := conn.Validate(); err != nil {
		return err
	}
	if _, ok := m.connections[conn.Id]; ok {
		return fmt.Errorf("%w: connection %s is already provisioned", model.ErrValidation, conn.Id)
	}
	return nil
}

// Provision routes one connection and returns its tagged breakdown. On any
// failure the graph and the VLAN table are left as they were.
func (m *Manager) Provision(ctx context.Context, conn model.Connection) (*model.TaggedBreakdown, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.checkNew(conn); err != nil {
		return nil, err
	}

	request, err := m.Request(conn)
	if err != nil {
		return nil, err
	}

	if request.Source == request.Destination {
		return m.accept(conn, request, nil)
	}

	solution, res, err := m.Solve(ctx, model.TrafficMatrix{request})
	if err != nil {
		return nil, err
	}
	path, ok := solution.Path(request)
	if !ok {
		return nil, fmt.Errorf("%w for connection %s: %v", ErrNoRoute, conn.Id, res.Status)
	}

	return m.accept(conn, request, path)
}

// ProvisionAll routes a batch of connections together. Batches of at least
// partition_threshold connections are split into groups with the
// configured policy and solved group by group on a copy of the graph;
// smaller ones are solved jointly. Every connection is then accepted on its
// own, so one failing connection does not hold back the others. An id
// lands in exactly one of the two returned maps.
func (m *Manager) ProvisionAll(ctx context.Context, conns []model.Connection) (map[string]*model.TaggedBreakdown, map[string]error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	done := make(map[string]*model.TaggedBreakdown)
	failed := make(map[string]error)

	// An id given more than once is ambiguous; none of its copies is routed.
	counts := make(map[string]int, len(conns))
	for _, conn := range conns {
		counts[conn.Id]++
	}

	byId := make(map[string]model.Connection)
	var tm model.TrafficMatrix
	for _, conn := range conns {
		if counts[conn.Id] > 1 {
			failed[conn.Id] = fmt.Errorf("%w: connection %s appears %d times in the batch",
				model.ErrValidation, conn.Id, counts[conn.Id])
			continue
		}
		if err := m.checkNew(conn); err != nil {
			failed[conn.Id] = err
			continue
		}
		request, err := m.Request(conn)
		if err != nil {
			failed[conn.Id] = err
			continue
		}
		byId[conn.Id] = conn

		if request.Source == request.Destination {
			tagged, err := m.accept(conn, request, nil)
			if err != nil {
				failed[conn.Id] = err
			} else {
				done[conn.Id] = tagged
			}
			continue
		}
		tm = append(tm, request)
	}

	if len(tm) == 0 {
		return done, failed
	}

	solution, err := m.solveBatch(ctx, tm)
	if err != nil {
		for _, request := range tm {
			failed[request.Id] = err
		}
		return done, failed
	}

	for _, request := range tm {
		conn := byId[request.Id]
		path, ok := solution.Path(request)
		if !ok {
			failed[request.Id] = fmt.Errorf("%w for connection %s", ErrNoRoute, request.Id)
			continue
		}

		tagged, err := m.accept(conn, request, path)
		if err != nil {
			failed[request.Id] = err
			continue
		}
		done[request.Id] = tagged
	}

	return done, failed
}

func (m *Manager) solveBatch(ctx context.Context, tm model.TrafficMatrix) (*model.ConnectionSolution, error) {
	if m.cfg.Partition == config.PartitionNone || len(tm) < m.cfg.PartitionThreshold {
		solution, _, err := m.Solve(ctx, tm)
		return solution, err
	}

	// The heuristic commits group by group; only accepted connections may
	// reach the shared graph.
	result, err := m.te.SolveGroups(ctx, m.graph.Clone(), tm, m.cfg.Partition, m.cfg.Groups)
	if err != nil {
		return nil, err
	}

	for _, group := range result.Groups {
		statistics.Change(statistics.Solves, 1)
		if group.Status != solver.Optimal {
			statistics.Change(statistics.Infeasible, 1)
		}
	}
	if len(result.Unrouted) > 0 {
		log.Warn().Msgf("%d of %d requests left unrouted by the %s heuristic",
			len(result.Unrouted), len(tm), m.cfg.Partition)
	}

	return result.Solution, nil
}

// Release gives back the labels of a provisioned connection. Bandwidth is
// not returned to the graph.
func (m *Manager) Release(id string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	p, ok := m.connections[id]
	if !ok {
		return fmt.Errorf("%w: connection %s", model.ErrNotFound, id)
	}

	err := vlan.Release(m.vlans, p.reservations)
	delete(m.connections, id)
	statistics.Change(statistics.Released, 1)
	log.Info().Msgf("released connection %s", id)

	return err
}

// Connection returns the breakdown of a provisioned connection.
func (m *Manager) Connection(id string) (*model.TaggedBreakdown, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	p, ok := m.connections[id]
	if !ok {
		return nil, false
	}
	return p.breakdown, true
}
