// Because it is a testing package, no errors are returned,
// all problems cause a panic.

package testing_tool

import (
	"fmt"

	"github.com/amsen20/sdx-pce/internal/network"
	"github.com/amsen20/sdx-pce/internal/topology"
)

// DefaultLabels is the label range of every port unless Labels says otherwise.
const DefaultLabels = "100-199"

type LinkDesc struct {
	A         string
	B         string
	Bandwidth float64
	Latency   float64
	Cost      float64
}

type Builder struct {
	topo   topology.Topology
	labels []string
}

func New() *Builder {
	return &Builder{
		labels: []string{DefaultLabels},
	}
}

// Labels sets the label ranges of ports added from now on.
func (builder *Builder) Labels(ranges ...string) *Builder {
	builder.labels = ranges
	return builder
}

func (builder *Builder) Domain(id string, nodes ...string) *Builder {
	builder.topo.Domains = append(builder.topo.Domains, topology.Domain{Id: id, Name: id})
	for _, node := range nodes {
		builder.topo.Nodes = append(builder.topo.Nodes, topology.Node{Id: node, Domain: id})
	}

	return builder
}

// Port adds a client facing port on node.
func (builder *Builder) Port(node, id string) *Builder {
	labels := make([]string, len(builder.labels))
	copy(labels, builder.labels)

	builder.topo.Ports = append(builder.topo.Ports, topology.Port{
		Id:         id,
		Node:       node,
		LabelRange: labels,
	})

	return builder
}

// LinkPort names the port on node a facing node b.
func LinkPort(a, b string) string {
	return fmt.Sprintf("%s:%s", a, b)
}

// Link joins two nodes, adding a port on each end.
func (builder *Builder) Link(desc LinkDesc) *Builder {
	builder.Port(desc.A, LinkPort(desc.A, desc.B))
	builder.Port(desc.B, LinkPort(desc.B, desc.A))

	builder.topo.Links = append(builder.topo.Links, topology.Link{
		Id:        fmt.Sprintf("%s-%s", desc.A, desc.B),
		Ports:     []string{LinkPort(desc.A, desc.B), LinkPort(desc.B, desc.A)},
		Bandwidth: desc.Bandwidth,
		Latency:   desc.Latency,
		Cost:      desc.Cost,
	})

	return builder
}

func (builder *Builder) Links(descs ...LinkDesc) *Builder {
	for _, desc := range descs {
		builder.Link(desc)
	}
	return builder
}

// Topology returns an indexed copy of what was built so far.
func (builder *Builder) Topology() *topology.Topology {
	topo := &topology.Topology{
		Domains: append([]topology.Domain(nil), builder.topo.Domains...),
		Nodes:   append([]topology.Node(nil), builder.topo.Nodes...),
		Ports:   append([]topology.Port(nil), builder.topo.Ports...),
		Links:   append([]topology.Link(nil), builder.topo.Links...),
	}
	if err := topo.Index(); err != nil {
		panic(err)
	}

	return topo
}

// Graph builds the routing graph of the topology with hop count weights.
func (builder *Builder) Graph() *network.Graph {
	g, err := builder.Topology().Graph(network.HopCount())
	if err != nil {
		panic(err)
	}

	return g
}
