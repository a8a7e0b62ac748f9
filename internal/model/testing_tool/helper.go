package testing_tool

import (
	"fmt"

	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/internal/network"
)

// Ring builds a single domain "ring" with nodes n0..n(k-1), every link with
// the given bandwidth and latency, and a client port "p<i>" on every node.
func Ring(k int, bandwidth, latency float64) *Builder {
	builder := New()

	nodes := make([]string, k)
	for i := range nodes {
		nodes[i] = NodeName(i)
	}
	builder.Domain("ring", nodes...)

	for i := 0; i < k; i++ {
		builder.Port(nodes[i], ClientPort(i))
	}
	for i := 0; i < k; i++ {
		builder.Link(LinkDesc{
			A:         nodes[i],
			B:         nodes[(i+1)%k],
			Bandwidth: bandwidth,
			Latency:   latency,
		})
	}

	return builder
}

func NodeName(i int) string {
	return fmt.Sprintf("n%d", i)
}

func ClientPort(i int) string {
	return fmt.Sprintf("p%d", i)
}

// Hops turns a node id walk into hops over g.
func Hops(g *network.Graph, nodes ...string) []model.ConnectionPath {
	if len(nodes) < 2 {
		panic("a walk needs at least two nodes")
	}

	indexes := make([]int, len(nodes))
	for i, node := range nodes {
		index, ok := g.NodeIndex(node)
		if !ok {
			panic(fmt.Sprintf("there is no node named %s", node))
		}
		indexes[i] = index
	}

	hops := make([]model.ConnectionPath, 0, len(nodes)-1)
	for i := 0; i+1 < len(indexes); i++ {
		hops = append(hops, model.ConnectionPath{Source: indexes[i], Destination: indexes[i+1]})
	}

	return hops
}

// Request builds a request between two named nodes of g.
func Request(g *network.Graph, id, source, destination string, bandwidth, latency float64) model.ConnectionRequest {
	src, ok := g.NodeIndex(source)
	if !ok {
		panic(fmt.Sprintf("there is no node named %s", source))
	}
	dst, ok := g.NodeIndex(destination)
	if !ok {
		panic(fmt.Sprintf("there is no node named %s", destination))
	}

	return model.ConnectionRequest{
		Id:          id,
		Source:      src,
		Destination: dst,
		Bandwidth:   bandwidth,
		Latency:     latency,
	}
}
