package topology

import (
	"fmt"

	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/internal/network"
)

// GraphResolver answers domain and port lookups for graph node indexes.
type GraphResolver struct {
	topo  *Topology
	graph *network.Graph
}

func NewGraphResolver(topo *Topology, graph *network.Graph) *GraphResolver {
	return &GraphResolver{topo: topo, graph: graph}
}

func (r *GraphResolver) nodeId(index int) (string, error) {
	node, ok := r.graph.Node(index)
	if !ok {
		return "", fmt.Errorf("%w: node index %d", model.ErrNotFound, index)
	}
	return node.Id, nil
}

func (r *GraphResolver) DomainOf(index int) (string, error) {
	id, err := r.nodeId(index)
	if err != nil {
		return "", err
	}
	return r.topo.DomainOf(id)
}

func (r *GraphResolver) PortByLink(u, v int) (model.LinkPorts, error) {
	idU, err := r.nodeId(u)
	if err != nil {
		return model.LinkPorts{}, err
	}
	idV, err := r.nodeId(v)
	if err != nil {
		return model.LinkPorts{}, err
	}

	return r.topo.PortByLink(idU, idV)
}
