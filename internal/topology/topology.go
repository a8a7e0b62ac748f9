// Package topology describes the merged multi-domain topology the PCE is
// handed: domains, their nodes and ports, the links between ports and the
// VLAN label ranges every port advertises. Documents are YAML; JSON works
// too since it is a subset.
package topology

import (
	"fmt"

	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/internal/network"
	"github.com/amsen20/sdx-pce/internal/vlan"
	"gopkg.in/yaml.v3"
)

type Domain struct {
	Id   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

type Node struct {
	Id     string `yaml:"id" json:"id"`
	Domain string `yaml:"domain" json:"domain"`
}

type Port struct {
	Id         string   `yaml:"id" json:"id"`
	Node       string   `yaml:"node" json:"node"`
	LabelRange []string `yaml:"label_range" json:"label_range"`
}

type Link struct {
	Id        string   `yaml:"id" json:"id"`
	Ports     []string `yaml:"ports" json:"ports"`
	Bandwidth float64  `yaml:"bandwidth" json:"bandwidth"`
	// Residual starts at Bandwidth when left out.
	Residual float64 `yaml:"residual_bandwidth" json:"residual_bandwidth"`
	Latency  float64 `yaml:"latency" json:"latency"`
	// Cost is the static routing cost, 1 when left out.
	Cost float64 `yaml:"cost" json:"cost"`
}

type Topology struct {
	Domains []Domain `yaml:"domains" json:"domains"`
	Nodes   []Node   `yaml:"nodes" json:"nodes"`
	Ports   []Port   `yaml:"ports" json:"ports"`
	Links   []Link   `yaml:"links" json:"links"`

	domains map[string]*Domain
	nodes   map[string]*Node
	ports   map[string]*Port
	// links by the unordered pair of node ids they join.
	links map[[2]string]*Link
}

// Parse decodes and indexes a topology document.
func Parse(data []byte) (*Topology, error) {
	topo := &Topology{}
	if err := yaml.Unmarshal(data, topo); err != nil {
		return nil, fmt.Errorf("%w: could not parse topology: %v", model.ErrValidation, err)
	}

	if err := topo.Index(); err != nil {
		return nil, err
	}

	return topo, nil
}

func nodePair(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// Index validates the document and builds its lookup tables. It has to be
// called again after the exported slices are changed.
func (t *Topology) Index() error {
	t.domains = make(map[string]*Domain)
	t.nodes = make(map[string]*Node)
	t.ports = make(map[string]*Port)
	t.links = make(map[[2]string]*Link)

	for i := range t.Domains {
		domain := &t.Domains[i]
		if domain.Id == "" {
			return fmt.Errorf("%w: domain without id", model.ErrValidation)
		}
		if _, ok := t.domains[domain.Id]; ok {
			return fmt.Errorf("%w: duplicate domain %s", model.ErrValidation, domain.Id)
		}
		t.domains[domain.Id] = domain
	}

	for i := range t.Nodes {
		node := &t.Nodes[i]
		if _, ok := t.domains[node.Domain]; !ok {
			return fmt.Errorf("%w: node %s belongs to unknown domain %q", model.ErrValidation, node.Id, node.Domain)
		}
		if _, ok := t.nodes[node.Id]; ok {
			return fmt.Errorf("%w: duplicate node %s", model.ErrValidation, node.Id)
		}
		t.nodes[node.Id] = node
	}

	for i := range t.Ports {
		port := &t.Ports[i]
		if _, ok := t.nodes[port.Node]; !ok {
			return fmt.Errorf("%w: port %s is on unknown node %q", model.ErrValidation, port.Id, port.Node)
		}
		if _, ok := t.ports[port.Id]; ok {
			return fmt.Errorf("%w: duplicate port %s", model.ErrValidation, port.Id)
		}
		if _, err := vlan.ExpandRanges(port.LabelRange); err != nil {
			return fmt.Errorf("port %s: %w", port.Id, err)
		}
		t.ports[port.Id] = port
	}

	for i := range t.Links {
		link := &t.Links[i]
		if len(link.Ports) != 2 {
			return fmt.Errorf("%w: link %s has %d ports, expected 2", model.ErrValidation, link.Id, len(link.Ports))
		}

		a, ok := t.ports[link.Ports[0]]
		if !ok {
			return fmt.Errorf("%w: link %s uses unknown port %q", model.ErrValidation, link.Id, link.Ports[0])
		}
		b, ok := t.ports[link.Ports[1]]
		if !ok {
			return fmt.Errorf("%w: link %s uses unknown port %q", model.ErrValidation, link.Id, link.Ports[1])
		}

		k := nodePair(a.Node, b.Node)
		if _, ok := t.links[k]; ok {
			return fmt.Errorf("%w: link %s duplicates the link between %s and %s",
				model.ErrValidation, link.Id, a.Node, b.Node)
		}
		t.links[k] = link
	}

	return nil
}

func (t *Topology) Domain(id string) (Domain, bool) {
	domain, ok := t.domains[id]
	if !ok {
		return Domain{}, false
	}
	return *domain, true
}

// DomainOf returns the domain owning the node with the given id.
func (t *Topology) DomainOf(nodeId string) (string, error) {
	node, ok := t.nodes[nodeId]
	if !ok {
		return "", fmt.Errorf("%w: node %s", model.ErrNotFound, nodeId)
	}
	return node.Domain, nil
}

// NodeOfPort returns the id of the node a port sits on.
func (t *Topology) NodeOfPort(portId string) (string, error) {
	port, ok := t.ports[portId]
	if !ok {
		return "", fmt.Errorf("%w: port %s", model.ErrNotFound, portId)
	}
	return port.Node, nil
}

// PortByLink finds the link between two nodes and returns its ports, PortA
// on nodeA and PortB on nodeB.
func (t *Topology) PortByLink(nodeA, nodeB string) (model.LinkPorts, error) {
	link, ok := t.links[nodePair(nodeA, nodeB)]
	if !ok {
		return model.LinkPorts{}, fmt.Errorf("%w: no link between %s and %s", model.ErrNotFound, nodeA, nodeB)
	}

	portA, portB := t.ports[link.Ports[0]], t.ports[link.Ports[1]]
	if portA.Node != nodeA {
		portA, portB = portB, portA
	}

	return model.LinkPorts{
		NodeA: portA.Node,
		PortA: portA.Id,
		NodeB: portB.Node,
		PortB: portB.Id,
	}, nil
}

// LabelRanges returns, per domain and port, the advertised label ranges.
func (t *Topology) LabelRanges() map[string]map[string][]string {
	ret := make(map[string]map[string][]string)
	for _, domain := range t.Domains {
		ret[domain.Id] = make(map[string][]string)
	}
	for _, port := range t.Ports {
		domain := t.nodes[port.Node].Domain
		ret[domain][port.Id] = port.LabelRange
	}

	return ret
}

// Graph builds the routing graph. Node indexes follow the order of Nodes.
func (t *Topology) Graph(policy network.WeightPolicy) (*network.Graph, error) {
	g := network.NewGraph(policy)
	for _, node := range t.Nodes {
		g.AddNode(node.Id, node.Domain)
	}

	for _, link := range t.Links {
		u, _ := g.NodeIndex(t.ports[link.Ports[0]].Node)
		v, _ := g.NodeIndex(t.ports[link.Ports[1]].Node)

		if err := g.AddEdge(u, v, link.Bandwidth, link.Residual, link.Latency); err != nil {
			return nil, fmt.Errorf("link %s: %w", link.Id, err)
		}
		if link.Cost > 0 {
			if err := g.SetStaticCost(u, v, link.Cost); err != nil {
				return nil, fmt.Errorf("link %s: %w", link.Id, err)
			}
		}
	}

	return g, nil
}

func (t *Topology) String() string {
	bytes, _ := yaml.Marshal(t)
	return string(bytes[:])
}
