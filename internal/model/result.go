package model

import (
	"gopkg.in/yaml.v3"
)

// ConnectionSolution maps every routed request to its ordered hops.
// Order keeps the traffic-matrix order of the routed requests.
type ConnectionSolution struct {
	Paths map[ConnectionRequest][]ConnectionPath
	Order []ConnectionRequest
	Cost  float64
}

func NewConnectionSolution() *ConnectionSolution {
	return &ConnectionSolution{
		Paths: make(map[ConnectionRequest][]ConnectionPath),
	}
}

func (s *ConnectionSolution) Add(request ConnectionRequest, path []ConnectionPath) {
	if _, ok := s.Paths[request]; !ok {
		s.Order = append(s.Order, request)
	}
	s.Paths[request] = path
}

// Merge adds other's paths and cost to s.
func (s *ConnectionSolution) Merge(other *ConnectionSolution) {
	for _, request := range other.Order {
		s.Add(request, other.Paths[request])
	}
	s.Cost += other.Cost
}

func (s *ConnectionSolution) IsEmpty() bool {
	return len(s.Paths) == 0
}

func (s *ConnectionSolution) Path(request ConnectionRequest) ([]ConnectionPath, bool) {
	path, ok := s.Paths[request]
	return path, ok
}

// DomainSegment is the part of a path that stays inside one domain.
// IngressVlan and EgressVlan are zero until the segment is tagged.
type DomainSegment struct {
	Domain      string
	IngressPort string
	EgressPort  string
	Hops        []ConnectionPath

	IngressVlan int
	EgressVlan  int
}

// LinkPorts is the answer of a link-to-port lookup: the port of each end.
type LinkPorts struct {
	NodeA string
	PortA string
	NodeB string
	PortB string
}

// VlanTagType is the tag type of an 802.1Q label.
const VlanTagType = 1

type Tag struct {
	Value int `json:"value" yaml:"value"`
	Type  int `json:"tag_type" yaml:"tag_type"`
}

type UNI struct {
	Tag    Tag    `json:"tag" yaml:"tag"`
	PortId string `json:"port_id" yaml:"port_id"`
}

type TaggedDomain struct {
	Name              string `json:"name" yaml:"name"`
	DynamicBackupPath bool   `json:"dynamic_backup_path" yaml:"dynamic_backup_path"`
	UniA              UNI    `json:"uni_a" yaml:"uni_a"`
	UniZ              UNI    `json:"uni_z" yaml:"uni_z"`
}

// TaggedBreakdown is the per-domain, tag-assigned form of one connection.
// Order lists the domains in path order.
type TaggedBreakdown struct {
	ConnectionId string                  `json:"connection_id" yaml:"connection_id"`
	Domains      map[string]TaggedDomain `json:"domains" yaml:"domains"`
	Order        []string                `json:"order" yaml:"order"`
}

func (b *TaggedBreakdown) String() string {
	bytes, _ := yaml.Marshal(b)
	return string(bytes[:])
}
