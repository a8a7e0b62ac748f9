package model

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AnyVlan asks for whichever label is free first.
const AnyVlan = 0

// Highest usable 802.1Q label.
const MaxVlan = 4095

type Endpoint struct {
	PortId string
	Vlan   int
}

// Connection is the canonical form of an end-to-end request. Latency 0
// means the request puts no bound on latency.
type Connection struct {
	Id        string
	Ingress   Endpoint
	Egress    Endpoint
	Bandwidth float64
	Latency   float64
}

// ConnectionShape names the wire shape a connection was decoded from.
type ConnectionShape int

const (
	LegacyShape ConnectionShape = iota
	TypedShape
)

func (s ConnectionShape) String() string {
	switch s {
	case LegacyShape:
		return "legacy"
	case TypedShape:
		return "typed"
	}
	return "unknown"
}

type legacyPort struct {
	Id   string `yaml:"id"`
	Name string `yaml:"name"`
}

type legacyConnection struct {
	Id          string     `yaml:"id"`
	IngressPort legacyPort `yaml:"ingress_port"`
	EgressPort  legacyPort `yaml:"egress_port"`
	Bandwidth   float64    `yaml:"bandwidth"`
	Latency     float64    `yaml:"latency"`
}

type typedEndpoint struct {
	PortId string `yaml:"port_id"`
	Vlan   string `yaml:"vlan"`
}

type typedMetric struct {
	Value float64 `yaml:"value"`
}

type typedConnection struct {
	Id         string          `yaml:"id"`
	Endpoints  []typedEndpoint `yaml:"endpoints"`
	QoSMetrics struct {
		MinBw    typedMetric `yaml:"min_bw"`
		MaxDelay typedMetric `yaml:"max_delay"`
	} `yaml:"qos_metrics"`
}

// DecodeConnection accepts a legacy or a typed request document (YAML or
// JSON) and returns its canonical form together with the detected shape.
func DecodeConnection(data []byte) (Connection, ConnectionShape, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return Connection{}, 0, err
	}

	return decodeNode(doc)
}

// DecodeConnections accepts a sequence of request documents, shapes may be
// mixed.
func DecodeConnections(data []byte) ([]Connection, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, err
	}
	if doc.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: expected a list of connections", ErrValidation)
	}

	ret := make([]Connection, 0, len(doc.Content))
	for i, item := range doc.Content {
		conn, _, err := decodeNode(item)
		if err != nil {
			return nil, fmt.Errorf("connection %d: %w", i, err)
		}
		ret = append(ret, conn)
	}

	return ret, nil
}

func parseDocument(data []byte) (*yaml.Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: could not parse connection: %v", ErrValidation, err)
	}

	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		return root.Content[0], nil
	}
	return &root, nil
}

func decodeNode(doc *yaml.Node) (Connection, ConnectionShape, error) {
	if doc.Kind != yaml.MappingNode {
		return Connection{}, 0, fmt.Errorf("%w: connection should be a mapping", ErrValidation)
	}

	keys := make(map[string]bool)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		keys[doc.Content[i].Value] = true
	}

	switch {
	case keys["endpoints"]:
		var typed typedConnection
		if err := doc.Decode(&typed); err != nil {
			return Connection{}, TypedShape, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		conn, err := typed.canonical()
		return conn, TypedShape, err
	case keys["ingress_port"]:
		var legacy legacyConnection
		if err := doc.Decode(&legacy); err != nil {
			return Connection{}, LegacyShape, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		conn, err := legacy.canonical()
		return conn, LegacyShape, err
	}

	return Connection{}, 0, fmt.Errorf("%w: connection has neither endpoints nor ingress_port", ErrValidation)
}

func (l *legacyConnection) canonical() (Connection, error) {
	conn := Connection{
		Id:        l.Id,
		Ingress:   Endpoint{PortId: l.IngressPort.Id, Vlan: AnyVlan},
		Egress:    Endpoint{PortId: l.EgressPort.Id, Vlan: AnyVlan},
		Bandwidth: l.Bandwidth,
		Latency:   l.Latency,
	}

	return conn, conn.Validate()
}

func (t *typedConnection) canonical() (Connection, error) {
	if len(t.Endpoints) != 2 {
		return Connection{}, fmt.Errorf("%w: expected 2 endpoints, got %d", ErrValidation, len(t.Endpoints))
	}

	ingressVlan, err := ParseVlan(t.Endpoints[0].Vlan)
	if err != nil {
		return Connection{}, err
	}
	egressVlan, err := ParseVlan(t.Endpoints[1].Vlan)
	if err != nil {
		return Connection{}, err
	}

	conn := Connection{
		Id:        t.Id,
		Ingress:   Endpoint{PortId: t.Endpoints[0].PortId, Vlan: ingressVlan},
		Egress:    Endpoint{PortId: t.Endpoints[1].PortId, Vlan: egressVlan},
		Bandwidth: t.QoSMetrics.MinBw.Value,
		Latency:   t.QoSMetrics.MaxDelay.Value,
	}

	return conn, conn.Validate()
}

// ParseVlan turns "any" (or empty) into AnyVlan and a number into a label.
func ParseVlan(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "any") {
		return AnyVlan, nil
	}

	vlan, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: vlan %q is neither a number nor \"any\"", ErrValidation, value)
	}
	if vlan < 1 || vlan > MaxVlan {
		return 0, fmt.Errorf("%w: vlan %d out of range", ErrValidation, vlan)
	}

	return vlan, nil
}

func (c Connection) Validate() error {
	if c.Id == "" {
		return fmt.Errorf("%w: connection has no id", ErrValidation)
	}
	if c.Ingress.PortId == "" || c.Egress.PortId == "" {
		return fmt.Errorf("%w: connection %s misses an endpoint port", ErrValidation, c.Id)
	}
	if c.Bandwidth <= 0 {
		return fmt.Errorf("%w: connection %s asks for non-positive bandwidth %g", ErrValidation, c.Id, c.Bandwidth)
	}
	if c.Latency < 0 {
		return fmt.Errorf("%w: connection %s asks for negative latency %g", ErrValidation, c.Id, c.Latency)
	}

	return nil
}
