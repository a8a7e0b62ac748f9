package topology

import (
	"os"
	"testing"

	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/internal/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoDomains = `
domains:
  - id: "urn:a"
    name: "a.net"
  - id: "urn:b"
nodes:
  - {id: a1, domain: "urn:a"}
  - {id: a2, domain: "urn:a"}
  - {id: b1, domain: "urn:b"}
ports:
  - {id: a1-client, node: a1, label_range: ["100-110"]}
  - {id: a1-a2, node: a1, label_range: ["100-110"]}
  - {id: a2-a1, node: a2, label_range: ["100-110"]}
  - {id: a2-b1, node: a2, label_range: ["100-110", "300"]}
  - {id: b1-a2, node: b1, label_range: ["100-110"]}
links:
  - {id: l1, ports: [a1-a2, a2-a1], bandwidth: 100, latency: 5}
  - {id: l2, ports: [b1-a2, a2-b1], bandwidth: 40, residual_bandwidth: 30, latency: 20, cost: 3}
`

func TestParse(t *testing.T) {
	topo, err := Parse([]byte(twoDomains))
	require.NoError(t, err)

	domain, err := topo.DomainOf("a2")
	require.NoError(t, err)
	assert.Equal(t, "urn:a", domain)

	node, err := topo.NodeOfPort("b1-a2")
	require.NoError(t, err)
	assert.Equal(t, "b1", node)

	_, err = topo.DomainOf("zz")
	assert.ErrorIs(t, err, model.ErrNotFound)

	t.Run("PortByLinkIsOriented", func(t *testing.T) {
		ports, err := topo.PortByLink("a2", "b1")
		require.NoError(t, err)
		assert.Equal(t, model.LinkPorts{NodeA: "a2", PortA: "a2-b1", NodeB: "b1", PortB: "b1-a2"}, ports)

		ports, err = topo.PortByLink("b1", "a2")
		require.NoError(t, err)
		assert.Equal(t, "b1-a2", ports.PortA)

		_, err = topo.PortByLink("a1", "b1")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("LabelRanges", func(t *testing.T) {
		ranges := topo.LabelRanges()
		assert.Equal(t, []string{"100-110", "300"}, ranges["urn:a"]["a2-b1"])
		assert.Len(t, ranges["urn:a"], 4)
		assert.Len(t, ranges["urn:b"], 1)
	})

	t.Run("Graph", func(t *testing.T) {
		g, err := topo.Graph(network.Static())
		require.NoError(t, err)
		assert.Equal(t, 3, g.NumNodes())
		assert.Equal(t, 2, g.NumEdges())

		e, ok := g.Edge(1, 2)
		require.True(t, ok)
		assert.Equal(t, 40.0, e.Capacity)
		assert.Equal(t, 30.0, e.Residual)
		assert.Equal(t, 3.0, e.Weight)

		e, _ = g.Edge(0, 1)
		assert.Equal(t, 1.0, e.Weight)
	})

	t.Run("Resolver", func(t *testing.T) {
		g, err := topo.Graph(nil)
		require.NoError(t, err)
		r := NewGraphResolver(topo, g)

		domain, err := r.DomainOf(2)
		require.NoError(t, err)
		assert.Equal(t, "urn:b", domain)

		ports, err := r.PortByLink(1, 2)
		require.NoError(t, err)
		assert.Equal(t, "a2-b1", ports.PortA)

		_, err = r.DomainOf(5)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"UnknownDomain": `
domains: [{id: a}]
nodes: [{id: n, domain: b}]
`,
		"DuplicateNode": `
domains: [{id: a}]
nodes: [{id: n, domain: a}, {id: n, domain: a}]
`,
		"PortOnUnknownNode": `
domains: [{id: a}]
nodes: [{id: n, domain: a}]
ports: [{id: p, node: m}]
`,
		"BadLabelRange": `
domains: [{id: a}]
nodes: [{id: n, domain: a}]
ports: [{id: p, node: n, label_range: ["9-1"]}]
`,
		"ThreePortLink": `
domains: [{id: a}]
nodes: [{id: n, domain: a}, {id: m, domain: a}]
ports: [{id: p, node: n}, {id: q, node: m}, {id: r, node: m}]
links: [{id: l, ports: [p, q, r], bandwidth: 1}]
`,
		"NotYaml": `domains: [`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestSampleTopology(t *testing.T) {
	data, err := os.ReadFile("../../topology.yaml")
	require.NoError(t, err)

	topo, err := Parse(data)
	require.NoError(t, err)

	g, err := topo.Graph(network.HopCount())
	require.NoError(t, err)
	assert.Equal(t, len(topo.Nodes), g.NumNodes())
	assert.Equal(t, len(topo.Links), g.NumEdges())
}
