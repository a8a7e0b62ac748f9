package breakdown

import (
	"fmt"
	"testing"

	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver: node i lives in domains[i]; the link between u and v uses
// port "u>v" on u and "v>u" on v.
type fakeResolver struct {
	domains []string
	broken  map[[2]int]bool
}

func (r *fakeResolver) DomainOf(node int) (string, error) {
	if node < 0 || node >= len(r.domains) {
		return "", fmt.Errorf("%w: node %d", model.ErrNotFound, node)
	}
	return r.domains[node], nil
}

func (r *fakeResolver) PortByLink(u, v int) (model.LinkPorts, error) {
	if r.broken[[2]int{u, v}] {
		return model.LinkPorts{}, fmt.Errorf("%w: link %d-%d", model.ErrNotFound, u, v)
	}
	return model.LinkPorts{
		NodeA: fmt.Sprint(u),
		PortA: fmt.Sprintf("%d>%d", u, v),
		NodeB: fmt.Sprint(v),
		PortB: fmt.Sprintf("%d>%d", v, u),
	}, nil
}

func hops(nodes ...int) []model.ConnectionPath {
	ret := []model.ConnectionPath{}
	for i := 0; i+1 < len(nodes); i++ {
		ret = append(ret, model.ConnectionPath{Source: nodes[i], Destination: nodes[i+1]})
	}
	return ret
}

func TestBreakdown(t *testing.T) {
	res := &fakeResolver{domains: []string{"A", "A", "B", "B", "C"}}

	t.Run("ThreeDomains", func(t *testing.T) {
		segments, err := Breakdown(hops(0, 1, 2, 3, 4), "in", "out", res)
		require.NoError(t, err)
		require.Len(t, segments, 3)

		assert.Equal(t, "A", segments[0].Domain)
		assert.Equal(t, "in", segments[0].IngressPort)
		assert.Equal(t, "1>2", segments[0].EgressPort)
		assert.Equal(t, hops(0, 1, 2), segments[0].Hops)

		assert.Equal(t, "B", segments[1].Domain)
		assert.Equal(t, "2>1", segments[1].IngressPort)
		assert.Equal(t, "3>4", segments[1].EgressPort)
		assert.Equal(t, hops(1, 2, 3, 4), segments[1].Hops)

		assert.Equal(t, "C", segments[2].Domain)
		assert.Equal(t, "4>3", segments[2].IngressPort)
		assert.Equal(t, "out", segments[2].EgressPort)
		assert.Equal(t, hops(3, 4), segments[2].Hops)
	})

	t.Run("SingleDomain", func(t *testing.T) {
		segments, err := Breakdown(hops(0, 1), "in", "out", res)
		require.NoError(t, err)
		require.Len(t, segments, 1)
		assert.Equal(t, model.DomainSegment{
			Domain:      "A",
			IngressPort: "in",
			EgressPort:  "out",
			Hops:        hops(0, 1),
		}, segments[0])
	})

	t.Run("EndsOnBoundary", func(t *testing.T) {
		segments, err := Breakdown(hops(0, 1, 2), "in", "out", res)
		require.NoError(t, err)
		require.Len(t, segments, 2)
		assert.Equal(t, "B", segments[1].Domain)
		assert.Equal(t, "2>1", segments[1].IngressPort)
		assert.Equal(t, "out", segments[1].EgressPort)
	})

	t.Run("Reversed", func(t *testing.T) {
		segments, err := Breakdown(hops(4, 3, 2, 1, 0), "in", "out", res)
		require.NoError(t, err)
		require.Len(t, segments, 3)
		assert.Equal(t, []string{"C", "B", "A"}, []string{segments[0].Domain, segments[1].Domain, segments[2].Domain})
		assert.Equal(t, "4>3", segments[0].EgressPort)
		assert.Equal(t, "3>4", segments[1].IngressPort)
	})
}

func TestBreakdownFailures(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		_, err := Breakdown(nil, "in", "out", &fakeResolver{})
		assert.ErrorIs(t, err, model.ErrBreakdownResolution)
	})

	t.Run("UnknownNode", func(t *testing.T) {
		_, err := Breakdown(hops(0, 1, 9), "in", "out", &fakeResolver{domains: []string{"A", "A"}})
		assert.ErrorIs(t, err, model.ErrBreakdownResolution)
	})

	t.Run("UnknownLink", func(t *testing.T) {
		res := &fakeResolver{
			domains: []string{"A", "B"},
			broken:  map[[2]int]bool{{0, 1}: true},
		}
		_, err := Breakdown(hops(0, 1), "in", "out", res)
		assert.ErrorIs(t, err, model.ErrBreakdownResolution)
	})

	t.Run("DomainRevisited", func(t *testing.T) {
		res := &fakeResolver{domains: []string{"A", "B", "A"}}
		_, err := Breakdown(hops(0, 1, 2), "in", "out", res)
		assert.ErrorIs(t, err, model.ErrBreakdownResolution)
	})
}
