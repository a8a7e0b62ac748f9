package alg

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/amsen20/sdx-pce/internal/config"
	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/internal/model/testing_tool"
	"github.com/amsen20/sdx-pce/internal/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oneToTen holds ten requests with bandwidth 10, 9, ..., 1.
func oneToTen() model.TrafficMatrix {
	tm := model.TrafficMatrix{}
	for bw := 10; bw >= 1; bw-- {
		tm = append(tm, model.ConnectionRequest{
			Id:          fmt.Sprintf("r%d", bw),
			Source:      0,
			Destination: 1,
			Bandwidth:   float64(bw),
		})
	}
	return tm
}

func ids(groups ...model.TrafficMatrix) []string {
	ret := []string{}
	for _, group := range groups {
		for _, r := range group {
			ret = append(ret, r.Id)
		}
	}
	sort.Strings(ret)
	return ret
}

func TestPartitionCompleteness(t *testing.T) {
	tm := oneToTen()
	for _, policy := range []string{config.PartitionLinear, config.PartitionGeometric, config.PartitionKK} {
		for k := 1; k <= 4; k++ {
			t.Run(fmt.Sprintf("%s/%d", policy, k), func(t *testing.T) {
				groups, err := Partition(policy, tm, k)
				require.NoError(t, err)
				assert.Len(t, groups, k)
				assert.Equal(t, ids(tm), ids(groups...))
			})
		}
	}
}

func TestPartitionLinear(t *testing.T) {
	groups := PartitionLinear(oneToTen(), 3)

	assert.Len(t, groups[0], 4)
	assert.Len(t, groups[1], 3)
	assert.Len(t, groups[2], 3)
	assert.Equal(t, []string{"r1", "r2", "r3", "r4"}, ids(groups[0]))
	assert.Equal(t, 27.0, groups[2].TotalBandwidth())
}

func TestPartitionGeometric(t *testing.T) {
	groups := PartitionGeometric(oneToTen(), 3)

	// [1, 3.25) [3.25, 10) [10, 28)
	assert.Equal(t, []string{"r1", "r2", "r3"}, ids(groups[0]))
	assert.Equal(t, []string{"r4", "r5", "r6", "r7", "r8", "r9"}, ids(groups[1]))
	assert.Equal(t, []string{"r10"}, ids(groups[2]))

	t.Run("FourBuckets", func(t *testing.T) {
		// [1, 2.125) [2.125, 5.5) [5.5, 14.5) [14.5, 37)
		groups := PartitionGeometric(oneToTen(), 4)
		assert.Equal(t, []string{"r1", "r2"}, ids(groups[0]))
		assert.Equal(t, []string{"r3", "r4", "r5"}, ids(groups[1]))
		assert.Equal(t, []string{"r10", "r6", "r7", "r8", "r9"}, ids(groups[2]))
		assert.Empty(t, groups[3])
	})

	t.Run("EqualBandwidth", func(t *testing.T) {
		tm := model.TrafficMatrix{
			{Id: "a", Source: 0, Destination: 1, Bandwidth: 2},
			{Id: "b", Source: 0, Destination: 1, Bandwidth: 2},
		}
		groups := PartitionGeometric(tm, 3)
		assert.Len(t, groups[0], 2)
		assert.Empty(t, groups[1])
		assert.Empty(t, groups[2])
	})
}

func TestPartitionKK(t *testing.T) {
	tm := oneToTen()
	kk := PartitionKK(tm, 3)

	kkReport := Report(config.PartitionKK, kk)
	linearReport := Report(config.PartitionLinear, PartitionLinear(tm, 3))
	assert.LessOrEqual(t, kkReport.Spread, linearReport.Spread)
	assert.Equal(t, 17.0, linearReport.Spread)

	for i := 1; i < len(kk); i++ {
		assert.LessOrEqual(t, kk[i-1].TotalBandwidth(), kk[i].TotalBandwidth())
	}
	assert.InDelta(t, 55.0/3, kkReport.MeanBandwidth, 1e-9)
}

func TestPartitionPolicies(t *testing.T) {
	tm := oneToTen()

	groups, err := Partition(config.PartitionNone, tm, 3)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, tm, groups[0])

	_, err = Partition(config.PartitionKK, tm, 0)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = Partition("round-robin", tm, 2)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestSolveGroups(t *testing.T) {
	ts := newTESolver()

	t.Run("AllRouted", func(t *testing.T) {
		g := testing_tool.Ring(5, 10, 10).Graph()
		tm := model.TrafficMatrix{
			testing_tool.Request(g, "a", "n0", "n2", 2, 0),
			testing_tool.Request(g, "b", "n1", "n3", 3, 0),
			testing_tool.Request(g, "c", "n2", "n4", 4, 0),
			testing_tool.Request(g, "d", "n0", "n3", 1, 0),
		}

		result, err := ts.SolveGroups(context.Background(), g, tm, config.PartitionKK, 2)
		require.NoError(t, err)
		assert.Empty(t, result.Unrouted)
		assert.Len(t, result.Solution.Paths, 4)
		assert.Len(t, result.Report.Groups, 2)
		require.Len(t, result.Groups, 2)
		assert.Equal(t, 1, result.Groups[0].Index)
		assert.Equal(t, 0, result.Groups[1].Index)

		for _, request := range tm {
			path, ok := result.Solution.Path(request)
			require.True(t, ok)
			checkPath(t, g, request, path)
		}

		var committed float64
		for _, e := range g.Edges() {
			assert.GreaterOrEqual(t, e.Residual, config.MinResidualBandwidth)
			committed += e.Capacity - e.Residual
		}
		assert.Greater(t, committed, 0.0)
	})

	t.Run("FailedGroupIsSkipped", func(t *testing.T) {
		g := testing_tool.Ring(5, 10, 10).Graph()
		small := testing_tool.Request(g, "small", "n0", "n1", 1, 0)
		huge := testing_tool.Request(g, "huge", "n0", "n2", 20, 0)

		result, err := ts.SolveGroups(context.Background(), g, model.TrafficMatrix{small, huge}, config.PartitionLinear, 2)
		require.NoError(t, err)

		assert.Equal(t, model.TrafficMatrix{huge}, result.Unrouted)
		_, ok := result.Solution.Path(small)
		assert.True(t, ok)
		_, ok = result.Solution.Path(huge)
		assert.False(t, ok)
	})

	t.Run("LastGroupGoesFirst", func(t *testing.T) {
		g := line(2).Graph()
		small := testing_tool.Request(g, "small", "n0", "n1", 3, 0)
		big := testing_tool.Request(g, "big", "n0", "n1", 8, 0)

		// linear puts small in group 0 and big in group 1; only one fits
		result, err := ts.SolveGroups(context.Background(), g, model.TrafficMatrix{small, big}, config.PartitionLinear, 2)
		require.NoError(t, err)

		_, ok := result.Solution.Path(big)
		assert.True(t, ok)
		assert.Equal(t, model.TrafficMatrix{small}, result.Unrouted)
		require.Len(t, result.Groups, 2)
		assert.Equal(t, 1, result.Groups[0].Index)
		assert.Equal(t, solver.Optimal, result.Groups[0].Status)
		assert.Equal(t, solver.Infeasible, result.Groups[1].Status)

		e, _ := g.Edge(0, 1)
		assert.Equal(t, 2.0, e.Residual)
	})
}
