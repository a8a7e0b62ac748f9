package alg

import (
	"fmt"
	"math"
	"sort"

	"github.com/amsen20/sdx-pce/internal/config"
	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/internal/utils"
	"github.com/emirpasic/gods/trees/binaryheap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Every policy works on the requests sorted ascending by bandwidth, ties
// kept in traffic-matrix order, and returns exactly k groups (some may be
// empty). Groups are meant to be solved from the last to the first.

func byBandwidth(r model.ConnectionRequest) float64 {
	return r.Bandwidth
}

func sortedRequests(tm model.TrafficMatrix) model.TrafficMatrix {
	sorted := tm.Clone()
	sortAscending(sorted, byBandwidth)

	return sorted
}

// PartitionLinear cuts the sorted requests into k contiguous chunks; the
// first len(tm) mod k chunks get one extra request.
func PartitionLinear(tm model.TrafficMatrix, k int) []model.TrafficMatrix {
	sorted := sortedRequests(tm)
	groups := make([]model.TrafficMatrix, k)

	size, extra := len(sorted)/k, len(sorted)%k
	start := 0
	for i := 0; i < k; i++ {
		end := start + size
		if i < extra {
			end++
		}
		groups[i] = sorted[start:end:end]
		start = end
	}

	return groups
}

// PartitionGeometric buckets requests into k bandwidth intervals whose
// widths double from the low end: interval i spans
// [min + iΔ/2^(k-i), min + (i+1)Δ/2^(k-i-1)). Interval i ends where i+1
// starts and the last one ends at min + kΔ, so every request lands in one.
func PartitionGeometric(tm model.TrafficMatrix, k int) []model.TrafficMatrix {
	sorted := sortedRequests(tm)
	groups := make([]model.TrafficMatrix, k)
	if len(sorted) == 0 {
		return groups
	}

	low := sorted[0].Bandwidth
	delta := sorted[len(sorted)-1].Bandwidth - low

	lower := func(i int) float64 {
		return low + float64(i)*delta/math.Pow(2, float64(k-i))
	}

	for _, request := range sorted {
		bucket := 0
		if delta > 0 {
			for bucket < k-1 && request.Bandwidth >= lower(bucket+1) {
				bucket++
			}
		}
		groups[bucket] = append(groups[bucket], request)
	}

	return groups
}

type kkSubset struct {
	sum   float64
	items []int
}

type kkPartition struct {
	subsets []kkSubset
	seq     int
}

func (p *kkPartition) spread() float64 {
	return p.subsets[0].sum - p.subsets[len(p.subsets)-1].sum
}

func (p *kkPartition) normalize() {
	sortDescending(p.subsets, func(s kkSubset) float64 { return s.sum })
}

// PartitionKK balances the bandwidth sum of the k groups with the
// Karmarkar-Karp largest differencing method: every request starts as a
// k-tuple holding it alone, and the two tuples with the largest spread are
// repeatedly merged, largest subset of one with the smallest of the other.
func PartitionKK(tm model.TrafficMatrix, k int) []model.TrafficMatrix {
	sorted := sortedRequests(tm)
	groups := make([]model.TrafficMatrix, k)
	if len(sorted) == 0 {
		return groups
	}

	comparator := func(a, b interface{}) int {
		partA := a.(*kkPartition)
		partB := b.(*kkPartition)

		spreadA, spreadB := partA.spread(), partB.spread()
		if spreadA > spreadB {
			// A comes out first
			return -1
		}
		if spreadA < spreadB {
			return 1
		}
		return partA.seq - partB.seq
	}

	heap := binaryheap.NewWith(comparator)
	seq := 0
	for i := len(sorted) - 1; i >= 0; i-- {
		p := &kkPartition{subsets: make([]kkSubset, k), seq: seq}
		p.subsets[0] = kkSubset{sum: sorted[i].Bandwidth, items: []int{i}}
		heap.Push(p)
		seq++
	}

	for heap.Size() > 1 {
		first, _ := heap.Pop()
		second, _ := heap.Pop()
		a := first.(*kkPartition)
		b := second.(*kkPartition)

		merged := &kkPartition{subsets: make([]kkSubset, k), seq: seq}
		for i := 0; i < k; i++ {
			other := b.subsets[k-1-i]
			items := make([]int, 0, len(a.subsets[i].items)+len(other.items))
			items = append(items, a.subsets[i].items...)
			items = append(items, other.items...)
			merged.subsets[i] = kkSubset{sum: a.subsets[i].sum + other.sum, items: items}
		}
		merged.normalize()
		heap.Push(merged)
		seq++
	}

	last, _ := heap.Pop()
	final := last.(*kkPartition)

	// Smallest sum first, so the heaviest group is solved first.
	for i := 0; i < k; i++ {
		subset := final.subsets[k-1-i]
		sort.Ints(subset.items)
		for _, item := range subset.items {
			groups[i] = append(groups[i], sorted[item])
		}
	}

	return groups
}

// Partition splits tm into k groups with the named policy.
func Partition(policy string, tm model.TrafficMatrix, k int) ([]model.TrafficMatrix, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: can not split into %d groups", model.ErrValidation, k)
	}

	switch policy {
	case config.PartitionNone:
		return []model.TrafficMatrix{tm.Clone()}, nil
	case config.PartitionLinear:
		return PartitionLinear(tm, k), nil
	case config.PartitionGeometric:
		return PartitionGeometric(tm, k), nil
	case config.PartitionKK:
		return PartitionKK(tm, k), nil
	}

	return nil, fmt.Errorf("%w: unknown partition policy %q", model.ErrValidation, policy)
}

type GroupReport struct {
	Requests  int
	Bandwidth float64
}

// PartitionReport summarizes how balanced a partition is.
type PartitionReport struct {
	Policy string
	Groups []GroupReport

	MeanBandwidth   float64
	StdDevBandwidth float64
	// Spread is the largest group bandwidth sum minus the smallest.
	Spread float64
}

func Report(policy string, groups []model.TrafficMatrix) PartitionReport {
	report := PartitionReport{Policy: policy}
	if len(groups) == 0 {
		return report
	}

	sums := make([]float64, len(groups))
	for i, group := range groups {
		sums[i] = group.TotalBandwidth()
		report.Groups = append(report.Groups, GroupReport{
			Requests:  len(group),
			Bandwidth: sums[i],
		})
	}

	if len(sums) > 1 {
		report.MeanBandwidth, report.StdDevBandwidth = stat.MeanStdDev(sums, nil)
	} else {
		report.MeanBandwidth = sums[0]
	}
	report.Spread = utils.Spread(mat.NewVecDense(len(sums), sums))

	return report
}
