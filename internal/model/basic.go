package model

import "fmt"

// Node is a vertex of the merged graph. Index is local to the graph,
// Id points back to the node in its owning domain topology.
type Node struct {
	Index  int
	Id     string
	Domain string
}

// ConnectionRequest is one commodity of a traffic matrix. It is used as
// a map key, so it must stay comparable.
type ConnectionRequest struct {
	Id          string
	Source      int
	Destination int
	Bandwidth   float64
	Latency     float64
}

func (r ConnectionRequest) String() string {
	return fmt.Sprintf("%s(%d->%d bw=%g lat=%g)", r.Id, r.Source, r.Destination, r.Bandwidth, r.Latency)
}

// TrafficMatrix order fixes the variable layout of the integer program,
// nothing else.
type TrafficMatrix []ConnectionRequest

func (tm TrafficMatrix) TotalBandwidth() float64 {
	var total float64
	for _, r := range tm {
		total += r.Bandwidth
	}

	return total
}

// Clone returns a copy that can be reordered freely.
func (tm TrafficMatrix) Clone() TrafficMatrix {
	ret := make(TrafficMatrix, len(tm))
	copy(ret, tm)

	return ret
}

// ConnectionPath is one directed hop.
type ConnectionPath struct {
	Source      int
	Destination int
}

// Nodes returns the node sequence visited by a walk of hops.
func Nodes(path []ConnectionPath) []int {
	if len(path) == 0 {
		return nil
	}

	ret := make([]int, 0, len(path)+1)
	ret = append(ret, path[0].Source)
	for _, hop := range path {
		ret = append(ret, hop.Destination)
	}

	return ret
}
