package temanager

import (
	"context"
	"sort"

	"github.com/amsen20/sdx-pce/internal/network"
	"github.com/amsen20/sdx-pce/internal/vlan"
	"github.com/amsen20/sdx-pce/statistics"
	"gopkg.in/yaml.v3"
)

type LinkState struct {
	U        string  `json:"u" yaml:"u"`
	V        string  `json:"v" yaml:"v"`
	Capacity float64 `json:"capacity" yaml:"capacity"`
	Residual float64 `json:"residual" yaml:"residual"`
	Latency  float64 `json:"latency" yaml:"latency"`
	Weight   float64 `json:"weight" yaml:"weight"`
}

// State is a point in time copy of what the manager holds.
type State struct {
	Links       []LinkState                          `json:"links" yaml:"links"`
	Vlans       map[string]map[string]vlan.PortUsage `json:"vlans" yaml:"vlans"`
	Connections []string                             `json:"connections" yaml:"connections"`
	Statistics  map[string]int                       `json:"statistics" yaml:"statistics"`
}

func (s *State) String() string {
	bytes, _ := yaml.Marshal(s)
	return string(bytes[:])
}

func (m *Manager) State() *State {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.state(m.graph.Snapshot())
}

func (m *Manager) state(snapshot network.Snapshot) *State {
	ret := &State{
		Vlans:      m.vlans.Snapshot(),
		Statistics: statistics.Snapshot(),
	}

	for _, e := range snapshot.Edges {
		u, _ := m.graph.Node(e.U)
		v, _ := m.graph.Node(e.V)
		ret.Links = append(ret.Links, LinkState{
			U:        u.Id,
			V:        v.Id,
			Capacity: e.Capacity,
			Residual: e.Residual,
			Latency:  e.Latency,
			Weight:   e.Weight,
		})
	}

	for id := range m.connections {
		ret.Connections = append(ret.Connections, id)
	}
	sort.Strings(ret.Connections)

	return ret
}

// Bridge lets a front end ask for the state without touching the manager:
// send on StateRequestStream, read the answer from StateStream.
type Bridge struct {
	StateRequestStream chan<- struct{}
	StateStream        <-chan *State
}

// Run serves state requests until ctx is done.
func (m *Manager) Run(ctx context.Context) Bridge {
	requests := make(chan struct{})
	states := make(chan *State)

	go func() {
		defer close(states)
		for {
			select {
			case <-ctx.Done():
				return
			case <-requests:
				select {
				case states <- m.State():
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return Bridge{
		StateRequestStream: requests,
		StateStream:        states,
	}
}
