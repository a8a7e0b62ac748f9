// Package sim replays a scenario of connection arrivals and releases
// against one TE manager per partition policy, so the policies can be
// compared on the same topology.
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/amsen20/sdx-pce/internal/config"
	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/internal/temanager"
	"github.com/amsen20/sdx-pce/internal/topology"
	"github.com/amsen20/sdx-pce/logging"
	"github.com/amsen20/sdx-pce/statistics"
)

var log = logging.Get()

type ConnectionDesc struct {
	Id        string  `json:"id"`
	Ingress   string  `json:"ingress"`
	Egress    string  `json:"egress"`
	Bandwidth float64 `json:"bandwidth"`
	Latency   float64 `json:"latency"`
}

type Frame struct {
	NewConnections      []ConnectionDesc `json:"new_connections"`
	ReleasedConnections []string         `json:"released_connections"`
}

// Report holds one value per frame.
type Report struct {
	Accepted []int     `json:"accepted"`
	Rejected []int     `json:"rejected"`
	Usage    []float64 `json:"bandwidth_usage"`
}

func LoadScenario(path string) ([]*Frame, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var frames []*Frame
	if err := json.Unmarshal(bytes, &frames); err != nil {
		return nil, fmt.Errorf("%w: scenario %s: %v", model.ErrValidation, path, err)
	}

	return frames, nil
}

func (d ConnectionDesc) connection() model.Connection {
	return model.Connection{
		Id:        d.Id,
		Ingress:   model.Endpoint{PortId: d.Ingress, Vlan: model.AnyVlan},
		Egress:    model.Endpoint{PortId: d.Egress, Vlan: model.AnyVlan},
		Bandwidth: d.Bandwidth,
		Latency:   d.Latency,
	}
}

// usage is the share of total capacity that is committed.
func usage(m *temanager.Manager) float64 {
	var capacity, residual float64
	for _, e := range m.Graph().Edges() {
		capacity += e.Capacity
		residual += e.Residual
	}
	if capacity == 0 {
		return 0
	}

	return (capacity - residual) / capacity
}

// Replay runs frames on a fresh manager for every policy.
func Replay(ctx context.Context, cfg config.GeneralConfig, topo *topology.Topology, frames []*Frame, policies []string) (map[string]*Report, error) {
	reports := make(map[string]*Report, len(policies))

	for _, policy := range policies {
		statistics.Init()

		policyConfig := cfg
		policyConfig.Partition = policy
		if err := policyConfig.Validate(); err != nil {
			return nil, err
		}

		m, err := temanager.New(policyConfig, topo, nil)
		if err != nil {
			return nil, err
		}

		report := &Report{}
		for ind, frame := range frames {
			log.Info().Msgf("[%s] processing frame: %d, length: %d", policy, ind, len(frame.NewConnections))

			for _, id := range frame.ReleasedConnections {
				if err := m.Release(id); err != nil {
					log.Warn().Err(err).Msgf("[%s] could not release %s", policy, id)
				}
			}

			conns := make([]model.Connection, 0, len(frame.NewConnections))
			for _, desc := range frame.NewConnections {
				conns = append(conns, desc.connection())
			}
			done, failed := m.ProvisionAll(ctx, conns)

			report.Accepted = append(report.Accepted, len(done))
			report.Rejected = append(report.Rejected, len(failed))
			report.Usage = append(report.Usage, usage(m))
		}

		reports[policy] = report
		log.Info().Msgf("[%s] %s", policy, statistics.Display())
	}

	return reports, nil
}

func WriteReport(path string, reports map[string]*Report) error {
	content, err := json.MarshalIndent(reports, "", " ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, content, 0644)
}
