// Package connector is where the PCE meets the outside world: it loads the
// merged topology and hands tagged breakdowns to the domain controllers.
package connector

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/amsen20/sdx-pce/internal/config"
	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/internal/topology"
	"github.com/amsen20/sdx-pce/logging"
)

var log = logging.Get()

type Connector interface {
	LoadTopology(ctx context.Context) (*topology.Topology, error)

	// Publish hands a provisioned breakdown on.
	Publish(ctx context.Context, breakdown *model.TaggedBreakdown) error
	// Withdraw takes a released connection back.
	Withdraw(ctx context.Context, connectionId string) error
}

// FileConnector reads the topology from a YAML or JSON file and keeps the
// published breakdowns in memory.
type FileConnector struct {
	path string

	lock      sync.Mutex
	published map[string]*model.TaggedBreakdown
}

func NewFileConnector(path string) *FileConnector {
	return &FileConnector{
		path:      path,
		published: make(map[string]*model.TaggedBreakdown),
	}
}

func (c *FileConnector) LoadTopology(ctx context.Context) (*topology.Topology, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		log.Err(err).Send()

		return nil, fmt.Errorf("could not read topology file %s", c.path)
	}

	topo, err := topology.Parse(data)
	if err != nil {
		return nil, err
	}
	log.Info().Msgf("loaded topology from %s: %d domains, %d nodes, %d links",
		c.path, len(topo.Domains), len(topo.Nodes), len(topo.Links))

	return topo, nil
}

func (c *FileConnector) Publish(ctx context.Context, breakdown *model.TaggedBreakdown) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.published[breakdown.ConnectionId] = breakdown
	log.Debug().Msgf("published breakdown:\n%s", breakdown)

	return nil
}

func (c *FileConnector) Withdraw(ctx context.Context, connectionId string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.published[connectionId]; !ok {
		return fmt.Errorf("%w: connection %s was never published", model.ErrNotFound, connectionId)
	}
	delete(c.published, connectionId)

	return nil
}

func (c *FileConnector) Published(connectionId string) (*model.TaggedBreakdown, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	breakdown, ok := c.published[connectionId]
	return breakdown, ok
}

// New picks the connector configured by cfg.
func New(cfg config.GeneralConfig) (Connector, error) {
	switch cfg.ConnectorKind {
	case "file":
		return NewFileConnector(cfg.TopologyFile), nil
	case "kubernetes":
		return NewKubeConnector(cfg.Kubeconfig, cfg.Namespace, cfg.ConfigMap)
	}

	return nil, fmt.Errorf("connector kind %q is not recognized", cfg.ConnectorKind)
}
