package main

import (
	"context"
	"flag"
	"os"

	"github.com/amsen20/sdx-pce/internal/config"
	"github.com/amsen20/sdx-pce/internal/connector"
	"github.com/amsen20/sdx-pce/internal/gui"
	"github.com/amsen20/sdx-pce/internal/temanager"
	"github.com/amsen20/sdx-pce/internal/topology"
	"github.com/amsen20/sdx-pce/logging"
	"github.com/amsen20/sdx-pce/sim"
)

var log = logging.Get()

func main() {
	config_file_path := flag.String("config_file", "config.yaml", "Path to config file")
	scenario_path := flag.String("scenario", "", "Replay a scenario file instead of serving")
	report_path := flag.String("report", "report.json", "Where the scenario report goes")
	flag.Parse()

	cfg, err := config.Load(*config_file_path)
	if err != nil {
		log.Err(err).Msgf("could not load config")
		os.Exit(1)
	}
	config.PCEGeneralConfig = cfg

	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		log.Err(err).Msg("log level is not recognized")
		os.Exit(1)
	}

	c, err := connector.New(cfg)
	if err != nil {
		log.Err(err).Msg("could not init the connector")
		os.Exit(1)
	}

	pceContext := context.Background()

	topo, err := c.LoadTopology(pceContext)
	if err != nil {
		log.Err(err).Msg("could not load the topology")
		os.Exit(1)
	}

	if *scenario_path != "" {
		if err := replay(pceContext, cfg, topo, *scenario_path, *report_path); err != nil {
			log.Err(err).Msg("could not replay the scenario")
			os.Exit(1)
		}
		return
	}

	manager, err := temanager.New(cfg, topo, nil)
	if err != nil {
		log.Err(err).Msg("could not initiate TE manager")
		os.Exit(1)
	}

	bridge := manager.Run(pceContext)

	gui.SetUp(manager, c, bridge)
	if err := gui.Run(cfg.ListenAddress); err != nil {
		log.Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

func replay(ctx context.Context, cfg config.GeneralConfig, topo *topology.Topology, scenario, report string) error {
	frames, err := sim.LoadScenario(scenario)
	if err != nil {
		return err
	}

	policies := []string{
		config.PartitionNone,
		config.PartitionLinear,
		config.PartitionGeometric,
		config.PartitionKK,
	}
	reports, err := sim.Replay(ctx, cfg, topo, frames, policies)
	if err != nil {
		return err
	}

	return sim.WriteReport(report, reports)
}
