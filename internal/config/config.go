package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type GeneralConfig struct {
	Name          string `yaml:"name"`
	ConnectorKind string `yaml:"connector"`
	TopologyFile  string `yaml:"topology_file"`
	Kubeconfig    string `yaml:"kubeconfig"`
	Namespace     string `yaml:"namespace"`
	ConfigMap     string `yaml:"config_map"`

	Objective    string `yaml:"objective"`
	WeightPolicy string `yaml:"weight_policy"`
	CapacityMode string `yaml:"capacity_mode"`

	Partition          string `yaml:"partition"`
	Groups             int    `yaml:"groups"`
	PartitionThreshold int    `yaml:"partition_threshold"`

	SolverTimeout   int   `yaml:"solver_timeout"` // ms
	SolverNodeLimit int   `yaml:"solver_node_limit"`
	MaxPathHops     int   `yaml:"max_path_hops"`
	Seed            int64 `yaml:"seed"`

	ListenAddress string `yaml:"listen_address"`
	LogLevel      string `yaml:"log_level"`
}

var PCEGeneralConfig GeneralConfig

// Objective modes.
const (
	ObjectiveCost        = "cost"
	ObjectiveLoadBalance = "load-balance"
)

// Weight policies.
const (
	WeightHop              = "hop"
	WeightInverseBandwidth = "inverse-bandwidth"
	WeightLatency          = "latency"
	WeightStatic           = "static"
	WeightRandom           = "random"
)

// Capacity modes.
const (
	CapacityPerLink = "link"
	CapacityPerArc  = "arc"
)

// Partition policies.
const (
	PartitionNone      = "none"
	PartitionLinear    = "linear"
	PartitionGeometric = "geometric"
	PartitionKK        = "kk"
)

// General constants:
const (
	DefaultMaxPathHops = 10
	// branch and bound nodes per solve, 0 is unlimited.
	DefaultSolverNodeLimit = 2000000
	// residual bandwidth never drops below this.
	MinResidualBandwidth = 0.01
)

func Default() GeneralConfig {
	return GeneralConfig{
		Name:               "sdx-pce",
		ConnectorKind:      "file",
		TopologyFile:       "topology.yaml",
		Namespace:          "default",
		ConfigMap:          "sdx-topology",
		Objective:          ObjectiveCost,
		WeightPolicy:       WeightHop,
		CapacityMode:       CapacityPerLink,
		Partition:          PartitionNone,
		Groups:             1,
		PartitionThreshold: 8,
		SolverTimeout:      30000,
		SolverNodeLimit:    DefaultSolverNodeLimit,
		MaxPathHops:        DefaultMaxPathHops,
		Seed:               1,
		ListenAddress:      ":8080",
		LogLevel:           "debug",
	}
}

// Load reads a YAML file on top of Default. Unknown keys are rejected.
func Load(path string) (GeneralConfig, error) {
	cfg := Default()

	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.UnmarshalStrict(yamlFile, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func (c *GeneralConfig) Validate() error {
	oneOf := func(key, value string, allowed ...string) error {
		for _, a := range allowed {
			if value == a {
				return nil
			}
		}
		return fmt.Errorf("%s: %q is not one of %v", key, value, allowed)
	}

	if err := oneOf("connector", c.ConnectorKind, "file", "kubernetes"); err != nil {
		return err
	}
	if err := oneOf("objective", c.Objective, ObjectiveCost, ObjectiveLoadBalance); err != nil {
		return err
	}
	if err := oneOf("weight_policy", c.WeightPolicy,
		WeightHop, WeightInverseBandwidth, WeightLatency, WeightStatic, WeightRandom); err != nil {
		return err
	}
	if err := oneOf("capacity_mode", c.CapacityMode, CapacityPerLink, CapacityPerArc); err != nil {
		return err
	}
	if err := oneOf("partition", c.Partition,
		PartitionNone, PartitionLinear, PartitionGeometric, PartitionKK); err != nil {
		return err
	}

	if c.Groups < 1 {
		return fmt.Errorf("groups should be at least 1, got %d", c.Groups)
	}
	if c.MaxPathHops < 1 {
		return fmt.Errorf("max_path_hops should be at least 1, got %d", c.MaxPathHops)
	}
	if c.SolverTimeout < 0 {
		return fmt.Errorf("solver_timeout can not be negative")
	}
	if c.SolverNodeLimit < 0 {
		return fmt.Errorf("solver_node_limit can not be negative")
	}

	return nil
}
