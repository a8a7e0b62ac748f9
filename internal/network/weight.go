package network

import (
	"fmt"
	"math/rand"

	"github.com/amsen20/sdx-pce/internal/config"
)

// WeightPolicy derives the routing cost of an edge from its attributes.
type WeightPolicy interface {
	Name() string
	Weight(e *Edge) float64
}

type hopPolicy struct{}

func (hopPolicy) Name() string           { return config.WeightHop }
func (hopPolicy) Weight(e *Edge) float64 { return 1 }

type inverseBandwidthPolicy struct{}

func (inverseBandwidthPolicy) Name() string { return config.WeightInverseBandwidth }

// Residual is floored above zero, so the division is always defined.
func (inverseBandwidthPolicy) Weight(e *Edge) float64 { return 1 / e.Residual }

type latencyPolicy struct{}

func (latencyPolicy) Name() string           { return config.WeightLatency }
func (latencyPolicy) Weight(e *Edge) float64 { return e.Latency }

type staticPolicy struct{}

func (staticPolicy) Name() string           { return config.WeightStatic }
func (staticPolicy) Weight(e *Edge) float64 { return e.StaticCost }

// randomPolicy is hop count plus a small seeded jitter that breaks ties
// between equal-length paths reproducibly.
type randomPolicy struct {
	rng *rand.Rand
}

func (p *randomPolicy) Name() string { return config.WeightRandom }

func (p *randomPolicy) Weight(e *Edge) float64 {
	return 1 + p.rng.Float64()*1e-3
}

func HopCount() WeightPolicy         { return hopPolicy{} }
func InverseBandwidth() WeightPolicy { return inverseBandwidthPolicy{} }
func Latency() WeightPolicy          { return latencyPolicy{} }
func Static() WeightPolicy           { return staticPolicy{} }

func Random(seed int64) WeightPolicy {
	return &randomPolicy{rng: rand.New(rand.NewSource(seed))}
}

// PolicyByName maps a configured policy name to its implementation.
func PolicyByName(name string, seed int64) (WeightPolicy, error) {
	switch name {
	case config.WeightHop:
		return HopCount(), nil
	case config.WeightInverseBandwidth:
		return InverseBandwidth(), nil
	case config.WeightLatency:
		return Latency(), nil
	case config.WeightStatic:
		return Static(), nil
	case config.WeightRandom:
		return Random(seed), nil
	}

	return nil, fmt.Errorf("unknown weight policy %q", name)
}
