// Package breakdown splits a routed path into per-domain segments and finds
// the ports each segment enters and leaves its domain through.
package breakdown

import (
	"fmt"

	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/logging"
)

var log = logging.Get()

// Resolver is the topology lookup a breakdown needs.
type Resolver interface {
	// DomainOf returns the domain of a graph node.
	DomainOf(node int) (string, error)
	// PortByLink returns the ports of the link between u and v, PortA on u.
	PortByLink(u, v int) (model.LinkPorts, error)
}

type group struct {
	domain string
	hops   []model.ConnectionPath
}

// Breakdown walks hops and returns one segment per run of same-domain
// hops, in path order. An inter-domain hop closes the segment it leaves
// and opens the next one. The first segment enters through ingressPort,
// the last leaves through egressPort, and every boundary in between is
// resolved from the physical link the inter-domain hop uses.
//
// Any lookup failure fails the whole breakdown, wrapped in
// model.ErrBreakdownResolution.
func Breakdown(hops []model.ConnectionPath, ingressPort, egressPort string, res Resolver) ([]model.DomainSegment, error) {
	if len(hops) == 0 {
		return nil, fmt.Errorf("%w: empty path", model.ErrBreakdownResolution)
	}

	groups, err := groupByDomain(hops, res)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, g := range groups {
		if seen[g.domain] {
			return nil, fmt.Errorf("%w: path enters domain %s twice", model.ErrBreakdownResolution, g.domain)
		}
		seen[g.domain] = true
	}

	segments := make([]model.DomainSegment, len(groups))
	var nextIngress string
	for i, g := range groups {
		segment := model.DomainSegment{
			Domain: g.domain,
			Hops:   g.hops,
		}

		if i == 0 {
			segment.IngressPort = ingressPort
		} else {
			segment.IngressPort = nextIngress
		}

		if i == len(groups)-1 {
			segment.EgressPort = egressPort
		} else {
			boundary := g.hops[len(g.hops)-1]
			ports, err := res.PortByLink(boundary.Source, boundary.Destination)
			if err != nil {
				return nil, fmt.Errorf("%w: boundary %d->%d leaving %s: %v",
					model.ErrBreakdownResolution, boundary.Source, boundary.Destination, g.domain, err)
			}
			segment.EgressPort = ports.PortA
			nextIngress = ports.PortB
		}

		segments[i] = segment
	}

	log.Debug().Msgf("path of %d hops crosses %d domains", len(hops), len(segments))

	return segments, nil
}

func groupByDomain(hops []model.ConnectionPath, res Resolver) ([]group, error) {
	domainOf := func(node int) (string, error) {
		domain, err := res.DomainOf(node)
		if err != nil {
			return "", fmt.Errorf("%w: %v", model.ErrBreakdownResolution, err)
		}
		return domain, nil
	}

	var groups []group
	var current []model.ConnectionPath
	for i, hop := range hops {
		from, err := domainOf(hop.Source)
		if err != nil {
			return nil, err
		}
		to, err := domainOf(hop.Destination)
		if err != nil {
			return nil, err
		}

		current = append(current, hop)
		last := i == len(hops)-1

		if from == to {
			if last {
				groups = append(groups, group{domain: from, hops: current})
			}
			continue
		}

		groups = append(groups, group{domain: from, hops: current})
		current = []model.ConnectionPath{hop}
		if last {
			groups = append(groups, group{domain: to, hops: current})
		}
	}

	return groups, nil
}
