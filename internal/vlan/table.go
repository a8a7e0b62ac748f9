// Package vlan keeps, per domain and port, which VLAN labels are still
// free. Each domain has its own lock; reservations on different domains do
// not wait on each other.
package vlan

import (
	"fmt"
	"sync"

	"github.com/amsen20/sdx-pce/internal/model"
	"github.com/amsen20/sdx-pce/internal/utils"
	"github.com/amsen20/sdx-pce/logging"
)

var log = logging.Get()

type pool struct {
	// ascending
	labels []int
	free   map[int]bool
}

func newPool(labels []int) *pool {
	p := &pool{
		labels: labels,
		free:   make(map[int]bool, len(labels)),
	}
	for _, label := range labels {
		p.free[label] = true
	}

	return p
}

func (p *pool) available() []int {
	ret := make([]int, 0, len(p.free))
	for _, label := range p.labels {
		if p.free[label] {
			ret = append(ret, label)
		}
	}

	return ret
}

type domainTable struct {
	lock  sync.Mutex
	ports map[string]*pool
}

type Table struct {
	lock    sync.RWMutex
	domains map[string]*domainTable
}

func NewTable() *Table {
	return &Table{
		domains: make(map[string]*domainTable),
	}
}

// NewTableFromRanges builds a table from per-domain, per-port label ranges.
func NewTableFromRanges(ranges map[string]map[string][]string) (*Table, error) {
	table := NewTable()
	for _, domain := range utils.SortedKeys(ranges) {
		if err := table.AddDomain(domain, ranges[domain]); err != nil {
			return nil, err
		}
	}

	return table, nil
}

// AddDomain registers a domain with the label ranges of its ports. All
// labels start free.
func (t *Table) AddDomain(domain string, ports map[string][]string) error {
	dt := &domainTable{ports: make(map[string]*pool, len(ports))}
	for port, ranges := range ports {
		labels, err := ExpandRanges(ranges)
		if err != nil {
			return fmt.Errorf("domain %s port %s: %w", domain, port, err)
		}
		dt.ports[port] = newPool(labels)
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.domains[domain]; ok {
		return fmt.Errorf("%w: domain %s is already in the table", model.ErrValidation, domain)
	}
	t.domains[domain] = dt

	return nil
}

func (t *Table) domain(domain string) (*domainTable, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	dt, ok := t.domains[domain]
	if !ok {
		return nil, fmt.Errorf("%w: domain %s has no label table", model.ErrNotFound, domain)
	}
	return dt, nil
}

func (dt *domainTable) pool(domain, port string) (*pool, error) {
	p, ok := dt.ports[port]
	if !ok {
		return nil, fmt.Errorf("%w: port %s of domain %s has no label table", model.ErrNotFound, port, domain)
	}
	return p, nil
}

// Request asks for one label on a port. Tag is the label wanted, or
// model.AnyVlan. With AnyVlan, Prefer is tried before the lowest free one.
type Request struct {
	Port   string
	Tag    int
	Prefer int
}

// reserve picks and takes a label. The domain lock must be held.
func (dt *domainTable) reserve(domain string, req Request) (int, error) {
	p, err := dt.pool(domain, req.Port)
	if err != nil {
		return 0, err
	}

	if req.Tag != model.AnyVlan {
		if !p.free[req.Tag] {
			return 0, fmt.Errorf("%w: label %d on %s/%s", model.ErrVlanExhausted, req.Tag, domain, req.Port)
		}
		p.free[req.Tag] = false
		return req.Tag, nil
	}

	if req.Prefer != model.AnyVlan && p.free[req.Prefer] {
		p.free[req.Prefer] = false
		return req.Prefer, nil
	}

	for _, label := range p.labels {
		if p.free[label] {
			p.free[label] = false
			return label, nil
		}
	}

	return 0, fmt.Errorf("%w: no free label on %s/%s", model.ErrVlanExhausted, domain, req.Port)
}

func (dt *domainTable) unreserve(domain, port string, tag int) error {
	p, err := dt.pool(domain, port)
	if err != nil {
		return err
	}

	free, ok := p.free[tag]
	if !ok {
		return fmt.Errorf("%w: label %d is not in the range of %s/%s", model.ErrValidation, tag, domain, port)
	}
	if free {
		return fmt.Errorf("%w: label %d on %s/%s is not reserved", model.ErrValidation, tag, domain, port)
	}
	p.free[tag] = true

	return nil
}

// Reserve takes tag on a port, or the lowest free label for AnyVlan, and
// returns the label taken.
func (t *Table) Reserve(domain, port string, tag int) (int, error) {
	dt, err := t.domain(domain)
	if err != nil {
		return 0, err
	}

	dt.lock.Lock()
	defer dt.lock.Unlock()

	return dt.reserve(domain, Request{Port: port, Tag: tag})
}

// Unreserve gives a reserved label back.
func (t *Table) Unreserve(domain, port string, tag int) error {
	dt, err := t.domain(domain)
	if err != nil {
		return err
	}

	dt.lock.Lock()
	defer dt.lock.Unlock()

	return dt.unreserve(domain, port, tag)
}

// ReserveSegment takes the ingress and egress labels of one domain segment
// under the domain lock. Either both are taken or neither is.
func (t *Table) ReserveSegment(domain string, ingress, egress Request) (int, int, error) {
	dt, err := t.domain(domain)
	if err != nil {
		return 0, 0, err
	}

	dt.lock.Lock()
	defer dt.lock.Unlock()

	in, err := dt.reserve(domain, ingress)
	if err != nil {
		return 0, 0, err
	}

	out, err := dt.reserve(domain, egress)
	if err != nil {
		if uerr := dt.unreserve(domain, ingress.Port, in); uerr != nil {
			log.Error().Err(uerr).Msgf("could not give back ingress label %d on %s/%s", in, domain, ingress.Port)
		}
		return 0, 0, err
	}

	log.Debug().Msgf("reserved %s: %s/%d -> %s/%d", domain, ingress.Port, in, egress.Port, out)

	return in, out, nil
}

func (t *Table) IsAvailable(domain, port string, tag int) (bool, error) {
	dt, err := t.domain(domain)
	if err != nil {
		return false, err
	}

	dt.lock.Lock()
	defer dt.lock.Unlock()

	p, err := dt.pool(domain, port)
	if err != nil {
		return false, err
	}
	return p.free[tag], nil
}

// Available lists the free labels of a port, ascending.
func (t *Table) Available(domain, port string) ([]int, error) {
	dt, err := t.domain(domain)
	if err != nil {
		return nil, err
	}

	dt.lock.Lock()
	defer dt.lock.Unlock()

	p, err := dt.pool(domain, port)
	if err != nil {
		return nil, err
	}
	return p.available(), nil
}

type PortUsage struct {
	Total     int `json:"total"`
	Available int `json:"available"`
}

// Snapshot reports label usage per domain and port.
func (t *Table) Snapshot() map[string]map[string]PortUsage {
	t.lock.RLock()
	domains := make(map[string]*domainTable, len(t.domains))
	for name, dt := range t.domains {
		domains[name] = dt
	}
	t.lock.RUnlock()

	ret := make(map[string]map[string]PortUsage, len(domains))
	for name, dt := range domains {
		dt.lock.Lock()
		usage := make(map[string]PortUsage, len(dt.ports))
		for port, p := range dt.ports {
			usage[port] = PortUsage{
				Total:     len(p.labels),
				Available: len(p.available()),
			}
		}
		dt.lock.Unlock()
		ret[name] = usage
	}

	return ret
}
