package vlan

import (
	"go.uber.org/multierr"
)

// Reservation is one label held on one port.
type Reservation struct {
	Domain string `json:"domain"`
	Port   string `json:"port"`
	Tag    int    `json:"tag"`
}

// Txn collects the reservations of every segment of one connection so they
// can be given back together when a later segment fails.
type Txn struct {
	table *Table
	held  []Reservation
	done  bool
}

func (t *Table) Begin() *Txn {
	return &Txn{table: t}
}

func (tx *Txn) ReserveSegment(domain string, ingress, egress Request) (int, int, error) {
	in, out, err := tx.table.ReserveSegment(domain, ingress, egress)
	if err != nil {
		return 0, 0, err
	}

	tx.held = append(tx.held,
		Reservation{Domain: domain, Port: ingress.Port, Tag: in},
		Reservation{Domain: domain, Port: egress.Port, Tag: out},
	)

	return in, out, nil
}

// Commit ends the transaction and hands its reservations to the caller.
func (tx *Txn) Commit() []Reservation {
	tx.done = true
	held := tx.held
	tx.held = nil

	return held
}

// Rollback gives back everything reserved so far, latest first. It is a
// no-op after Commit.
func (tx *Txn) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true

	err := Release(tx.table, tx.held)
	tx.held = nil

	return err
}

// Release gives back reservations, latest first, and keeps going past
// failures.
func Release(t *Table, held []Reservation) error {
	var err error
	for i := len(held) - 1; i >= 0; i-- {
		r := held[i]
		err = multierr.Append(err, t.Unreserve(r.Domain, r.Port, r.Tag))
	}

	return err
}
