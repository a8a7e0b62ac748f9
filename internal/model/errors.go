package model

import "errors"

// Error kinds surfaced to callers. Packages wrap them with context, callers
// discriminate with errors.Is.
var (
	// A request references a node outside the graph, or the traffic
	// matrix can not be turned into a model.
	ErrModelConstruction = errors.New("model construction failed")

	// A domain boundary port or link could not be resolved.
	ErrBreakdownResolution = errors.New("breakdown resolution failed")

	// No label is available on a required port.
	ErrVlanExhausted = errors.New("vlan exhausted")

	// Structurally malformed input: bad label range, bad request shape.
	ErrValidation = errors.New("validation failed")

	// Lookup of a domain, port, node or connection missed.
	ErrNotFound = errors.New("not found")
)
