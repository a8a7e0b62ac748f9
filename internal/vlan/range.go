package vlan

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/amsen20/sdx-pce/internal/model"
)

func parseLabel(value string) (int, error) {
	label, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: label %q is not a number", model.ErrValidation, value)
	}
	if label < 1 || label > model.MaxVlan {
		return 0, fmt.Errorf("%w: label %d out of range 1-%d", model.ErrValidation, label, model.MaxVlan)
	}

	return label, nil
}

// ExpandRange turns "start-end" into every label from start to end
// inclusive, and a lone "value" into that single label.
func ExpandRange(r string) ([]int, error) {
	parts := strings.Split(strings.TrimSpace(r), "-")
	switch len(parts) {
	case 1:
		label, err := parseLabel(parts[0])
		if err != nil {
			return nil, err
		}
		return []int{label}, nil
	case 2:
		start, err := parseLabel(parts[0])
		if err != nil {
			return nil, err
		}
		end, err := parseLabel(parts[1])
		if err != nil {
			return nil, err
		}
		if start > end {
			return nil, fmt.Errorf("%w: range %q ends before it starts", model.ErrValidation, r)
		}

		labels := make([]int, 0, end-start+1)
		for label := start; label <= end; label++ {
			labels = append(labels, label)
		}
		return labels, nil
	}

	return nil, fmt.Errorf("%w: malformed range %q", model.ErrValidation, r)
}

// ExpandRanges expands every range and returns the union, ascending.
func ExpandRanges(ranges []string) ([]int, error) {
	set := make(map[int]bool)
	for _, r := range ranges {
		labels, err := ExpandRange(r)
		if err != nil {
			return nil, err
		}
		for _, label := range labels {
			set[label] = true
		}
	}

	ret := make([]int, 0, len(set))
	for label := range set {
		ret = append(ret, label)
	}
	sort.Ints(ret)

	return ret, nil
}
