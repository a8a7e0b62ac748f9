package alg

import "sort"

// keySorter orders objects by a float key, descending when desc is set.
type keySorter[Obj any] struct {
	objects []Obj
	key     func(Obj) float64
	desc    bool
}

func (s *keySorter[Obj]) Len() int {
	return len(s.objects)
}

func (s *keySorter[Obj]) Swap(i, j int) {
	s.objects[i], s.objects[j] = s.objects[j], s.objects[i]
}

func (s *keySorter[Obj]) Less(i, j int) bool {
	if s.desc {
		return s.key(s.objects[i]) > s.key(s.objects[j])
	}
	return s.key(s.objects[i]) < s.key(s.objects[j])
}

// sortAscending sorts objects by key keeping the input order of ties, so
// partitions are reproducible.
func sortAscending[Obj any](objects []Obj, key func(Obj) float64) {
	sort.Stable(&keySorter[Obj]{objects: objects, key: key})
}

func sortDescending[Obj any](objects []Obj, key func(Obj) float64) {
	sort.Stable(&keySorter[Obj]{objects: objects, key: key, desc: true})
}
