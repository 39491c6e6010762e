package topological

import (
	"fmt"
	"maps"
	"slices"

	"golang.org/x/exp/constraints"
)

var ErrCycleDetected = fmt.Errorf("cycle detected")

func sortedKeys[M ~map[K]V, K constraints.Ordered, V any](m M) []K {
	keys := slices.Collect(maps.Keys(m))
	slices.Sort(keys)
	return keys
}

// Sort orders values so that every value comes after the values depFunc says
// it depends on.
func Sort[T constraints.Ordered](values []T, depFunc func(T) []T) ([]T, error) {
	return SortFunc(values, func(val T) T { return val }, depFunc)
}

// SortFunc is Sort for values identified by keyFunc. Dependencies outside of
// values are ignored. Values that become ready together come out in key order,
// so the result is deterministic.
func SortFunc[T any, K constraints.Ordered](values []T, keyFunc func(T) K, depFunc func(T) []T) ([]T, error) {
	valuesByKey := make(map[K]T)
	for _, val := range values {
		valuesByKey[keyFunc(val)] = val
	}

	// dependencies[k] is what k still waits for; dependents[k] is what waits
	// for k.
	dependencies := make(map[K]map[K]struct{})
	dependents := make(map[K]map[K]struct{})

	for key, val := range valuesByKey {
		for _, dep := range depFunc(val) {
			depKey := keyFunc(dep)
			if _, ok := valuesByKey[depKey]; !ok {
				continue
			}

			if dependencies[key] == nil {
				dependencies[key] = make(map[K]struct{})
			}
			dependencies[key][depKey] = struct{}{}

			if dependents[depKey] == nil {
				dependents[depKey] = make(map[K]struct{})
			}
			dependents[depKey][key] = struct{}{}
		}
	}

	var ready []K
	for _, key := range sortedKeys(valuesByKey) {
		if len(dependencies[key]) == 0 {
			ready = append(ready, key)
		}
	}

	list := make([]T, 0, len(valuesByKey))
	for len(ready) > 0 {
		var key K
		key, ready = ready[0], ready[1:]
		list = append(list, valuesByKey[key])

		for _, dependent := range sortedKeys(dependents[key]) {
			delete(dependencies[dependent], key)
			if len(dependencies[dependent]) == 0 {
				delete(dependencies, dependent)
				ready = append(ready, dependent)
			}
		}
	}

	if len(list) != len(valuesByKey) {
		return nil, fmt.Errorf("%w among %v", ErrCycleDetected, sortedKeys(dependencies))
	}

	return list, nil
}
