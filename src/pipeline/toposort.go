package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// sortDescriptors orders descriptors so every plugin runs after the plugins
// it depends on. Ties break on declaration order, which keeps runs
// reproducible. A cycle or a dependency on a disabled plugin is fatal.
func sortDescriptors(descriptors []Descriptor) ([]Descriptor, error) {
	index := make(map[string]int, len(descriptors))
	for i, d := range descriptors {
		index[d.Slug] = i
	}

	inDegree := make([]int, len(descriptors))
	dependents := make(map[string][]int)

	for i, d := range descriptors {
		for _, dep := range d.DependsOn {
			if _, found := index[dep]; !found {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrMissingDependency, d.Slug, dep)
			}

			inDegree[i]++
			dependents[dep] = append(dependents[dep], i)
		}
	}

	ready := make([]int, 0, len(descriptors))
	for i := range descriptors {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	sorted := make([]Descriptor, 0, len(descriptors))
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]

		sorted = append(sorted, descriptors[next])

		for _, dependent := range dependents[descriptors[next].Slug] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(sorted) != len(descriptors) {
		var remaining []string
		seen := make(map[string]bool, len(sorted))
		for _, d := range sorted {
			seen[d.Slug] = true
		}

		for _, d := range descriptors {
			if !seen[d.Slug] {
				remaining = append(remaining, d.Slug)
			}
		}

		return nil, fmt.Errorf("%w: involving %s", ErrCyclicDependency, strings.Join(remaining, ", "))
	}

	return sorted, nil
}
