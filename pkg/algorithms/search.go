package algorithms

import (
	"fmt"
)

// SearchOptions configures a bounded breadth-first search.
type SearchOptions struct {
	MaxHops int // must be >= 0; seeds are hop 0
}

// SearchResult reports where a bounded search stopped.
type SearchResult struct {
	Found   bool
	Node    int // matching node when Found
	Hops    int // hop of the matching node
	Visited int // nodes examined, including seeds
}

type bfsEntry struct {
	node int
	hop  int
}

// BoundedSearch runs a breadth-first search from seeds and stops at the
// first node for which match returns true. Seeds are examined in the given
// order at hop 0; nodes are expanded only while their hop is below MaxHops,
// so the search never looks past MaxHops. Ties at the same hop are broken by
// seed order, then by the order next returns successors.
func BoundedSearch(seeds []int, next Neighbors, match func(node, hop int) bool, opts SearchOptions) (SearchResult, error) {
	if opts.MaxHops < 0 {
		return SearchResult{}, fmt.Errorf("MaxHops must be >= 0, got %d", opts.MaxHops)
	}
	if next == nil || match == nil {
		return SearchResult{}, fmt.Errorf("next and match are required")
	}

	visited := make(map[int]bool, len(seeds))
	queue := make([]bfsEntry, 0, len(seeds))
	for _, s := range seeds {
		if visited[s] {
			continue
		}
		visited[s] = true
		queue = append(queue, bfsEntry{node: s, hop: 0})
	}

	result := SearchResult{}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result.Visited++

		if match(current.node, current.hop) {
			result.Found = true
			result.Node = current.node
			result.Hops = current.hop
			return result, nil
		}

		if current.hop >= opts.MaxHops {
			continue
		}

		for _, n := range next(current.node) {
			if visited[n] {
				continue
			}
			visited[n] = true
			queue = append(queue, bfsEntry{node: n, hop: current.hop + 1})
		}
	}

	return result, nil
}
