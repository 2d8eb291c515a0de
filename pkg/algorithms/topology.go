package algorithms

import (
	"fmt"
)

// ErrCyclic is returned when an ordering is requested for a cyclic graph.
var ErrCyclic = fmt.Errorf("graph contains cycles")

// TopologicalSort returns nodes in topological order using Kahn's algorithm.
// For every edge u→v, u comes before v. Ties keep ascending node order.
func TopologicalSort(g *Digraph) ([]int, error) {
	order, _, err := kahn(g)
	return order, err
}

// Levels returns, for each node, the length of the longest path reaching it
// from a node with in-degree zero. On a forest with edges pointing from
// parent to child this is the depth below the root.
func Levels(g *Digraph) ([]int, error) {
	_, level, err := kahn(g)
	return level, err
}

func kahn(g *Digraph) ([]int, []int, error) {
	inDegree := make([]int, g.N)
	for u := 0; u < g.N; u++ {
		for _, v := range g.Out[u] {
			inDegree[v]++
		}
	}

	queue := make([]int, 0)
	for node := 0; node < g.N; node++ {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	level := make([]int, g.N)
	sorted := make([]int, 0, g.N)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)

		for _, v := range g.Out[current] {
			if level[current]+1 > level[v] {
				level[v] = level[current] + 1
			}
			inDegree[v]--
			if inDegree[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	if len(sorted) != g.N {
		return nil, nil, ErrCyclic
	}
	return sorted, level, nil
}

// Reverse returns g with every edge flipped.
func Reverse(g *Digraph) *Digraph {
	r := NewDigraph(g.N)
	for u := 0; u < g.N; u++ {
		for _, v := range g.Out[u] {
			r.AddEdge(v, u)
		}
	}
	return r
}
