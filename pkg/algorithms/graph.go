// Package algorithms holds the graph routines used by the hierarchy
// classifier: bounded breadth-first search, cycle detection and
// topological ordering over dense integer node identifiers.
package algorithms

// Neighbors returns the successors of node. Implementations must return
// the same slice order on every call; search results depend on it.
type Neighbors func(node int) []int

// Digraph is a directed graph over nodes [0, N) stored as adjacency lists.
type Digraph struct {
	N   int
	Out [][]int
}

// NewDigraph creates an empty graph with n nodes.
func NewDigraph(n int) *Digraph {
	return &Digraph{N: n, Out: make([][]int, n)}
}

// AddEdge adds u → v. Out-of-range nodes are ignored.
func (g *Digraph) AddEdge(u, v int) {
	if u < 0 || u >= g.N || v < 0 || v >= g.N {
		return
	}
	g.Out[u] = append(g.Out[u], v)
}

// Neighbors returns g's adjacency as a Neighbors function.
func (g *Digraph) Neighbors() Neighbors {
	return func(node int) []int {
		if node < 0 || node >= g.N {
			return nil
		}
		return g.Out[node]
	}
}

// FromParents builds the child → parent graph from a parent slice, where
// parent[i] < 0 means i is a root.
func FromParents(parent []int) *Digraph {
	g := NewDigraph(len(parent))
	for i, p := range parent {
		if p >= 0 {
			g.AddEdge(i, p)
		}
	}
	return g
}
