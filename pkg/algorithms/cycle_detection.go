package algorithms

// Cycle represents a detected cycle as a sequence of node IDs
type Cycle []int

// Min returns the smallest node in the cycle.
func (c Cycle) Min() int {
	m := c[0]
	for _, n := range c[1:] {
		if n < m {
			m = n
		}
	}
	return m
}

const (
	white = 0 // Unvisited
	gray  = 1 // Currently visiting (in recursion stack)
	black = 2 // Finished visiting
)

// DetectCycles finds cycles in g using DFS with three-color marking.
// Nodes are started in ascending order so the result is deterministic.
// When a GRAY node is reached again we have a back edge, which closes a cycle.
func DetectCycles(g *Digraph) []Cycle {
	color := make([]int, g.N)
	parent := make([]int, g.N)
	for i := range parent {
		parent[i] = -1
	}
	cycles := make([]Cycle, 0)

	for node := 0; node < g.N; node++ {
		if color[node] == white {
			dfsDetectCycle(g, node, color, parent, &cycles)
		}
	}
	return cycles
}

func dfsDetectCycle(g *Digraph, node int, color, parent []int, cycles *[]Cycle) {
	color[node] = gray

	for _, neighbor := range g.Out[node] {
		if neighbor == node {
			*cycles = append(*cycles, Cycle{node})
			continue
		}

		switch color[neighbor] {
		case white:
			parent[neighbor] = node
			dfsDetectCycle(g, neighbor, color, parent, cycles)
		case gray:
			*cycles = append(*cycles, extractCycle(neighbor, node, parent))
		}
		// black: forward or cross edge, no cycle through it
	}

	color[node] = black
}

// extractCycle walks parent pointers back from end to start.
func extractCycle(start, end int, parent []int) Cycle {
	cycle := Cycle{start}
	for current := end; current != start && current >= 0; current = parent[current] {
		cycle = append(cycle, current)
	}
	return cycle
}
