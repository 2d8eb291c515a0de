package algorithms

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestDetectCycles(t *testing.T) {
	tests := []struct {
		name    string
		parents []int
		want    int // number of cycles
		lengths []int
	}{
		{"forest", []int{-1, 0, 0, 1}, 0, nil},
		{"self loop", []int{0}, 1, []int{1}},
		{"pair", []int{1, 0}, 1, []int{2}},
		{"triangle with tail", []int{1, 2, 0, 2}, 1, []int{3}},
		{"two cycles", []int{1, 0, 3, 2, -1}, 2, []int{2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cycles := DetectCycles(FromParents(tt.parents))
			if len(cycles) != tt.want {
				t.Fatalf("got %d cycles %v, want %d", len(cycles), cycles, tt.want)
			}
			for i, l := range tt.lengths {
				if len(cycles[i]) != l {
					t.Errorf("cycle %d length = %d, want %d", i, len(cycles[i]), l)
				}
			}
		})
	}
}

func TestCycleMin(t *testing.T) {
	if got := (Cycle{5, 2, 9}).Min(); got != 2 {
		t.Errorf("Min() = %d, want 2", got)
	}
}

func TestTopologicalSort(t *testing.T) {
	// parent → child edges: 0 → 1 → 2, 0 → 3
	g := Reverse(FromParents([]int{-1, 0, 1, 0}))
	order, err := TopologicalSort(g)
	if err != nil {
		t.Fatalf("TopologicalSort failed: %v", err)
	}
	pos := make(map[int]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	for u := 0; u < g.N; u++ {
		for _, v := range g.Out[u] {
			if pos[u] >= pos[v] {
				t.Errorf("edge %d→%d out of order in %v", u, v, order)
			}
		}
	}

	levels, err := Levels(g)
	if err != nil {
		t.Fatalf("Levels failed: %v", err)
	}
	want := []int{0, 1, 2, 1}
	for i := range want {
		if levels[i] != want[i] {
			t.Errorf("Levels = %v, want %v", levels, want)
			break
		}
	}

	if _, err := TopologicalSort(FromParents([]int{1, 0})); err != ErrCyclic {
		t.Errorf("cyclic graph error = %v, want ErrCyclic", err)
	}
}

// A parent graph has a cycle exactly when it has no topological order.
func TestCycleDetectionAgreesWithKahn(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("DetectCycles empty iff TopologicalSort succeeds", prop.ForAll(
		func(raw []int) bool {
			n := len(raw)
			parents := make([]int, n)
			for i, r := range raw {
				// r in [0, 20]; map to a parent in [-1, n)
				parents[i] = r%(n+1) - 1
			}
			g := FromParents(parents)
			_, err := TopologicalSort(g)
			return (len(DetectCycles(g)) > 0) == (err != nil)
		},
		gen.SliceOf(gen.IntRange(0, 20)),
	))

	properties.TestingRun(t)
}
