package hierarchy

import (
	"sort"

	"github.com/dd0wney/cluso-gridmap/pkg/algorithms"
	"github.com/dd0wney/cluso-gridmap/pkg/config"
	"github.com/dd0wney/cluso-gridmap/pkg/network"
)

// breakCycles cuts every loop in the site parent graph at its lowest
// index member, which becomes an unresolved root.
func (a *Assignment) breakCycles(sites []network.Site, parent []int) {
	for {
		cycles := algorithms.DetectCycles(algorithms.FromParents(parent))
		if len(cycles) == 0 {
			break
		}
		for _, c := range cycles {
			m := c.Min()
			if parent[m] < 0 {
				continue
			}
			parent[m] = -1
			a.Records[m].Parent = network.Unresolved()
			a.Records[m].Flags.CycleBroken = true
			a.Unresolved = append(a.Unresolved, m)
			a.Cycles = append(a.Cycles, c)
			e := network.UnresolvedError(sites[m].ID)
			e.Ref = "cycle"
			a.Issues = append(a.Issues, e)
		}
	}
	sort.Ints(a.Unresolved)
}

// consolidate assigns tiers and inherited capacity down the parent
// forest. parent must be acyclic. A zero threshold turns inheritance off.
func (a *Assignment) consolidate(sites []network.Site, parent []int, cfg config.HierarchyConfig) {
	down := algorithms.Reverse(algorithms.FromParents(parent))
	order, err := algorithms.TopologicalSort(down)
	if err != nil {
		return
	}
	tiers, _ := algorithms.Levels(down)

	for _, i := range order {
		rec := &a.Records[i]
		rec.Tier = tiers[i]
		rec.ConsolidatedCapacity = sites[i].Capacity
		if p := parent[i]; p >= 0 && inherits(sites[i].Capacity, cfg.InheritCapacityBelow) {
			rec.ConsolidatedCapacity = a.Records[p].ConsolidatedCapacity
		}
	}
}

func inherits(capacity, threshold float64) bool {
	return threshold > 0 && capacity <= threshold
}
