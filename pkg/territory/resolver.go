package territory

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"

	"github.com/dd0wney/cluso-gridmap/pkg/config"
	"github.com/dd0wney/cluso-gridmap/pkg/geom"
	"github.com/dd0wney/cluso-gridmap/pkg/network"
)

// Resolution is the outcome of carving exclusive territories out of claims.
// Slices are indexed like the claims passed to Resolve.
type Resolution struct {
	Territories []*geom.Geometry
	Depth       []int
	Order       []int // claim positions in processing order
	Engulfed    []int // claim positions left with nothing
	Dropped     []int // engulfed positions lost to a geometry failure
	Repairs     []*network.Error
	Failures    []*network.Error // one per Dropped entry, same order
}

type unionFunc func(a, b *geom.Geometry) (*geom.Geometry, error)

// Resolve orders claims by priority and gives each one its initial shape
// minus everything claimed before it. The result is pairwise disjoint by
// construction. The accumulation is inherently sequential.
//
// A claim whose difference or accumulation fails even after repair is
// dropped. So is one whose repair leaves nothing areal. A dropped claim is
// listed in Dropped, Failures and Engulfed; the claimed region stays as it
// was and the remaining claims are still resolved.
func Resolve(claims []Claim, cfg config.TerritoryConfig) Resolution {
	return resolve(claims, cfg, (*geom.Geometry).Union)
}

func resolve(claims []Claim, cfg config.TerritoryConfig, union unionFunc) Resolution {
	res := Resolution{
		Territories: make([]*geom.Geometry, len(claims)),
		Depth:       ContainmentDepth(claims),
	}
	res.Order = priorityOrder(claims, res.Depth, cfg)

	drop := func(pos int, err error) {
		res.Failures = append(res.Failures, network.GeometryError("resolve", claims[pos].SiteID, err))
		res.Dropped = append(res.Dropped, pos)
		res.Engulfed = append(res.Engulfed, pos)
	}

	var claimed *geom.Geometry
	for _, pos := range res.Order {
		c := claims[pos]

		remainder, err := c.Shape.Difference(claimed)
		if err != nil {
			remainder, err = retryRepaired(c.Shape, claimed)
			if err != nil {
				drop(pos, err)
				continue
			}
		}

		remainder, repaired, err := geom.Repair(remainder)
		if err != nil {
			drop(pos, err)
			continue
		}
		if repaired {
			if remainder.IsEmpty() {
				drop(pos, fmt.Errorf("nothing areal survived repair"))
				continue
			}
			res.Repairs = append(res.Repairs, network.GeometryError("resolve", c.SiteID, fmt.Errorf("territory repaired")))
		}
		if remainder.IsEmpty() || remainder.Area() <= cfg.Epsilon {
			res.Engulfed = append(res.Engulfed, pos)
			continue
		}

		next, err := accumulate(claimed, remainder, union)
		if err != nil {
			drop(pos, fmt.Errorf("accumulate claimed region: %w", err))
			continue
		}
		claimed = next
		res.Territories[pos] = remainder
	}

	return res
}

// accumulate adds remainder to the claimed region, retrying once against a
// repaired copy of the region.
func accumulate(claimed, remainder *geom.Geometry, union unionFunc) (*geom.Geometry, error) {
	next, err := union(claimed, remainder)
	if err == nil {
		return next, nil
	}
	fixed, _, rerr := geom.Repair(claimed)
	if rerr != nil {
		return nil, err
	}
	return union(fixed, remainder)
}

func retryRepaired(shape, claimed *geom.Geometry) (*geom.Geometry, error) {
	a, _, err := geom.Repair(shape)
	if err != nil {
		return nil, err
	}
	b, _, err := geom.Repair(claimed)
	if err != nil {
		return nil, err
	}
	return a.Difference(b)
}

// ContainmentDepth counts, for each claim, how many other claims contain
// its reference point.
func ContainmentDepth(claims []Claim) []int {
	bounds := make([]orb.Bound, len(claims))
	for i, c := range claims {
		bounds[i] = c.Shape.Bound()
	}

	depth := make([]int, len(claims))
	for i, c := range claims {
		for j, other := range claims {
			if i == j || other.Shape.IsEmpty() || !bounds[j].Contains(c.Location) {
				continue
			}
			if other.Shape.Contains(c.Location) {
				depth[i]++
			}
		}
	}
	return depth
}

// priorityOrder returns claim positions sorted by the configured key.
// Input order is always the final tie-break.
func priorityOrder(claims []Claim, depth []int, cfg config.TerritoryConfig) []int {
	order := make([]int, len(claims))
	for i := range order {
		order[i] = i
	}

	switch cfg.Priority {
	case config.PriorityWeighted:
		score := make([]float64, len(claims))
		for i, c := range claims {
			score[i] = cfg.DepthWeight*float64(depth[i]) + cfg.CapacityWeight*c.Capacity
		}
		sort.SliceStable(order, func(a, b int) bool {
			return score[order[a]] > score[order[b]]
		})
	default:
		sort.SliceStable(order, func(a, b int) bool {
			ia, ib := order[a], order[b]
			if depth[ia] != depth[ib] {
				return depth[ia] > depth[ib]
			}
			return claims[ia].Capacity > claims[ib].Capacity
		})
	}
	return order
}
