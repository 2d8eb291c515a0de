package territory

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-gridmap/pkg/config"
	"github.com/dd0wney/cluso-gridmap/pkg/geom"
	"github.com/dd0wney/cluso-gridmap/pkg/network"
	"github.com/dd0wney/cluso-gridmap/pkg/parallel"
)

func squareSamples(minX, minY, size float64) []orb.Point {
	return []orb.Point{
		{minX, minY}, {minX + size, minY}, {minX + size, minY + size}, {minX, minY + size},
		{minX + size/2, minY + size/2},
	}
}

// overlappingSquares: A owns a 40x40 square, B a square shifted by half, C has no samples.
func overlappingSquares() []network.Site {
	return []network.Site{
		{ID: "A", Capacity: 50, Location: orb.Point{20, 20}, Samples: squareSamples(0, 0, 40)},
		{ID: "B", Capacity: 30, Location: orb.Point{50, 20}, Samples: squareSamples(20, 0, 40)},
		{ID: "C", Capacity: 10, Location: orb.Point{100, 100}},
	}
}

func TestBuild(t *testing.T) {
	cfg := config.Default().Territory
	claims := Build(overlappingSquares(), cfg)
	require.Len(t, claims, 3)

	assert.InDelta(t, 1600, claims[0].Shape.Area(), 1e-9)
	assert.False(t, claims[0].Fallback)
	assert.InDelta(t, 1600, claims[1].Shape.Area(), 1e-9)

	assert.True(t, claims[2].Fallback)
	assert.True(t, claims[2].Shape.Contains(orb.Point{100, 100}))
	assert.Less(t, claims[2].Shape.Area(), 0.8)

	// collinear samples cannot form a hull
	line := Build([]network.Site{{ID: "L", Location: orb.Point{0, 0}, Samples: []orb.Point{{0, 0}, {1, 0}, {2, 0}}}}, cfg)
	assert.True(t, line[0].Fallback)
}

func TestResolveOverlappingSquares(t *testing.T) {
	for _, priority := range []string{config.PriorityLexicographic, config.PriorityWeighted} {
		t.Run(priority, func(t *testing.T) {
			cfg := config.Default().Territory
			cfg.Priority = priority
			claims := Build(overlappingSquares(), cfg)

			res := Resolve(claims, cfg)

			assert.Equal(t, []int{0, 0, 0}, res.Depth)
			assert.Equal(t, []int{0, 1, 2}, res.Order)
			assert.Empty(t, res.Engulfed)

			a, b, c := res.Territories[0], res.Territories[1], res.Territories[2]
			assert.True(t, a.Equal(claims[0].Shape), "A keeps its full square")
			assert.InDelta(t, 800, b.Area(), 1e-6)
			assert.True(t, b.Equal(geom.Rect(40, 0, 60, 40)), "B loses the overlapping half")
			assert.InDelta(t, claims[2].Shape.Area(), c.Area(), 1e-9)

			union, err := geom.UnionAll([]*geom.Geometry{claims[0].Shape, claims[1].Shape})
			require.NoError(t, err)
			total := a.Area() + b.Area() + c.Area()
			assert.InDelta(t, union.Area()+claims[2].Shape.Area(), total, 1e-6)
		})
	}
}

func TestResolveNestedClaim(t *testing.T) {
	sites := []network.Site{
		{ID: "outer", Capacity: 100, Location: orb.Point{50, 50}, Samples: squareSamples(0, 0, 100)},
		{ID: "inner", Capacity: 5, Location: orb.Point{15, 15}, Samples: squareSamples(10, 10, 10)},
	}

	cfg := config.Default().Territory
	claims := Build(sites, cfg)

	res := Resolve(claims, cfg)
	assert.Equal(t, []int{0, 1}, res.Depth)
	assert.Equal(t, []int{1, 0}, res.Order, "nested claim goes first")
	assert.InDelta(t, 100, res.Territories[1].Area(), 1e-6)
	assert.InDelta(t, 9900, res.Territories[0].Area(), 1e-6)

	// a score that ignores depth lets the outer claim swallow the inner one
	cfg.Priority = config.PriorityWeighted
	cfg.DepthWeight = 0
	cfg.CapacityWeight = 1
	res = Resolve(claims, cfg)
	assert.Equal(t, []int{0, 1}, res.Order)
	assert.Equal(t, []int{1}, res.Engulfed)
	assert.Nil(t, res.Territories[1])
}

func TestResolveDeterministic(t *testing.T) {
	cfg := config.Default().Territory
	claims := Build(overlappingSquares(), cfg)

	first := Resolve(claims, cfg)
	second := Resolve(claims, cfg)

	for i := range first.Territories {
		assert.Equal(t, first.Territories[i].GeoJSON(), second.Territories[i].GeoJSON())
	}
}

func TestResolveTieBreakByInputOrder(t *testing.T) {
	sites := []network.Site{
		{ID: "first", Capacity: 10, Location: orb.Point{5, 5}, Samples: squareSamples(0, 0, 10)},
		{ID: "second", Capacity: 10, Location: orb.Point{5, 5}, Samples: squareSamples(0, 0, 10)},
	}
	cfg := config.Default().Territory
	// each reference point is inside the other claim, so depths tie too
	res := Resolve(Build(sites, cfg), cfg)
	assert.Equal(t, []int{0, 1}, res.Order)
	assert.Equal(t, []int{1}, res.Engulfed)
	assert.Empty(t, res.Dropped)
}

func TestResolveSurvivesUnionFailure(t *testing.T) {
	cfg := config.Default().Territory
	claims := Build(overlappingSquares(), cfg)

	// B's remainder cannot be accumulated, even after repair
	failing := func(a, b *geom.Geometry) (*geom.Geometry, error) {
		if b.Equal(geom.Rect(40, 0, 60, 40)) {
			return nil, errors.New("TopologyException: side location conflict")
		}
		return a.Union(b)
	}

	res := resolve(claims, cfg, failing)

	assert.Equal(t, []int{1}, res.Dropped)
	assert.Equal(t, []int{1}, res.Engulfed)
	assert.Nil(t, res.Territories[1])
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "B", res.Failures[0].SiteID)
	assert.ErrorIs(t, res.Failures[0], network.ErrGeometry)
	assert.Contains(t, res.Failures[0].Error(), "side location conflict")

	// the claimed region is unchanged, so C still resolves against A alone
	assert.True(t, res.Territories[0].Equal(claims[0].Shape))
	assert.InDelta(t, claims[2].Shape.Area(), res.Territories[2].Area(), 1e-9)
}

func TestDisjointnessProperty(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)
	cfg := config.Default().Territory

	properties.Property("resolved territories never overlap", prop.ForAll(
		func(xs, ys, sizes []int) bool {
			n := len(xs)
			if len(ys) < n {
				n = len(ys)
			}
			if len(sizes) < n {
				n = len(sizes)
			}
			sites := make([]network.Site, n)
			for i := 0; i < n; i++ {
				x, y, s := float64(xs[i]), float64(ys[i]), float64(sizes[i])
				sites[i] = network.Site{
					ID:       string(rune('a' + i)),
					Capacity: float64(sizes[i] % 7),
					Location: orb.Point{x + s/2, y + s/2},
					Samples:  squareSamples(x, y, s),
				}
			}

			res := Resolve(Build(sites, cfg), cfg)
			for i := 0; i < n; i++ {
				for j := i + 1; j < n; j++ {
					inter, err := res.Territories[i].Intersection(res.Territories[j])
					if err != nil || inter.Area() > cfg.Epsilon {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(6, gen.IntRange(0, 80)),
		gen.SliceOfN(6, gen.IntRange(0, 80)),
		gen.SliceOfN(6, gen.IntRange(1, 40)),
	))

	properties.TestingRun(t)
}

func TestFillHolesSingleNeighbour(t *testing.T) {
	// the hole lies inside B's half and touches only B
	boundary := geom.Rect(0, 0, 100, 100)
	a := geom.Rect(0, 0, 50, 100)
	b, err := geom.Rect(50, 0, 100, 100).Difference(geom.Rect(70, 40, 80, 60))
	require.NoError(t, err)
	sites := []network.Site{
		{ID: "A", Location: orb.Point{25, 50}},
		{ID: "B", Location: orb.Point{90, 50}},
	}

	report := FillHoles([]*geom.Geometry{a, b}, sites, boundary, config.Default().Territory, nil)

	require.Len(t, report.Pieces, 1)
	assert.Equal(t, OutcomeAbsorbed, report.Pieces[0].Outcome)
	assert.Equal(t, []int{1}, report.Pieces[0].Neighbours)
	assert.InDelta(t, 200, report.Pieces[0].Area, 1e-9)

	assert.InDelta(t, b.Area()+200, report.Territories[1].Area(), 1e-3)
	assert.InDelta(t, 5000, report.Territories[0].Area(), 1e-9)
	assert.InDelta(t, 0, report.ExcludedArea, 1e-6)
}

func TestFillHolesSymmetricSplit(t *testing.T) {
	pool, err := parallel.NewWorkerPool(2, nil)
	require.NoError(t, err)
	defer pool.Close()

	boundary := geom.Rect(0, 0, 100, 100)
	territories := []*geom.Geometry{geom.Rect(0, 0, 40, 100), geom.Rect(60, 0, 100, 100)}
	sites := []network.Site{
		{ID: "west", Location: orb.Point{20, 50}},
		{ID: "east", Location: orb.Point{80, 50}},
	}

	report := FillHoles(territories, sites, boundary, config.Default().Territory, pool)

	require.Len(t, report.Pieces, 1)
	assert.Equal(t, OutcomeSplit, report.Pieces[0].Outcome)
	gainWest := report.Territories[0].Area() - 4000
	gainEast := report.Territories[1].Area() - 4000
	require.Greater(t, gainEast, 0.0)
	assert.InDelta(t, 1.0, gainWest/gainEast, 1e-3)

	inter, err := report.Territories[0].Intersection(report.Territories[1])
	require.NoError(t, err)
	assert.LessOrEqual(t, inter.Area(), config.Default().Territory.Epsilon)

	union, err := geom.UnionAll(report.Territories)
	require.NoError(t, err)
	assert.InDelta(t, boundary.Area(), union.Area(), 1e-2)
}

func TestAssignHole(t *testing.T) {
	cfg := config.Default().Territory
	piece := geom.Rect(40, 0, 60, 100)

	t.Run("two neighbours split evenly", func(t *testing.T) {
		frags, err := AssignHole(piece, []Neighbour{{Site: 3, Location: orb.Point{20, 50}}, {Site: 7, Location: orb.Point{80, 50}}}, cfg)
		require.NoError(t, err)
		require.Len(t, frags, 2)
		assert.InDelta(t, 1000, frags[3].Area(), 1e-6)
		assert.InDelta(t, 1000, frags[7].Area(), 1e-6)
		assert.True(t, frags[3].Covers(orb.Point{45, 50}))
	})

	t.Run("one neighbour absorbs", func(t *testing.T) {
		frags, err := AssignHole(piece, []Neighbour{{Site: 2, Location: orb.Point{0, 0}}}, cfg)
		require.NoError(t, err)
		require.Len(t, frags, 1)
		assert.True(t, frags[2].Equal(piece))
	})

	t.Run("coincident points fall back to first", func(t *testing.T) {
		frags, outcome, err := assignHole(piece, []Neighbour{{Site: 4, Location: orb.Point{1, 1}}, {Site: 5, Location: orb.Point{1, 1}}}, cfg)
		require.NoError(t, err)
		assert.Equal(t, OutcomeFallback, outcome)
		require.Len(t, frags, 1)
		assert.True(t, frags[4].Equal(piece))
	})

	t.Run("three neighbours cover the piece", func(t *testing.T) {
		frags, err := AssignHole(piece, []Neighbour{
			{Site: 0, Location: orb.Point{30, -20}},
			{Site: 1, Location: orb.Point{50, 50}},
			{Site: 2, Location: orb.Point{70, 120}},
		}, cfg)
		require.NoError(t, err)
		total := 0.0
		for _, f := range frags {
			total += f.Area()
		}
		assert.InDelta(t, piece.Area(), total, 1e-6)
	})

	t.Run("no neighbours", func(t *testing.T) {
		_, err := AssignHole(piece, nil, cfg)
		assert.Error(t, err)
	})
}

func TestFillHolesUnassignedAndDiscarded(t *testing.T) {
	cfg := config.Default().Territory
	cfg.MinGapArea = 1

	boundary, err := geom.UnionAll([]*geom.Geometry{
		geom.Rect(0, 0, 10, 10),
		geom.Rect(50, 50, 60, 60), // nobody borders this
		geom.Rect(10, 0, 10.5, 1), // sliver under MinGapArea
	})
	require.NoError(t, err)
	territories := []*geom.Geometry{geom.Rect(0, 0, 10, 10)}
	sites := []network.Site{{ID: "only", Location: orb.Point{5, 5}}}

	report := FillHoles(territories, sites, boundary, cfg, nil)

	assert.Equal(t, 1, report.Count(OutcomeUnassigned))
	assert.Equal(t, 1, report.Count(OutcomeDiscarded))
	require.Len(t, report.Unassigned(), 1)
	assert.InDelta(t, 100, report.Unassigned()[0].Area, 1e-9)
	assert.InDelta(t, 100, report.Territories[0].Area(), 1e-9)
}

func TestFillHolesClipsToBoundary(t *testing.T) {
	boundary := geom.Rect(0, 0, 100, 100)
	territories := []*geom.Geometry{geom.Rect(-20, 0, 100, 100)}
	sites := []network.Site{{ID: "spill", Location: orb.Point{50, 50}}}

	cfg := config.Default().Territory
	report := FillHoles(territories, sites, boundary, cfg, nil)
	assert.InDelta(t, 2000, report.ExcludedArea, 1e-9)
	assert.InDelta(t, 10000, report.Territories[0].Area(), 1e-9)

	cfg.ClipToBoundary = false
	report = FillHoles(territories, sites, boundary, cfg, nil)
	assert.Zero(t, report.ExcludedArea)
	assert.InDelta(t, 12000, report.Territories[0].Area(), 1e-9)
}

func TestMergeFailureLeavesPieceUnassigned(t *testing.T) {
	cfg := config.Default().Territory
	west, east := geom.Rect(0, 0, 10, 10), geom.Rect(20, 0, 30, 10)
	report := FillReport{
		Territories: []*geom.Geometry{west, east},
		Pieces: []GapPiece{
			{Shape: geom.Rect(10, 0, 15, 10), Area: 50, Outcome: OutcomeAbsorbed, Neighbours: []int{0}},
			{Shape: geom.Rect(15, 0, 20, 10), Area: 50, Outcome: OutcomeAbsorbed, Neighbours: []int{1}},
		},
	}
	gained := map[int][]gain{
		0: {{piece: 0, shape: report.Pieces[0].Shape}},
		1: {{piece: 1, shape: report.Pieces[1].Shape}},
	}
	sites := []network.Site{{ID: "west"}, {ID: "east"}}

	unionAll := func(gs []*geom.Geometry) (*geom.Geometry, error) {
		if gs[0] == west {
			return nil, errors.New("TopologyException: found non-noded intersection")
		}
		return geom.UnionAll(gs)
	}
	report.merge(gained, sites, cfg, unionAll)

	assert.Equal(t, OutcomeUnassigned, report.Pieces[0].Outcome)
	assert.Equal(t, OutcomeAbsorbed, report.Pieces[1].Outcome)
	assert.Equal(t, 1, report.Count(OutcomeUnassigned))
	assert.True(t, report.Territories[0].Equal(west), "west keeps its territory")
	assert.InDelta(t, 150, report.Territories[1].Area(), 1e-3)

	require.NotEmpty(t, report.Issues)
	assert.Equal(t, "west", report.Issues[0].SiteID)
}
