package topology

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-gridmap/pkg/algorithms"
	"github.com/dd0wney/cluso-gridmap/pkg/config"
	"github.com/dd0wney/cluso-gridmap/pkg/geom"
	"github.com/dd0wney/cluso-gridmap/pkg/network"
	"github.com/dd0wney/cluso-gridmap/pkg/parallel"
)

func line(x1, y1, x2, y2 float64) orb.LineString {
	return orb.LineString{{x1, y1}, {x2, y2}}
}

func TestGraphArena(t *testing.T) {
	segments := []network.Segment{
		{ID: "s0", From: "p1", To: "p2"},
		{ID: "s1", From: "p2", To: "p3"},
		{ID: "s2", From: "p3", To: "None"},
		{ID: "s3", From: "", To: "p1"},
		{ID: "s4", From: "p4", To: "p4"},
	}
	g := newGraph(segments, 0)

	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, g.Endpoints)
	assert.Len(t, g.SegmentEnds[2], 1, "None endpoint is ignored")
	assert.Len(t, g.SegmentEnds[3], 1, "empty endpoint is ignored")
	assert.Len(t, g.SegmentEnds[4], 1, "loop segment has one endpoint")

	p2, ok := g.Endpoint("p2")
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, g.EndpointSegments[p2])

	next := g.Neighbors()
	assert.Equal(t, []int{3, 1}, next(0))
	assert.Equal(t, []int{0, 2}, next(1))
	assert.Empty(t, next(4))
	assert.Nil(t, next(99))

	_, ok = g.Endpoint("None")
	assert.False(t, ok)
}

func TestIgnoredEndpoint(t *testing.T) {
	assert.True(t, IgnoredEndpoint(""))
	assert.True(t, IgnoredEndpoint("  "))
	assert.True(t, IgnoredEndpoint("None"))
	assert.True(t, IgnoredEndpoint("NONE"))
	assert.False(t, IgnoredEndpoint("AT_9501"))
}

func testSites() []network.Site {
	return []network.Site{
		{ID: "west", Location: orb.Point{10, 10}},
		{ID: "east", Location: orb.Point{90, 10}},
	}
}

func TestBuildTerritoryZone(t *testing.T) {
	territories := []*geom.Geometry{geom.Rect(0, 0, 20, 20), geom.Rect(80, 0, 100, 20)}
	segments := []network.Segment{
		{ID: "inside-west", From: "a", To: "b", Path: line(5, 5, 15, 5)},
		{ID: "near-east", From: "b", To: "c", Path: line(70, 30, 110, 30)}, // 10 m off the east square
		{ID: "far", From: "c", To: "d", Path: line(40, 200, 60, 200)},
		{ID: "both", From: "d", To: "e", Path: line(10, 10, 90, 10)},
		{ID: "no-path", From: "e", To: "f"},
	}
	cfg := config.Default().Topology

	pool, err := parallel.NewWorkerPool(3, nil)
	require.NoError(t, err)
	defer pool.Close()

	g, report := Build(segments, testSites(), territories, nil, cfg, pool)

	assert.Equal(t, [][]int{{0}, {1}, nil, {0, 1}, nil}, g.SegmentSites)
	assert.Equal(t, []int{0, 3}, g.SiteSegments[0])
	assert.Equal(t, []int{1, 3}, g.SiteSegments[1])
	assert.Equal(t, 5, report.Segments)
	assert.Equal(t, 6, report.Endpoints)
	assert.Equal(t, 3, report.Attached)
	assert.Empty(t, report.Issues)
}

func TestBuildStationZone(t *testing.T) {
	territories := []*geom.Geometry{geom.Rect(0, 0, 20, 20), geom.Rect(80, 0, 100, 20)}
	segments := []network.Segment{
		// inside the west territory but 8 m from its station
		{ID: "s0", From: "a", To: "b", Path: line(18, 10, 19, 10)},
		{ID: "s1", From: "b", To: "c", Path: line(0, 0, 0, 1)},
	}
	cfg := config.Default().Topology
	cfg.InfluenceZone = config.ZoneStation
	cfg.SegmentTolerance = 5

	g, _ := Build(segments, testSites(), territories, nil, cfg, nil)
	assert.Empty(t, g.SegmentSites[0])

	cfg.SegmentTolerance = 10
	g, _ = Build(segments, testSites(), territories, nil, cfg, nil)
	assert.Equal(t, []int{0}, g.SegmentSites[0])
	assert.Empty(t, g.SegmentSites[1])
}

func TestBuildEngulfedSiteUsesStationDisk(t *testing.T) {
	segments := []network.Segment{{ID: "s0", From: "a", To: "b", Path: line(10, 0, 10, 20)}}
	cfg := config.Default().Topology

	g, _ := Build(segments, testSites(), []*geom.Geometry{nil, nil}, nil, cfg, nil)
	assert.Equal(t, []int{0}, g.SegmentSites[0])
}

func TestBuildBusTable(t *testing.T) {
	segments := []network.Segment{
		{ID: "s0", From: "bus-w", To: "x"},
		{ID: "s1", From: "x", To: "bus-w"},
		{ID: "s2", From: "x", To: "y", Path: line(5, 5, 15, 5)},
	}
	buses := map[string]string{
		"bus-w":  "west",
		"x":      "ghost",
		"unused": "east",
	}
	territories := []*geom.Geometry{geom.Rect(0, 0, 20, 20), geom.Rect(80, 0, 100, 20)}

	g, report := Build(segments, testSites(), territories, buses, config.Default().Topology, nil)

	assert.Equal(t, []int{0}, g.SegmentSites[0])
	assert.Equal(t, []int{0}, g.SegmentSites[1])
	assert.Equal(t, []int{0}, g.SegmentSites[2])
	assert.Equal(t, []int{0, 1, 2}, g.SiteSegments[0])
	assert.Equal(t, 2, report.BusAttachments)

	require.Len(t, report.Inconsistencies, 1)
	assert.True(t, errors.Is(report.Inconsistencies[0], network.ErrInputInconsistency))
	assert.Equal(t, "ghost", report.Inconsistencies[0].SiteID)
	assert.Equal(t, "x", report.Inconsistencies[0].Ref)
}

func TestBuildIsDeterministicAcrossWorkers(t *testing.T) {
	var segments []network.Segment
	for i := 0; i < 40; i++ {
		x := float64(i * 5)
		segments = append(segments, network.Segment{
			ID:   string(rune('A' + i)),
			From: string(rune('a' + i)),
			To:   string(rune('a' + i + 1)),
			Path: line(x, 10, x+5, 10),
		})
	}
	territories := []*geom.Geometry{geom.Rect(0, 0, 20, 20), geom.Rect(80, 0, 100, 20)}
	cfg := config.Default().Topology

	serial, _ := Build(segments, testSites(), territories, nil, cfg, nil)
	for _, workers := range []int{1, 4, 8} {
		pool, err := parallel.NewWorkerPool(workers, nil)
		require.NoError(t, err)
		g, _ := Build(segments, testSites(), territories, nil, cfg, pool)
		pool.Close()
		assert.Equal(t, serial.SegmentSites, g.SegmentSites)
		assert.Equal(t, serial.SiteSegments, g.SiteSegments)
	}
}

func TestSearchOverSegments(t *testing.T) {
	segments := []network.Segment{
		{ID: "s0", From: "a", To: "b"},
		{ID: "s1", From: "b", To: "c"},
		{ID: "s2", From: "c", To: "d"},
	}
	g := newGraph(segments, 0)

	res, err := algorithms.BoundedSearch([]int{0}, g.Neighbors(), func(seg, _ int) bool {
		return seg == 2
	}, algorithms.SearchOptions{MaxHops: 5})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, 2, res.Hops)
}
