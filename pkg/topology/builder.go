package topology

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"

	"github.com/dd0wney/cluso-gridmap/pkg/config"
	"github.com/dd0wney/cluso-gridmap/pkg/geom"
	"github.com/dd0wney/cluso-gridmap/pkg/network"
	"github.com/dd0wney/cluso-gridmap/pkg/parallel"
)

// Report summarises a graph build.
type Report struct {
	Segments        int
	Endpoints       int
	Attached        int // segments touching at least one site
	BusAttachments  int // site/segment pairs added from the bus table
	Inconsistencies []*network.Error
	Issues          []*network.Error
}

type zone struct {
	shape *geom.Geometry
	bound orb.Bound
}

// Build constructs the segment graph and attaches sites to segments whose
// path meets the site's influence zone. buses optionally maps endpoint
// identifiers to the site owning the busbar there; every segment touching
// such an endpoint is attached to that site. Inputs are not modified.
func Build(segments []network.Segment, sites []network.Site, territories []*geom.Geometry, buses map[string]string, cfg config.TopologyConfig, pool *parallel.WorkerPool) (*Graph, Report) {
	g := newGraph(segments, len(sites))
	report := Report{Segments: len(segments), Endpoints: len(g.Endpoints)}

	zones := make([]zone, len(sites))
	zoneErrs := make([]error, len(sites))
	err := pool.ForEach(len(sites), func(i int) {
		var t *geom.Geometry
		if i < len(territories) {
			t = territories[i]
		}
		shape, err := influenceZone(sites[i], t, cfg)
		zones[i] = zone{shape: shape, bound: shape.Bound()}
		zoneErrs[i] = err
	})
	if err != nil {
		report.Issues = append(report.Issues, network.GeometryError("topology", "", err))
	}
	for i, err := range zoneErrs {
		if err != nil {
			report.Issues = append(report.Issues, network.GeometryError("topology", sites[i].ID, err))
		}
	}

	segErrs := make([]error, len(segments))
	err = pool.ForEach(len(segments), func(k int) {
		g.SegmentSites[k], segErrs[k] = touchedSites(segments[k].Path, zones)
	})
	if err != nil {
		report.Issues = append(report.Issues, network.GeometryError("topology", "", err))
	}
	for k, err := range segErrs {
		if err != nil {
			report.Issues = append(report.Issues, network.NewError(network.ErrGeometry, "topology").
				Ref(segments[k].ID).Cause(err).Build())
		}
	}

	report.BusAttachments, report.Inconsistencies = attachBuses(g, sites, buses)

	for k, attached := range g.SegmentSites {
		if len(attached) > 0 {
			report.Attached++
		}
		for _, site := range attached {
			g.SiteSegments[site] = append(g.SiteSegments[site], k)
		}
	}
	return g, report
}

// influenceZone is the area within which a segment counts as touching a
// site.
func influenceZone(site network.Site, territory *geom.Geometry, cfg config.TopologyConfig) (*geom.Geometry, error) {
	if cfg.InfluenceZone == config.ZoneTerritory && !territory.IsEmpty() {
		if cfg.SegmentTolerance <= 0 {
			return territory, nil
		}
		return territory.Buffer(cfg.SegmentTolerance)
	}
	if cfg.SegmentTolerance <= 0 {
		return nil, nil
	}
	return geom.Disk(site.Location, cfg.SegmentTolerance)
}

func touchedSites(path orb.LineString, zones []zone) ([]int, error) {
	if len(path) < 2 {
		return nil, nil
	}
	line, err := geom.FromOrb(path)
	if err != nil {
		return nil, fmt.Errorf("segment path: %w", err)
	}
	bound := path.Bound()

	var out []int
	for i, z := range zones {
		if z.shape.IsEmpty() || !bound.Intersects(z.bound) {
			continue
		}
		if z.shape.Intersects(line) {
			out = append(out, i)
		}
	}
	return out, nil
}

// attachBuses applies the busbar ownership table in endpoint order.
func attachBuses(g *Graph, sites []network.Site, buses map[string]string) (int, []*network.Error) {
	if len(buses) == 0 {
		return 0, nil
	}
	index := network.Index(sites)

	endpoints := make([]string, 0, len(buses))
	for id := range buses {
		endpoints = append(endpoints, id)
	}
	sort.Strings(endpoints)

	added := 0
	var issues []*network.Error
	for _, id := range endpoints {
		siteID := buses[id]
		site, ok := index[siteID]
		if !ok {
			issues = append(issues, network.InconsistencyError("topology", siteID, id))
			continue
		}
		e, ok := g.Endpoint(id)
		if !ok {
			continue
		}
		for _, seg := range g.EndpointSegments[e] {
			if g.Touches(seg, site) {
				continue
			}
			g.SegmentSites[seg] = append(g.SegmentSites[seg], site)
			sort.Ints(g.SegmentSites[seg])
			added++
		}
	}
	return added, issues
}
