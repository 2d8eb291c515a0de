package geom

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-geos"
)

// Disk returns a polygonal approximation of a circle.
func Disk(center orb.Point, radius float64) (*Geometry, error) {
	pt, err := FromOrb(center)
	if err != nil {
		return nil, err
	}
	return pt.Buffer(radius)
}

// Hull returns the convex hull of points, or nil when the hull has no area
// (fewer than three distinct points, or all collinear).
func Hull(points []orb.Point) (*Geometry, error) {
	if len(distinct(points)) < 3 {
		return nil, nil
	}
	mp, err := FromOrb(orb.MultiPoint(points))
	if err != nil || mp == nil {
		return nil, err
	}
	out, err := guard("convex hull", func() *geos.Geom { return mp.g.ConvexHull() })
	if err != nil {
		return nil, err
	}
	hull := wrap(out)
	if !hull.IsAreal() || hull.Area() <= 0 {
		return nil, nil
	}
	return hull, nil
}

// Repair returns a valid areal version of g and whether anything changed.
// A nil result means nothing areal survived.
func Repair(g *Geometry) (*Geometry, bool, error) {
	if g.IsEmpty() {
		return nil, false, nil
	}
	if g.IsValid() && g.IsAreal() {
		return g, false, nil
	}

	if !g.IsValid() {
		out, err := guard("make valid", func() *geos.Geom {
			return g.g.MakeValidWithParams(geos.MakeValidLinework, geos.MakeValidDiscardCollapsed)
		})
		if err == nil {
			fixed, err := polygonal(out)
			if err == nil && fixed.IsValid() {
				return fixed, true, nil
			}
		}
	}

	// zero-width buffer round-trip as the last resort
	fixed, err := g.Buffer(0)
	if err != nil {
		return nil, true, err
	}
	if !fixed.IsValid() {
		return nil, true, fmt.Errorf("geometry still invalid after repair")
	}
	return fixed, true, nil
}

// Dissolve closes hairline seams by buffering out then back in.
func Dissolve(g *Geometry, d float64) (*Geometry, error) {
	if g.IsEmpty() || d <= 0 {
		return g, nil
	}
	grown, err := g.Buffer(d)
	if err != nil {
		return nil, err
	}
	return grown.Buffer(-d)
}

// UnionAll unions every non-empty geometry in gs.
func UnionAll(gs []*Geometry) (*Geometry, error) {
	var mp orb.MultiPolygon
	for _, g := range gs {
		switch o := g.Orb().(type) {
		case orb.Polygon:
			mp = append(mp, o)
		case orb.MultiPolygon:
			mp = append(mp, o...)
		}
	}
	if len(mp) == 0 {
		return nil, nil
	}
	merged, err := FromOrb(mp)
	if err != nil || merged == nil {
		return nil, err
	}
	out, err := guard("unary union", func() *geos.Geom { return merged.g.UnaryUnion() })
	if err != nil {
		return nil, err
	}
	return polygonal(out)
}

// Voronoi tessellates the distinct points within env and returns one cell
// per distinct point, in no particular order. Fewer than two distinct
// points yields nil.
func Voronoi(points []orb.Point, env orb.Bound) ([]*Geometry, error) {
	pts := distinct(points)
	if len(pts) < 2 {
		return nil, nil
	}
	sites, err := FromOrb(orb.MultiPoint(pts))
	if err != nil {
		return nil, err
	}
	envelope, err := FromOrb(env.Union(orb.MultiPoint(pts).Bound()).ToPolygon())
	if err != nil {
		return nil, err
	}
	diagram, err := guard("voronoi", func() *geos.Geom {
		return sites.g.VoronoiDiagram(envelope.g, 0, false)
	})
	if err != nil {
		return nil, err
	}
	if diagram == nil {
		return nil, nil
	}

	n := diagram.NumGeometries()
	cells := make([]*Geometry, 0, n)
	for i := 0; i < n; i++ {
		if cell := wrap(diagram.Geometry(i).Clone()); cell != nil {
			cells = append(cells, cell)
		}
	}
	return cells, nil
}

// Rect is a convenience for axis-aligned rectangles.
func Rect(minX, minY, maxX, maxY float64) *Geometry {
	return MustFromOrb(orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}.ToPolygon())
}

func distinct(points []orb.Point) []orb.Point {
	seen := make(map[orb.Point]struct{}, len(points))
	out := make([]orb.Point, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
