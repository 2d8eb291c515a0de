package territory

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/dd0wney/cluso-gridmap/pkg/config"
	"github.com/dd0wney/cluso-gridmap/pkg/geom"
	"github.com/dd0wney/cluso-gridmap/pkg/network"
	"github.com/dd0wney/cluso-gridmap/pkg/parallel"
)

// Neighbour is a site bordering a gap piece.
type Neighbour struct {
	Site     int
	Location orb.Point
}

// Piece outcomes, also used as metric labels.
const (
	OutcomeAbsorbed   = "absorbed"
	OutcomeSplit      = "split"
	OutcomeFallback   = "fallback"
	OutcomeUnassigned = "unassigned"
	OutcomeDiscarded  = "discarded"
)

// GapPiece is one connected component of the uncovered study area.
type GapPiece struct {
	Shape      *geom.Geometry
	Area       float64
	Outcome    string
	Neighbours []int
}

// FillReport describes what the hole filler did. Territories is indexed
// like the input territories and holds the final shapes.
type FillReport struct {
	Territories  []*geom.Geometry
	Pieces       []GapPiece
	ExcludedArea float64
	Issues       []*network.Error
}

// Count returns how many pieces ended with the given outcome.
func (r FillReport) Count(outcome string) int {
	n := 0
	for _, p := range r.Pieces {
		if p.Outcome == outcome {
			n++
		}
	}
	return n
}

// Unassigned returns the pieces no site bordered.
func (r FillReport) Unassigned() []GapPiece {
	var out []GapPiece
	for _, p := range r.Pieces {
		if p.Outcome == OutcomeUnassigned {
			out = append(out, p)
		}
	}
	return out
}

// gain is a fragment of the gap piece at Pieces[piece] won by a site.
type gain struct {
	piece int
	shape *geom.Geometry
}

type pieceResult struct {
	outcome    string
	neighbours []int
	fragments  map[int]*geom.Geometry
	err        error
}

// FillHoles distributes the part of boundary not covered by territories
// among bordering sites. Pieces are assigned on the pool; the per-site
// merge runs afterwards in site order.
func FillHoles(territories []*geom.Geometry, sites []network.Site, boundary *geom.Geometry, cfg config.TerritoryConfig, pool *parallel.WorkerPool) FillReport {
	report := FillReport{Territories: make([]*geom.Geometry, len(territories))}
	copy(report.Territories, territories)

	covered, err := geom.UnionAll(territories)
	if err != nil {
		report.Issues = append(report.Issues, network.GeometryError("holes", "", err))
		return report
	}
	gap, err := boundary.Difference(covered)
	if err != nil {
		report.Issues = append(report.Issues, network.GeometryError("holes", "", err))
		return report
	}

	var pieces []*geom.Geometry
	for _, p := range gap.Pieces() {
		if p.Area() < cfg.MinGapArea {
			report.Pieces = append(report.Pieces, GapPiece{Shape: p, Area: p.Area(), Outcome: OutcomeDiscarded})
			continue
		}
		pieces = append(pieces, p)
	}

	bounds := make([]orb.Bound, len(territories))
	for i, t := range territories {
		bounds[i] = t.Bound()
	}

	results := make([]pieceResult, len(pieces))
	err = pool.ForEach(len(pieces), func(k int) {
		results[k] = assignPiece(pieces[k], territories, bounds, sites, cfg)
	})
	if err != nil {
		report.Issues = append(report.Issues, network.GeometryError("holes", "", err))
	}

	gained := make(map[int][]gain)
	for k, r := range results {
		piece := GapPiece{Shape: pieces[k], Area: pieces[k].Area(), Outcome: r.outcome, Neighbours: r.neighbours}
		if r.err != nil {
			report.Issues = append(report.Issues, network.GeometryError("holes", "", r.err))
			piece.Outcome = OutcomeUnassigned
		}
		if piece.Outcome == "" {
			piece.Outcome = OutcomeUnassigned
		}
		report.Pieces = append(report.Pieces, piece)
		if piece.Outcome == OutcomeUnassigned {
			continue
		}
		for site, frag := range r.fragments {
			gained[site] = append(gained[site], gain{piece: len(report.Pieces) - 1, shape: frag})
		}
	}

	report.merge(gained, sites, cfg, geom.UnionAll)

	if cfg.ClipToBoundary {
		report.clip(boundary, sites)
	}
	return report
}

// assignPiece finds the sites bordering piece and splits it among them.
func assignPiece(piece *geom.Geometry, territories []*geom.Geometry, bounds []orb.Bound, sites []network.Site, cfg config.TerritoryConfig) pieceResult {
	probe, err := piece.Buffer(cfg.BorderTolerance)
	if err != nil {
		return pieceResult{err: err}
	}
	probeBound := probe.Bound()

	var neighbours []Neighbour
	var ids []int
	for i, t := range territories {
		if t.IsEmpty() || !probeBound.Intersects(bounds[i]) {
			continue
		}
		if t.Intersects(probe) {
			neighbours = append(neighbours, Neighbour{Site: i, Location: sites[i].Location})
			ids = append(ids, i)
		}
	}
	if len(neighbours) == 0 {
		return pieceResult{outcome: OutcomeUnassigned}
	}

	fragments, outcome, err := assignHole(piece, neighbours, cfg)
	return pieceResult{outcome: outcome, neighbours: ids, fragments: fragments, err: err}
}

// AssignHole splits piece among its bordering neighbours. One neighbour
// absorbs the whole piece. Two or more split it along the Voronoi cells of
// their reference points; each fragment goes to the first neighbour whose
// point the cell covers. When fewer than two distinct points exist the
// first neighbour absorbs the piece. The returned fragments are disjoint
// and their union is the piece.
func AssignHole(piece *geom.Geometry, neighbours []Neighbour, cfg config.TerritoryConfig) (map[int]*geom.Geometry, error) {
	fragments, _, err := assignHole(piece, neighbours, cfg)
	return fragments, err
}

func assignHole(piece *geom.Geometry, neighbours []Neighbour, cfg config.TerritoryConfig) (map[int]*geom.Geometry, string, error) {
	if piece.IsEmpty() {
		return map[int]*geom.Geometry{}, OutcomeAbsorbed, nil
	}
	switch len(neighbours) {
	case 0:
		return nil, OutcomeUnassigned, fmt.Errorf("no neighbours for gap piece")
	case 1:
		return map[int]*geom.Geometry{neighbours[0].Site: piece}, OutcomeAbsorbed, nil
	}

	points := make([]orb.Point, len(neighbours))
	for i, n := range neighbours {
		points[i] = n.Location
	}
	cells, err := geom.Voronoi(points, piece.Bound().Pad(cfg.VoronoiMargin))
	if err != nil {
		return nil, "", err
	}
	if len(cells) < 2 {
		return map[int]*geom.Geometry{neighbours[0].Site: piece}, OutcomeFallback, nil
	}

	parts := make(map[int][]*geom.Geometry)
	for _, cell := range cells {
		frag, err := cell.Intersection(piece)
		if err != nil {
			return nil, "", err
		}
		if frag.IsEmpty() {
			continue
		}
		owner := cellOwner(cell, neighbours)
		parts[owner] = append(parts[owner], frag)
	}

	fragments := make(map[int]*geom.Geometry, len(parts))
	for site, fs := range parts {
		if len(fs) == 1 {
			fragments[site] = fs[0]
			continue
		}
		u, err := geom.UnionAll(fs)
		if err != nil {
			return nil, "", err
		}
		fragments[site] = u
	}
	return fragments, OutcomeSplit, nil
}

// cellOwner returns the first neighbour whose point the cell covers, or
// the neighbour nearest to the cell's centroid when rounding put every
// point just outside.
func cellOwner(cell *geom.Geometry, neighbours []Neighbour) int {
	for _, n := range neighbours {
		if cell.Covers(n.Location) {
			return n.Site
		}
	}

	centroid, _ := planar.CentroidArea(cell.Orb())
	best, bestDist := neighbours[0].Site, math.Inf(1)
	for _, n := range neighbours {
		if d := planar.Distance(centroid, n.Location); d < bestDist {
			best, bestDist = n.Site, d
		}
	}
	return best
}

// merge unions gained fragments into each site's territory in ascending
// site order, closes seams and trims any growth into other territories.
// When a site's union fails its territory is left as it was and the pieces
// it would have gained are marked unassigned.
func (r *FillReport) merge(gained map[int][]gain, sites []network.Site, cfg config.TerritoryConfig, unionAll func([]*geom.Geometry) (*geom.Geometry, error)) {
	if len(gained) == 0 {
		return
	}
	ids := make([]int, 0, len(gained))
	for site := range gained {
		ids = append(ids, site)
	}
	sort.Ints(ids)

	merged := make(map[int]*geom.Geometry, len(ids))
	for _, site := range ids {
		parts := []*geom.Geometry{r.Territories[site]}
		for _, g := range gained[site] {
			parts = append(parts, g.shape)
		}
		u, err := unionAll(parts)
		if err != nil {
			r.Issues = append(r.Issues, network.GeometryError("holes", sites[site].ID, err))
			for _, g := range gained[site] {
				r.Pieces[g.piece].Outcome = OutcomeUnassigned
			}
			continue
		}
		merged[site] = u
	}
	for site, u := range merged {
		r.Territories[site] = u
	}

	// every shape is still pairwise disjoint here; seam closing may grow
	// a shape by up to SeamBuffer, so growth into others is cut back
	all, err := geom.UnionAll(r.Territories)
	if err != nil {
		r.Issues = append(r.Issues, network.GeometryError("holes", "", err))
		return
	}

	for _, site := range ids {
		u, ok := merged[site]
		if !ok {
			continue
		}
		id := sites[site].ID

		closed, err := geom.Dissolve(u, cfg.SeamBuffer)
		if err != nil {
			r.Issues = append(r.Issues, network.GeometryError("holes", id, err))
			continue
		}
		others, err := all.Difference(u)
		if err == nil {
			closed, err = closed.Difference(others)
		}
		if err != nil {
			r.Issues = append(r.Issues, network.GeometryError("holes", id, err))
			continue
		}

		fixed, repaired, err := geom.Repair(closed)
		if repaired {
			cause := err
			if cause == nil {
				cause = fmt.Errorf("territory repaired after seam closing")
			}
			r.Issues = append(r.Issues, network.GeometryError("holes", id, cause))
		}
		if err != nil || fixed.IsEmpty() {
			// keep the undissolved union rather than lose the site
			continue
		}
		r.Territories[site] = fixed
	}
}

// clip intersects every territory with the boundary and records the area
// that fell outside.
func (r *FillReport) clip(boundary *geom.Geometry, sites []network.Site) {
	for i, t := range r.Territories {
		if t.IsEmpty() {
			continue
		}
		before := t.Area()
		inside, err := t.Intersection(boundary)
		if err != nil {
			r.Issues = append(r.Issues, network.GeometryError("clip", sites[i].ID, err))
			continue
		}
		r.ExcludedArea += before - inside.Area()
		r.Territories[i] = inside
	}
}
