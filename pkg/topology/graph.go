// Package topology builds the connectivity graph the hierarchy classifier
// searches: segments joined at shared endpoints, and the sites each
// segment touches.
package topology

import (
	"strings"

	"github.com/dd0wney/cluso-gridmap/pkg/algorithms"
	"github.com/dd0wney/cluso-gridmap/pkg/network"
)

// Graph is an arena over segments and endpoints. Segments and sites are
// referenced by their input index, endpoints by their arena index.
type Graph struct {
	Segments  []network.Segment
	Endpoints []string

	SegmentEnds      [][]int // segment -> endpoints (0, 1 or 2)
	EndpointSegments [][]int // endpoint -> segments, ascending
	SegmentSites     [][]int // segment -> sites, ascending
	SiteSegments     [][]int // site -> segments, ascending

	endpointIndex map[string]int
}

// Endpoint looks up an endpoint by identifier.
func (g *Graph) Endpoint(id string) (int, bool) {
	i, ok := g.endpointIndex[id]
	return i, ok
}

// Neighbors returns the segments that share an endpoint with a segment,
// in endpoint order and then ascending segment order.
func (g *Graph) Neighbors() algorithms.Neighbors {
	return func(seg int) []int {
		if seg < 0 || seg >= len(g.SegmentEnds) {
			return nil
		}
		var out []int
		for _, e := range g.SegmentEnds[seg] {
			for _, other := range g.EndpointSegments[e] {
				if other != seg {
					out = append(out, other)
				}
			}
		}
		return out
	}
}

// Touches reports whether site is attached to segment.
func (g *Graph) Touches(seg, site int) bool {
	for _, s := range g.SegmentSites[seg] {
		if s == site {
			return true
		}
	}
	return false
}

// IgnoredEndpoint reports whether an endpoint identifier is a placeholder
// for "not connected".
func IgnoredEndpoint(id string) bool {
	id = strings.TrimSpace(id)
	return id == "" || strings.EqualFold(id, "none")
}

// newGraph lays out the endpoint arena for segments. Sites are attached
// later.
func newGraph(segments []network.Segment, numSites int) *Graph {
	g := &Graph{
		Segments:      segments,
		SegmentEnds:   make([][]int, len(segments)),
		SegmentSites:  make([][]int, len(segments)),
		SiteSegments:  make([][]int, numSites),
		endpointIndex: make(map[string]int),
	}

	for i, s := range segments {
		for _, id := range [2]string{s.From, s.To} {
			if IgnoredEndpoint(id) {
				continue
			}
			id = strings.TrimSpace(id)
			e, ok := g.endpointIndex[id]
			if !ok {
				e = len(g.Endpoints)
				g.endpointIndex[id] = e
				g.Endpoints = append(g.Endpoints, id)
				g.EndpointSegments = append(g.EndpointSegments, nil)
			}
			if len(g.SegmentEnds[i]) == 1 && g.SegmentEnds[i][0] == e {
				continue // loop segment
			}
			g.SegmentEnds[i] = append(g.SegmentEnds[i], e)
			g.EndpointSegments[e] = append(g.EndpointSegments[e], i)
		}
	}
	return g
}
