// Package hierarchy assigns each site a role and finds its upstream
// feeder, first from circuit ownership and then by searching the
// connectivity graph.
package hierarchy

import (
	"github.com/dd0wney/cluso-gridmap/pkg/algorithms"
	"github.com/dd0wney/cluso-gridmap/pkg/config"
	"github.com/dd0wney/cluso-gridmap/pkg/network"
	"github.com/dd0wney/cluso-gridmap/pkg/parallel"
	"github.com/dd0wney/cluso-gridmap/pkg/topology"
)

// Record is the classification of one site.
type Record struct {
	Role                 network.Role
	Parent               network.ParentLink
	Tier                 int
	Flags                network.Flags
	Feeders              int // circuits the site owns
	ConsolidatedCapacity float64
}

// Search describes one topology search.
type Search struct {
	Site    int
	Found   bool
	Hops    int
	Visited int
}

// Assignment is the classifier output. Records is indexed like the sites.
type Assignment struct {
	Records    []Record
	Unresolved []int // searches that found nothing, plus broken cycle members
	Cycles     []algorithms.Cycle
	Searches   []Search
	Issues     []*network.Error

	ExternalBuses int // distinct external buses after matching
}

// RoleCounts counts records per role, every role present.
func (a Assignment) RoleCounts() map[string]int {
	counts := make(map[string]int, len(network.Roles))
	for _, r := range network.Roles {
		counts[string(r)] = 0
	}
	for _, rec := range a.Records {
		counts[string(rec.Role)]++
	}
	return counts
}

// LinkCounts counts records per parent link kind.
func (a Assignment) LinkCounts() map[string]int {
	counts := map[string]int{
		string(network.LinkSite):       0,
		string(network.LinkExternal):   0,
		string(network.LinkUnresolved): 0,
	}
	for _, rec := range a.Records {
		counts[string(rec.Parent.Kind)]++
	}
	return counts
}

// Classify runs both passes. ownership maps circuit identifiers to the
// site that owns them; external lists the supply buses outside the study
// area. graph may be nil, in which case no topology search succeeds.
func Classify(sites []network.Site, ownership map[string]string, graph *topology.Graph, external []string, cfg config.HierarchyConfig, pool *parallel.WorkerPool) Assignment {
	index := network.Index(sites)
	a := Assignment{Records: make([]Record, len(sites))}

	feeders := make(map[string]int)
	for _, owner := range ownership {
		feeders[owner]++
	}

	parent := make([]int, len(sites))
	for i, s := range sites {
		rec, p, issues := classifyLocal(i, sites, index, ownership, cfg)
		rec.Feeders = feeders[s.ID]
		a.Records[i] = rec
		a.Issues = append(a.Issues, issues...)
		parent[i] = p
	}

	matcher := NewExternalMatcher(external, cfg.ExternalMatch)
	a.ExternalBuses = matcher.Len()
	a.searchTopology(sites, graph, matcher, cfg, pool, parent)
	a.breakCycles(sites, parent)
	a.consolidate(sites, parent, cfg)
	return a
}

// classifyLocal applies the circuit evidence for site i. It returns the
// parent site index, or -1.
func classifyLocal(i int, sites []network.Site, index map[string]int, ownership map[string]string, cfg config.HierarchyConfig) (Record, int, []*network.Error) {
	s := sites[i]
	rec := Record{Parent: network.Unresolved()}

	if !s.Equipment.HasDistribution() {
		rec.Role = network.RoleTransportSwitching
		if s.Equipment.HasSubstation() {
			rec.Role = network.RoleTransformerOnly
		}
		return rec, -1, nil
	}

	var issues []*network.Error
	var foreign []int
	circuits := make(map[int]int)
	mapped := false
	for _, circuit := range s.Equipment.DistributionCircuits {
		ownerID, ok := ownership[circuit]
		if !ok {
			issues = append(issues, network.InconsistencyError("classify", s.ID, circuit))
			continue
		}
		owner, ok := index[ownerID]
		if !ok {
			issues = append(issues, network.InconsistencyError("classify", ownerID, circuit))
			continue
		}
		mapped = true
		if owner == i {
			continue
		}
		if circuits[owner] == 0 {
			foreign = append(foreign, owner)
		}
		circuits[owner]++
	}

	if len(foreign) == 0 {
		rec.Role = network.RoleFullDistribution
		rec.Flags.UnmappedCircuits = !mapped
		return rec, -1, issues
	}

	p := pickFeeder(foreign, circuits, sites, cfg.SatelliteTieBreak)
	rec.Role = network.RoleSatelliteDistribution
	rec.Parent = network.ParentLink{
		Kind:     network.LinkSite,
		SiteID:   sites[p].ID,
		Evidence: network.EvidenceCircuit,
	}
	return rec, p, issues
}

// pickFeeder chooses among foreign circuit owners, listed in first
// appearance order. Ties keep the earliest.
func pickFeeder(foreign []int, circuits map[int]int, sites []network.Site, tieBreak string) int {
	best := foreign[0]
	for _, o := range foreign[1:] {
		switch tieBreak {
		case config.TieBreakMostCircuits:
			if circuits[o] > circuits[best] {
				best = o
			}
		case config.TieBreakLargestCapacity:
			if sites[o].Capacity > sites[best].Capacity {
				best = o
			}
		}
	}
	return best
}

// searchTopology resolves transformer-only and switching sites by
// bounded search from their segments. Each search reads the pass one
// roles and writes only its own slot.
func (a *Assignment) searchTopology(sites []network.Site, graph *topology.Graph, external *ExternalMatcher, cfg config.HierarchyConfig, pool *parallel.WorkerPool, parent []int) {
	var pending []int
	for i, rec := range a.Records {
		if rec.Role == network.RoleTransformerOnly || rec.Role == network.RoleTransportSwitching {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return
	}

	roles := make([]network.Role, len(a.Records))
	for i, rec := range a.Records {
		roles[i] = rec.Role
	}

	links := make([]network.ParentLink, len(pending))
	found := make([]int, len(pending))
	searches := make([]Search, len(pending))
	errs := make([]error, len(pending))

	err := pool.ForEach(len(pending), func(k int) {
		site := pending[k]
		links[k], found[k], searches[k], errs[k] = searchFeeder(site, roles, graph, external, cfg.MaxHops)
	})
	if err != nil {
		a.Issues = append(a.Issues, network.NewError(network.ErrUnresolvedHierarchy, "classify").Cause(err).Build())
	}

	for k, site := range pending {
		a.Searches = append(a.Searches, searches[k])
		if links[k].Kind == network.LinkUnresolved {
			e := network.UnresolvedError(sites[site].ID)
			e.Cause = errs[k]
			a.Issues = append(a.Issues, e)
			a.Unresolved = append(a.Unresolved, site)
			continue
		}
		if links[k].Kind == network.LinkSite {
			links[k].SiteID = sites[found[k]].ID
			parent[site] = found[k]
		}
		a.Records[site].Parent = links[k]
	}
}

// searchFeeder looks for the nearest segment touching another full
// distribution site, or ending at an external bus. Sites win over external
// buses on the same segment.
func searchFeeder(site int, roles []network.Role, graph *topology.Graph, external *ExternalMatcher, maxHops int) (network.ParentLink, int, Search, error) {
	s := Search{Site: site}
	if graph == nil || site >= len(graph.SiteSegments) || len(graph.SiteSegments[site]) == 0 {
		return network.Unresolved(), -1, s, nil
	}

	link := network.Unresolved()
	feeder := -1
	match := func(seg, hop int) bool {
		for _, other := range graph.SegmentSites[seg] {
			if other != site && roles[other] == network.RoleFullDistribution {
				link = network.ParentLink{Kind: network.LinkSite, Hops: hop, Evidence: network.EvidenceTopology}
				feeder = other
				return true
			}
		}
		for _, e := range graph.SegmentEnds[seg] {
			if id, ok := external.Match(graph.Endpoints[e]); ok {
				link = network.ParentLink{Kind: network.LinkExternal, ExternalID: id, Hops: hop, Evidence: network.EvidenceTopology}
				return true
			}
		}
		return false
	}

	res, err := algorithms.BoundedSearch(graph.SiteSegments[site], graph.Neighbors(), match, algorithms.SearchOptions{MaxHops: maxHops})
	s.Found, s.Hops, s.Visited = res.Found, res.Hops, res.Visited
	if err != nil || !res.Found {
		return network.Unresolved(), -1, s, err
	}
	return link, feeder, s, nil
}
