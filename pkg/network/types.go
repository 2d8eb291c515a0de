// Package network holds the domain model shared by every stage of a
// territory and hierarchy run.
package network

import "github.com/paulmach/orb"

// Site is a substation that needs an exclusive service territory.
// Coordinates are planar metres.
type Site struct {
	ID          string
	Name        string
	Distributor string
	Capacity    float64
	Location    orb.Point
	Samples     []orb.Point
	Equipment   Equipment
}

// Equipment summarises what a site hosts. DistributionCircuits keeps
// first-appearance order; the classifier relies on it for tie-breaking.
type Equipment struct {
	DistributionCircuits []string
	DistributionUnits    int
	SubstationUnits      int
}

// HasDistribution reports whether the site feeds distribution-level load.
func (e Equipment) HasDistribution() bool {
	return e.DistributionUnits > 0 || len(e.DistributionCircuits) > 0
}

// HasSubstation reports whether the site hosts substation-level transformers.
func (e Equipment) HasSubstation() bool {
	return e.SubstationUnits > 0
}

// Segment is an edge of the physical connectivity graph. Path is optional;
// segments without geometry can only reach sites through the bus table.
type Segment struct {
	ID   string
	From string
	To   string
	Path orb.LineString
}

// Role is the classification of a site in the feeding hierarchy.
type Role string

const (
	RoleFullDistribution      Role = "FULL_DISTRIBUTION"
	RoleSatelliteDistribution Role = "SATELLITE_DISTRIBUTION"
	RoleTransformerOnly       Role = "TRANSFORMER_ONLY"
	RoleTransportSwitching    Role = "TRANSPORT_SWITCHING"
)

// Roles lists every role in reporting order.
var Roles = []Role{
	RoleFullDistribution,
	RoleSatelliteDistribution,
	RoleTransformerOnly,
	RoleTransportSwitching,
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// LinkKind says what a ParentLink points at.
type LinkKind string

const (
	LinkSite       LinkKind = "site"
	LinkExternal   LinkKind = "external"
	LinkUnresolved LinkKind = "unresolved"
)

// Evidence records how a parent was found.
type Evidence string

const (
	EvidenceCircuit  Evidence = "circuit"
	EvidenceTopology Evidence = "topology"
)

// ParentLink is the upstream feeder of a site. Exactly one of SiteID or
// ExternalID is set unless Kind is LinkUnresolved.
type ParentLink struct {
	Kind       LinkKind `json:"kind"`
	SiteID     string   `json:"site_id,omitempty"`
	ExternalID string   `json:"external_id,omitempty"`
	Hops       int      `json:"hops"`
	Evidence   Evidence `json:"evidence,omitempty"`
}

// Unresolved returns the explicit root marker.
func Unresolved() ParentLink {
	return ParentLink{Kind: LinkUnresolved}
}

// IsSite reports whether the link points at another site.
func (p ParentLink) IsSite() bool {
	return p.Kind == LinkSite
}

// Flags are per-record data-quality markers.
type Flags struct {
	InsufficientData bool `json:"insufficient_data,omitempty"`
	Engulfed         bool `json:"engulfed,omitempty"`
	UnmappedCircuits bool `json:"unmapped_circuits,omitempty"`
	CycleBroken      bool `json:"cycle_broken,omitempty"`
}

// Index maps site identifiers to their position in the input slice.
// Duplicate identifiers keep the first position.
func Index(sites []Site) map[string]int {
	idx := make(map[string]int, len(sites))
	for i, s := range sites {
		if _, dup := idx[s.ID]; !dup {
			idx[s.ID] = i
		}
	}
	return idx
}
