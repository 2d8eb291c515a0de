// Package pipeline runs the territory and hierarchy stages over one
// snapshot and assembles the per-site records and diagnostics.
package pipeline

import (
	"time"

	"github.com/dd0wney/cluso-gridmap/pkg/geom"
	"github.com/dd0wney/cluso-gridmap/pkg/network"
)

// Input is everything a run reads. Coordinates are planar metres.
type Input struct {
	Sites     []network.Site
	Segments  []network.Segment
	Ownership map[string]string // circuit -> owning site
	External  []string          // supply buses outside the study area
	Buses     map[string]string // endpoint -> site owning the busbar
	Boundary  *geom.Geometry
}

// SiteResult is the output record of one site.
type SiteResult struct {
	ID                   string
	Name                 string
	Distributor          string
	Territory            *geom.Geometry
	Area                 float64
	Depth                int
	Role                 network.Role
	Parent               network.ParentLink
	Tier                 int
	Flags                network.Flags
	Capacity             float64
	ConsolidatedCapacity float64
	Feeders              int
}

// GapInfo describes a gap piece no site bordered.
type GapInfo struct {
	Area     float64   `json:"area_m2"`
	Centroid []float64 `json:"centroid"`
}

// StageTiming is the wall time of one stage.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration_ns"`
}

// Diagnostics lists every recoverable condition the run met.
type Diagnostics struct {
	RunID           string           `json:"run_id"`
	Engulfed        []string         `json:"engulfed"`
	Dropped         []string         `json:"dropped"`
	Fallback        []string         `json:"fallback"`
	Unassigned      []GapInfo        `json:"unassigned_gaps"`
	GapPieces       map[string]int   `json:"gap_pieces"`
	Unresolved      []string         `json:"unresolved"`
	BrokenCycles    [][]string       `json:"broken_cycles"`
	Inconsistencies []*network.Error `json:"inconsistencies"`
	Repairs         []*network.Error `json:"repairs"`
	ExcludedArea    float64          `json:"excluded_area_m2"`
	Stages          []StageTiming    `json:"stages"`
}

// Result is the output of a run, one record per input site in input order.
type Result struct {
	Sites       []SiteResult
	Diagnostics Diagnostics
}
