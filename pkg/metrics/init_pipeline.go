package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPipelineMetrics() {
	r.StageDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridmap_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"stage"}, // build, resolve, holes, topology, classify
	)

	r.StageErrors = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridmap_stage_errors_total",
			Help: "Fatal errors by stage",
		},
		[]string{"stage"},
	)

	r.SitesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gridmap_sites_total",
			Help: "Number of sites in the input snapshot",
		},
	)
}

func (r *Registry) initTerritoryMetrics() {
	r.EngulfedSitesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "gridmap_engulfed_sites_total",
			Help: "Sites left with an empty territory after conflict resolution",
		},
	)

	r.FallbackSitesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "gridmap_fallback_sites_total",
			Help: "Sites whose initial claim is the fallback disk",
		},
	)

	r.GapPiecesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridmap_gap_pieces_total",
			Help: "Gap pieces by outcome",
		},
		[]string{"outcome"}, // absorbed, split, fallback, unassigned, discarded
	)

	r.GeometryRepairsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridmap_geometry_repairs_total",
			Help: "Geometry repairs by outcome",
		},
		[]string{"outcome"}, // repaired, dropped
	)

	r.TerritoryAreaSquareM = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gridmap_territory_area_square_meters",
			Help: "Total area assigned to territories",
		},
	)

	r.ExcludedAreaSquareM = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gridmap_excluded_area_square_meters",
			Help: "Claimed area outside the study boundary",
		},
	)
}

func (r *Registry) initTopologyMetrics() {
	r.SegmentsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gridmap_segments_total",
			Help: "Connectivity segments in the graph",
		},
	)

	r.EndpointsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gridmap_endpoints_total",
			Help: "Distinct endpoints in the graph",
		},
	)

	r.InconsistenciesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridmap_input_inconsistencies_total",
			Help: "References to identifiers missing from the site table",
		},
		[]string{"op"},
	)
}

func (r *Registry) initHierarchyMetrics() {
	r.SitesByRole = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridmap_sites_by_role",
			Help: "Number of sites per hierarchy role",
		},
		[]string{"role"},
	)

	r.ParentLinksTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridmap_parent_links",
			Help: "Parent links by kind",
		},
		[]string{"kind"}, // site, external, unresolved
	)

	r.SearchHops = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridmap_parent_search_hops",
			Help:    "Hop distance at which a parent search succeeded",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 50},
		},
	)

	r.CyclesBrokenTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "gridmap_cycles_broken_total",
			Help: "Parent-link cycles broken by the cycle guard",
		},
	)
}
