package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for one run. There is no global instance;
// each run creates its own so repeated runs never share counters.
type Registry struct {
	// Pipeline Metrics
	StageDuration *prometheus.HistogramVec
	StageErrors   *prometheus.CounterVec
	SitesTotal    prometheus.Gauge

	// Territory Metrics
	EngulfedSitesTotal   prometheus.Counter
	FallbackSitesTotal   prometheus.Counter
	GapPiecesTotal       *prometheus.CounterVec
	GeometryRepairsTotal *prometheus.CounterVec
	TerritoryAreaSquareM prometheus.Gauge
	ExcludedAreaSquareM  prometheus.Gauge

	// Topology Metrics
	SegmentsTotal        prometheus.Gauge
	EndpointsTotal       prometheus.Gauge
	InconsistenciesTotal *prometheus.CounterVec

	// Hierarchy Metrics
	SitesByRole       *prometheus.GaugeVec
	ParentLinksTotal  *prometheus.GaugeVec
	SearchHops        prometheus.Histogram
	CyclesBrokenTotal prometheus.Counter

	// Run Metrics
	RunInfo          *prometheus.GaugeVec
	LastRunTimestamp prometheus.Gauge
	Workers          prometheus.Gauge

	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initPipelineMetrics()
	r.initTerritoryMetrics()
	r.initTopologyMetrics()
	r.initHierarchyMetrics()
	r.initRunMetrics()

	return r
}
