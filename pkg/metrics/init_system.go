package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRunMetrics() {
	r.RunInfo = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridmap_run_info",
			Help: "Always 1; labels identify the run",
		},
		[]string{"run_id", "priority", "tie_break"},
	)

	r.LastRunTimestamp = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gridmap_last_run_timestamp_seconds",
			Help: "Unix time the run finished",
		},
	)

	r.Workers = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gridmap_workers",
			Help: "Worker goroutines used for parallel stages",
		},
	)
}
