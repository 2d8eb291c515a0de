package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RecordStage records the duration of a pipeline stage
func (r *Registry) RecordStage(stage string, duration time.Duration) {
	r.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordStageError counts a fatal error in a stage
func (r *Registry) RecordStageError(stage string) {
	r.StageErrors.WithLabelValues(stage).Inc()
}

// RecordGapPiece counts a gap piece by outcome
func (r *Registry) RecordGapPiece(outcome string) {
	r.GapPiecesTotal.WithLabelValues(outcome).Inc()
}

// RecordRepair counts a geometry repair; dropped means nothing survived it
func (r *Registry) RecordRepair(dropped bool) {
	outcome := "repaired"
	if dropped {
		outcome = "dropped"
	}
	r.GeometryRepairsTotal.WithLabelValues(outcome).Inc()
}

// RecordInconsistency counts a skipped reference
func (r *Registry) RecordInconsistency(op string) {
	r.InconsistenciesTotal.WithLabelValues(op).Inc()
}

// RecordSearch observes the hop count of a successful parent search
func (r *Registry) RecordSearch(hops int) {
	r.SearchHops.Observe(float64(hops))
}

// SetRoles replaces the role gauges with counts
func (r *Registry) SetRoles(counts map[string]int) {
	r.SitesByRole.Reset()
	for role, n := range counts {
		r.SitesByRole.WithLabelValues(role).Set(float64(n))
	}
}

// SetLinks replaces the parent-link gauges with counts
func (r *Registry) SetLinks(counts map[string]int) {
	r.ParentLinksTotal.Reset()
	for kind, n := range counts {
		r.ParentLinksTotal.WithLabelValues(kind).Set(float64(n))
	}
}

// MarkRun labels the run and stamps its completion time
func (r *Registry) MarkRun(runID, priority, tieBreak string, finished time.Time) {
	r.RunInfo.WithLabelValues(runID, priority, tieBreak).Set(1)
	r.LastRunTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile writes every metric in the node-exporter textfile format.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
