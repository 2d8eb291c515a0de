package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/paulmach/orb/planar"

	"github.com/dd0wney/cluso-gridmap/pkg/config"
	"github.com/dd0wney/cluso-gridmap/pkg/geom"
	"github.com/dd0wney/cluso-gridmap/pkg/hierarchy"
	"github.com/dd0wney/cluso-gridmap/pkg/logging"
	"github.com/dd0wney/cluso-gridmap/pkg/network"
	"github.com/dd0wney/cluso-gridmap/pkg/parallel"
	"github.com/dd0wney/cluso-gridmap/pkg/territory"
	"github.com/dd0wney/cluso-gridmap/pkg/topology"
)

// Stage names, used in logs, metrics and diagnostics.
const (
	StageClaims    = "claims"
	StageResolve   = "resolve"
	StageHoles     = "holes"
	StageTopology  = "topology"
	StageHierarchy = "hierarchy"
)

type run struct {
	cfg  config.Config
	in   Input
	opts options
	log  logging.Logger
	pool *parallel.WorkerPool
	diag Diagnostics
}

// Run partitions the boundary among the input sites and infers their
// feeding hierarchy. It returns network.ErrEmptyInput when there are no
// sites or no boundary; every other problem is recovered and reported in
// the diagnostics. Run does no I/O and does not modify in.
func Run(cfg config.Config, in Input, opts ...Option) (*Result, error) {
	if len(in.Sites) == 0 {
		return nil, network.NewError(network.ErrEmptyInput, "run").Ref("sites").Build()
	}
	if in.Boundary.IsEmpty() {
		return nil, network.NewError(network.ErrEmptyInput, "run").Ref("boundary").Build()
	}

	o := buildOptions(opts)
	r := &run{
		cfg:  cfg,
		in:   in,
		opts: o,
		log:  o.logger.With(logging.String("run_id", o.runID)),
		diag: Diagnostics{RunID: o.runID, GapPieces: make(map[string]int)},
	}

	pool, err := parallel.NewWorkerPool(cfg.Runtime.Workers, r.log)
	if err != nil {
		return nil, fmt.Errorf("worker pool: %w", err)
	}
	defer pool.Close()
	r.pool = pool

	o.metrics.Workers.Set(float64(pool.Workers()))
	o.metrics.SitesTotal.Set(float64(len(in.Sites)))
	r.log.Info("run started",
		logging.Count(len(in.Sites)),
		logging.Int("segments", len(in.Segments)),
		logging.Int("workers", pool.Workers()),
		logging.Bool("clip_to_boundary", cfg.Territory.ClipToBoundary))

	claims := r.claims()
	resolution := r.resolve(claims)
	filled := r.fill(resolution)
	graph := r.topology(filled.Territories)
	assignment := r.hierarchy(graph)

	result := r.assemble(claims, resolution, filled, assignment)
	o.metrics.MarkRun(o.runID, cfg.Territory.Priority, cfg.Hierarchy.SatelliteTieBreak, time.Now())
	r.log.Info("run finished",
		logging.Int("engulfed", len(r.diag.Engulfed)),
		logging.Int("unresolved", len(r.diag.Unresolved)),
		logging.Int("inconsistencies", len(r.diag.Inconsistencies)))
	return result, nil
}

// stage times fn, logs it and records the duration.
func (r *run) stage(name string, fn func() error) error {
	timer := logging.StartTimer(r.log, "stage finished", logging.Stage(name))
	err := fn()
	var elapsed time.Duration
	if err != nil {
		elapsed = timer.EndError(err)
		r.opts.metrics.RecordStageError(name)
	} else {
		elapsed = timer.End()
	}
	r.opts.metrics.RecordStage(name, elapsed)
	r.diag.Stages = append(r.diag.Stages, StageTiming{Stage: name, Duration: elapsed})
	return err
}

func (r *run) claims() []territory.Claim {
	var claims []territory.Claim
	_ = r.stage(StageClaims, func() error {
		claims = territory.Build(r.in.Sites, r.cfg.Territory)
		for _, c := range claims {
			if c.Fallback {
				r.diag.Fallback = append(r.diag.Fallback, c.SiteID)
				r.opts.metrics.FallbackSitesTotal.Inc()
				r.log.Debug("fallback disk used", logging.Site(c.SiteID))
			}
		}
		return nil
	})
	return claims
}

func (r *run) resolve(claims []territory.Claim) territory.Resolution {
	var res territory.Resolution
	_ = r.stage(StageResolve, func() error {
		res = territory.Resolve(claims, r.cfg.Territory)
		engulfed := append([]int(nil), res.Engulfed...)
		sort.Ints(engulfed)
		for _, pos := range engulfed {
			id := claims[pos].SiteID
			r.diag.Engulfed = append(r.diag.Engulfed, id)
			r.opts.metrics.EngulfedSitesTotal.Inc()
			r.log.Warn("site engulfed", logging.Site(id))
		}
		r.repairs(res.Repairs)
		r.dropped(res.Failures)
		return nil
	})
	return res
}

func (r *run) fill(res territory.Resolution) territory.FillReport {
	var report territory.FillReport
	_ = r.stage(StageHoles, func() error {
		report = territory.FillHoles(res.Territories, r.in.Sites, r.in.Boundary, r.cfg.Territory, r.pool)
		for _, p := range report.Pieces {
			r.diag.GapPieces[p.Outcome]++
			r.opts.metrics.RecordGapPiece(p.Outcome)
			switch p.Outcome {
			case territory.OutcomeUnassigned:
				c, _ := planar.CentroidArea(p.Shape.Orb())
				r.diag.Unassigned = append(r.diag.Unassigned, GapInfo{Area: p.Area, Centroid: []float64{c[0], c[1]}})
				r.log.Warn("gap piece unassigned", logging.Area(p.Area))
			case territory.OutcomeFallback:
				r.log.Warn("gap piece absorbed by first neighbour", logging.Area(p.Area),
					logging.Site(r.in.Sites[p.Neighbours[0]].ID))
			}
		}
		r.repairs(report.Issues)
		r.diag.ExcludedArea = report.ExcludedArea
		r.opts.metrics.ExcludedAreaSquareM.Set(report.ExcludedArea)
		return nil
	})
	return report
}

func (r *run) topology(territories []*geom.Geometry) *topology.Graph {
	var g *topology.Graph
	_ = r.stage(StageTopology, func() error {
		var report topology.Report
		g, report = topology.Build(r.in.Segments, r.in.Sites, territories, r.in.Buses, r.cfg.Topology, r.pool)
		r.opts.metrics.SegmentsTotal.Set(float64(report.Segments))
		r.opts.metrics.EndpointsTotal.Set(float64(report.Endpoints))
		for _, e := range report.Inconsistencies {
			r.inconsistency(e, logging.Endpoint(e.Ref))
		}
		for _, e := range report.Issues {
			if e.Ref != "" {
				r.repair(e, logging.Segment(e.Ref))
				continue
			}
			r.repair(e)
		}
		r.log.Debug("graph built",
			logging.Int("segments", report.Segments),
			logging.Int("endpoints", report.Endpoints),
			logging.Int("attached", report.Attached),
			logging.Int("bus_attachments", report.BusAttachments))
		return nil
	})
	return g
}

func (r *run) hierarchy(g *topology.Graph) hierarchy.Assignment {
	var a hierarchy.Assignment
	_ = r.stage(StageHierarchy, func() error {
		a = hierarchy.Classify(r.in.Sites, r.in.Ownership, g, r.in.External, r.cfg.Hierarchy, r.pool)

		r.log.Debug("external buses indexed", logging.Count(a.ExternalBuses))
		for _, issue := range a.Issues {
			switch {
			case errors.Is(issue, network.ErrInputInconsistency):
				r.inconsistency(issue, logging.String("ref", issue.Ref))
			case errors.Is(issue, network.ErrUnresolvedHierarchy):
				r.log.Info("feeder unresolved", logging.Site(issue.SiteID), logging.Error(issue.Cause))
			default:
				r.log.Debug("hierarchy issue", logging.Error(issue))
			}
		}
		for _, s := range a.Searches {
			if s.Found {
				r.opts.metrics.RecordSearch(s.Hops)
			}
		}
		for _, i := range a.Unresolved {
			r.diag.Unresolved = append(r.diag.Unresolved, r.in.Sites[i].ID)
		}
		for _, c := range a.Cycles {
			ids := make([]string, len(c))
			for k, i := range c {
				ids[k] = r.in.Sites[i].ID
			}
			r.diag.BrokenCycles = append(r.diag.BrokenCycles, ids)
			r.opts.metrics.CyclesBrokenTotal.Inc()
			r.log.Warn("feeder cycle broken", logging.Site(r.in.Sites[c.Min()].ID), logging.Count(len(c)))
		}
		r.opts.metrics.SetRoles(a.RoleCounts())
		r.opts.metrics.SetLinks(a.LinkCounts())
		return nil
	})
	return a
}

func (r *run) repairs(issues []*network.Error) {
	for _, e := range issues {
		r.repair(e)
	}
}

func (r *run) repair(e *network.Error, fields ...logging.Field) {
	r.diag.Repairs = append(r.diag.Repairs, e)
	r.opts.metrics.RecordRepair(false)
	r.log.Warn("geometry repaired", append([]logging.Field{logging.Site(e.SiteID), logging.Error(e.Cause)}, fields...)...)
}

// dropped records geometry failures that cost a site its contribution.
func (r *run) dropped(failures []*network.Error) {
	for _, e := range failures {
		r.diag.Repairs = append(r.diag.Repairs, e)
		r.diag.Dropped = append(r.diag.Dropped, e.SiteID)
		r.opts.metrics.RecordRepair(true)
		r.log.Warn("site dropped after geometry failure", logging.Site(e.SiteID), logging.Error(e.Cause))
	}
}

func (r *run) inconsistency(e *network.Error, ref logging.Field) {
	r.diag.Inconsistencies = append(r.diag.Inconsistencies, e)
	r.opts.metrics.RecordInconsistency(e.Op)
	r.log.Warn("input inconsistency", logging.Site(e.SiteID), ref)
}

func (r *run) assemble(claims []territory.Claim, res territory.Resolution, filled territory.FillReport, a hierarchy.Assignment) *Result {
	out := &Result{Sites: make([]SiteResult, len(r.in.Sites))}
	total := 0.0
	for i, s := range r.in.Sites {
		rec := a.Records[i]
		t := filled.Territories[i]
		sr := SiteResult{
			ID:                   s.ID,
			Name:                 s.Name,
			Distributor:          s.Distributor,
			Territory:            t,
			Area:                 t.Area(),
			Depth:                res.Depth[i],
			Role:                 rec.Role,
			Parent:               rec.Parent,
			Tier:                 rec.Tier,
			Flags:                rec.Flags,
			Capacity:             s.Capacity,
			ConsolidatedCapacity: rec.ConsolidatedCapacity,
			Feeders:              rec.Feeders,
		}
		sr.Flags.InsufficientData = claims[i].Fallback
		sr.Flags.Engulfed = t.IsEmpty()
		total += sr.Area
		out.Sites[i] = sr
	}
	r.opts.metrics.TerritoryAreaSquareM.Set(total)

	out.Diagnostics = r.diag
	return out
}
