package ingest

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/dd0wney/cluso-gridmap/pkg/config"
	"github.com/dd0wney/cluso-gridmap/pkg/geom"
	"github.com/dd0wney/cluso-gridmap/pkg/network"
	"github.com/dd0wney/cluso-gridmap/pkg/pipeline"
	"github.com/dd0wney/cluso-gridmap/pkg/topology"
	"github.com/dd0wney/cluso-gridmap/pkg/validation"
)

// Layer names used in reports.
const (
	LayerSites        = "sites"
	LayerDistribution = "distribution"
	LayerSubstation   = "substation"
	LayerCircuits     = "circuits"
	LayerSegments     = "segments"
	LayerBuses        = "buses"
)

// Report counts what ingestion read and lists the rows it skipped.
type Report struct {
	Sources int
	Rows    map[string]int
	Skipped []*network.Error
}

func (r *Report) skip(e *network.Error) {
	r.Skipped = append(r.Skipped, e)
}

// Load reads every configured source into a run input. When the inputs
// are WGS84 the returned projection maps them to local metres; it is nil
// for planar inputs.
func Load(cfg config.InputConfig) (pipeline.Input, *Projection, Report, error) {
	report := Report{Rows: make(map[string]int)}

	boundary, err := ReadBoundary(cfg.Boundary)
	if err != nil {
		return pipeline.Input{}, nil, report, fmt.Errorf("boundary: %w", err)
	}

	var proj *Projection
	if cfg.CRS == config.CRSWGS84 && len(boundary) > 0 {
		proj = NewProjection(boundary.Bound().Center())
	}

	b := newBuilder(proj, &report)
	for _, src := range cfg.Sources {
		profile, err := Lookup(src.Profile)
		if err != nil {
			return pipeline.Input{}, nil, report, err
		}
		if err := b.source(src, profile); err != nil {
			return pipeline.Input{}, nil, report, fmt.Errorf("source %s: %w", src.Sites, err)
		}
		report.Sources++
	}

	input := b.input()
	if cfg.External != "" {
		if input.External, err = ReadIdentifiers(cfg.External); err != nil {
			return pipeline.Input{}, nil, report, fmt.Errorf("external buses: %w", err)
		}
	}

	if len(boundary) > 0 {
		planarBoundary := proj.Forward(boundary)
		if input.Boundary, err = geom.FromOrb(planarBoundary); err != nil {
			return pipeline.Input{}, nil, report, fmt.Errorf("boundary: %w", err)
		}
		if input.Boundary, _, err = geom.Repair(input.Boundary); err != nil {
			return pipeline.Input{}, nil, report, fmt.Errorf("boundary: %w", err)
		}
	}
	return input, proj, report, nil
}

type builder struct {
	proj   *Projection
	report *Report

	sites        []network.Site
	index        map[string]int
	located      []bool
	unitCapacity []float64
	circuitSeen  []map[string]bool

	segments  []network.Segment
	ownership map[string]string
	buses     map[string]string
}

func newBuilder(proj *Projection, report *Report) *builder {
	return &builder{
		proj:      proj,
		report:    report,
		index:     make(map[string]int),
		ownership: make(map[string]string),
		buses:     make(map[string]string),
	}
}

func (b *builder) rows(path, layer string, p Profile) ([]Row, error) {
	if path == "" {
		return nil, nil
	}
	rows, err := ReadRows(path, p.Lon, p.Lat)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", layer, err)
	}
	for i := range rows {
		rows[i].Geometry = b.proj.Forward(rows[i].Geometry)
	}
	b.report.Rows[layer] += len(rows)
	return rows, nil
}

func (b *builder) rowError(p Profile, layer string, row int, err error) {
	b.report.skip(network.NewError(network.ErrInputInconsistency, "ingest").
		Ref(fmt.Sprintf("%s/%s row %d", p.Name, layer, row+1)).Cause(err).Build())
}

func (b *builder) source(src config.SourceConfig, p Profile) error {
	rows, err := b.rows(src.Sites, LayerSites, p)
	if err != nil {
		return err
	}
	for i, row := range rows {
		rec, err := decode[siteRecord](p.Sites, row.Props)
		if err == nil {
			err = validation.ValidateIdentifier(rec.ID)
		}
		if err != nil {
			b.rowError(p, LayerSites, i, err)
			continue
		}
		b.addSite(rec, row.Geometry, p)
	}

	if rows, err = b.rows(src.Distribution, LayerDistribution, p); err != nil {
		return err
	}
	b.distribution(rows, p)

	substation := src.Substation
	if substation == "" && p.SharedUnits {
		substation = src.Distribution
	}
	if rows, err = b.rows(substation, LayerSubstation, p); err != nil {
		return err
	}
	b.substation(rows, p)

	if rows, err = b.rows(src.Circuits, LayerCircuits, p); err != nil {
		return err
	}
	for i, row := range rows {
		rec, err := decode[circuitRecord](p.Circuits, row.Props)
		if err != nil {
			b.rowError(p, LayerCircuits, i, err)
			continue
		}
		if owner, dup := b.ownership[rec.ID]; dup {
			if owner != rec.Owner {
				b.report.skip(network.InconsistencyError("ingest", rec.Owner, rec.ID))
			}
			continue
		}
		b.ownership[rec.ID] = rec.Owner
	}

	if rows, err = b.rows(src.Segments, LayerSegments, p); err != nil {
		return err
	}
	for i, row := range rows {
		rec, err := decode[segmentRecord](p.Segments, row.Props)
		if err != nil {
			b.rowError(p, LayerSegments, i, err)
			continue
		}
		b.segments = append(b.segments, network.Segment{ID: rec.ID, From: rec.From, To: rec.To, Path: pathOf(row.Geometry)})
	}

	if rows, err = b.rows(src.Buses, LayerBuses, p); err != nil {
		return err
	}
	for i, row := range rows {
		rec, err := decode[busRecord](p.Buses, row.Props)
		if err != nil {
			b.rowError(p, LayerBuses, i, err)
			continue
		}
		if topology.IgnoredEndpoint(rec.Endpoint) {
			continue
		}
		if _, dup := b.buses[rec.Endpoint]; !dup {
			b.buses[rec.Endpoint] = rec.Site
		}
	}
	return nil
}

func (b *builder) addSite(rec siteRecord, g orb.Geometry, p Profile) {
	if _, dup := b.index[rec.ID]; dup {
		b.report.skip(network.InconsistencyError("ingest", rec.ID, "duplicate site"))
		return
	}
	s := network.Site{ID: rec.ID, Name: rec.Name, Distributor: p.Distributor, Capacity: rec.Capacity}
	located := false
	if g != nil {
		s.Location, located = pointOf(g), true
	}
	b.index[rec.ID] = len(b.sites)
	b.sites = append(b.sites, s)
	b.located = append(b.located, located)
	b.unitCapacity = append(b.unitCapacity, 0)
	b.circuitSeen = append(b.circuitSeen, make(map[string]bool))
}

func (b *builder) distribution(rows []Row, p Profile) {
	for i, row := range rows {
		rec, err := decode[unitRecord](p.Distribution, row.Props)
		if err != nil {
			b.rowError(p, LayerDistribution, i, err)
			continue
		}
		idx, ok := b.index[rec.Site]
		if !ok {
			b.report.skip(network.InconsistencyError("ingest", rec.Site, "distribution unit"))
			continue
		}
		s := &b.sites[idx]
		s.Equipment.DistributionUnits++
		if row.Geometry != nil {
			s.Samples = append(s.Samples, pointOf(row.Geometry))
		}
		if c := rec.Circuit; !topology.IgnoredEndpoint(c) && !b.circuitSeen[idx][c] {
			b.circuitSeen[idx][c] = true
			s.Equipment.DistributionCircuits = append(s.Equipment.DistributionCircuits, c)
		}
	}
}

func (b *builder) substation(rows []Row, p Profile) {
	for i, row := range rows {
		rec, err := decode[unitRecord](p.Substation, row.Props)
		if err != nil {
			b.rowError(p, LayerSubstation, i, err)
			continue
		}
		idx, ok := b.index[rec.Site]
		if !ok {
			b.report.skip(network.InconsistencyError("ingest", rec.Site, "substation unit"))
			continue
		}
		b.sites[idx].Equipment.SubstationUnits++
		b.unitCapacity[idx] += rec.Capacity
	}
}

// input finalises the sites: capacity from substation units when they
// declare any, location from the samples when the site row had none.
// Sites that cannot be placed are dropped.
func (b *builder) input() pipeline.Input {
	in := pipeline.Input{
		Segments:  b.segments,
		Ownership: b.ownership,
		Buses:     b.buses,
	}
	for i, s := range b.sites {
		if b.unitCapacity[i] > 0 {
			s.Capacity = b.unitCapacity[i]
		}
		if !b.located[i] {
			if len(s.Samples) == 0 {
				b.report.skip(network.NewError(network.ErrInsufficientData, "ingest").Site(s.ID).Ref("no location").Build())
				continue
			}
			s.Location, _ = planar.CentroidArea(orb.MultiPoint(s.Samples))
		}
		in.Sites = append(in.Sites, s)
	}
	return in
}

// pointOf reduces a geometry to a representative point.
func pointOf(g orb.Geometry) orb.Point {
	if p, ok := g.(orb.Point); ok {
		return p
	}
	c, _ := planar.CentroidArea(g)
	return c
}

// pathOf keeps the longest part of a line geometry.
func pathOf(g orb.Geometry) orb.LineString {
	switch g := g.(type) {
	case orb.LineString:
		return g
	case orb.MultiLineString:
		var best orb.LineString
		bestLen := -1.0
		for _, ls := range g {
			if l := planar.Length(ls); l > bestLen {
				best, bestLen = ls, l
			}
		}
		return best
	}
	return nil
}
