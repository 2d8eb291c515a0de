// Package export serialises a run result and publishes the artifacts to
// local files, S3 and PostgreSQL.
package export

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"

	"github.com/dd0wney/cluso-gridmap/pkg/pipeline"
)

// Unprojector maps planar geometries back to the coordinates the input was
// read in. *ingest.Projection implements it.
type Unprojector interface {
	Inverse(g orb.Geometry) orb.Geometry
}

// FeatureOptions controls how territories are rendered.
type FeatureOptions struct {
	// Simplify is the Douglas-Peucker tolerance in planar metres; 0 keeps
	// every vertex.
	Simplify float64
	// Unproject is applied after simplification; nil leaves planar metres.
	Unproject Unprojector
}

// Features renders one feature per site, in result order, keyed by site id.
// Sites with an empty territory get a null geometry.
func Features(res *pipeline.Result, opts FeatureOptions) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if res == nil {
		return fc
	}
	for i := range res.Sites {
		s := &res.Sites[i]
		f := geojson.NewFeature(territory(s, opts))
		f.ID = s.ID
		f.Properties = properties(s)
		fc.Append(f)
	}
	return fc
}

// MarshalFeatures renders the feature collection as GeoJSON.
func MarshalFeatures(res *pipeline.Result, opts FeatureOptions) ([]byte, error) {
	data, err := Features(res, opts).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal features: %w", err)
	}
	return data, nil
}

func territory(s *pipeline.SiteResult, opts FeatureOptions) orb.Geometry {
	g := s.Territory.Orb()
	if g == nil {
		return nil
	}
	if opts.Simplify > 0 {
		g = simplify.DouglasPeucker(opts.Simplify).Simplify(g)
		if g == nil {
			return nil
		}
	}
	if opts.Unproject != nil {
		g = opts.Unproject.Inverse(g)
	}
	return g
}

func properties(s *pipeline.SiteResult) geojson.Properties {
	props := geojson.Properties{
		"id":                    s.ID,
		"name":                  s.Name,
		"distributor":           s.Distributor,
		"role":                  string(s.Role),
		"parent_kind":           string(s.Parent.Kind),
		"hops":                  s.Parent.Hops,
		"tier":                  s.Tier,
		"capacity":              s.Capacity,
		"consolidated_capacity": s.ConsolidatedCapacity,
		"feeders":               s.Feeders,
		"area_m2":               s.Area,
		"depth":                 s.Depth,
		"insufficient_data":     s.Flags.InsufficientData,
		"engulfed":              s.Flags.Engulfed,
		"unmapped_circuits":     s.Flags.UnmappedCircuits,
		"cycle_broken":          s.Flags.CycleBroken,
	}
	if s.Parent.SiteID != "" {
		props["parent_site"] = s.Parent.SiteID
	}
	if s.Parent.ExternalID != "" {
		props["parent_external"] = s.Parent.ExternalID
	}
	if s.Parent.Evidence != "" {
		props["evidence"] = string(s.Parent.Evidence)
	}
	return props
}
