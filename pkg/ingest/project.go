package ingest

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const earthRadius = 6378137.0 // WGS84 semi-major axis, metres

// Projection converts between WGS84 longitude/latitude and local planar
// metres. It is an equirectangular projection around Origin, accurate
// enough for a metropolitan study area and area-preserving to within a
// fraction of a percent there.
type Projection struct {
	Origin orb.Point
	scale  float64 // cos(origin latitude)
}

// NewProjection centres a projection on origin (lon, lat).
func NewProjection(origin orb.Point) *Projection {
	return &Projection{Origin: origin, scale: math.Cos(origin.Lat() * math.Pi / 180)}
}

// ToPlanar projects a WGS84 point.
func (p *Projection) ToPlanar(pt orb.Point) orb.Point {
	return orb.Point{
		earthRadius * (pt.Lon() - p.Origin.Lon()) * math.Pi / 180 * p.scale,
		earthRadius * (pt.Lat() - p.Origin.Lat()) * math.Pi / 180,
	}
}

// ToWGS84 reverses ToPlanar.
func (p *Projection) ToWGS84(pt orb.Point) orb.Point {
	return orb.Point{
		p.Origin.Lon() + pt[0]/(earthRadius*p.scale)*180/math.Pi,
		p.Origin.Lat() + pt[1]/earthRadius*180/math.Pi,
	}
}

// Forward projects g in place and returns it.
func (p *Projection) Forward(g orb.Geometry) orb.Geometry {
	if p == nil || g == nil {
		return g
	}
	return project.Geometry(g, p.ToPlanar)
}

// Inverse unprojects g in place and returns it.
func (p *Projection) Inverse(g orb.Geometry) orb.Geometry {
	if p == nil || g == nil {
		return g
	}
	return project.Geometry(g, p.ToWGS84)
}
