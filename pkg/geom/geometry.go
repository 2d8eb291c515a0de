// Package geom wraps GEOS for the planar polygon algebra used to carve
// territories. Coordinates are metres; a nil *Geometry is the empty set.
//
// All geometries share the go-geos default context, which serialises GEOS
// calls internally, so values may be used from several goroutines.
package geom

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-geos"
)

// GEOS type identifiers for areal results.
const (
	typePolygon      = 3
	typeMultiPolygon = 6
)

// quadrantSegments is the arc resolution used for every buffer.
const quadrantSegments = 8

// Geometry is an areal geometry (Polygon or MultiPolygon).
type Geometry struct {
	g *geos.Geom
}

func wrap(g *geos.Geom) *Geometry {
	if g == nil || g.IsEmpty() {
		return nil
	}
	return &Geometry{g: g}
}

// guard runs a GEOS call and turns a GEOS panic into an error.
func guard(op string, fn func() *geos.Geom) (result *geos.Geom, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%s: %v", op, r)
		}
	}()
	return fn(), nil
}

// FromOrb converts an orb geometry. Non-areal input is accepted; callers use
// it for points and lines in predicates.
func FromOrb(o orb.Geometry) (*Geometry, error) {
	if o == nil {
		return nil, nil
	}
	data, err := json.Marshal(geojson.NewGeometry(o))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", o.GeoJSONType(), err)
	}
	g, err := geos.NewGeomFromGeoJSON(string(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", o.GeoJSONType(), err)
	}
	return wrap(g), nil
}

// MustFromOrb is FromOrb for literals in tests and fixtures.
func MustFromOrb(o orb.Geometry) *Geometry {
	g, err := FromOrb(o)
	if err != nil {
		panic(err)
	}
	return g
}

// Orb converts back to an orb geometry. Empty returns nil.
func (g *Geometry) Orb() orb.Geometry {
	if g.IsEmpty() {
		return nil
	}
	parsed, err := geojson.UnmarshalGeometry([]byte(g.g.ToGeoJSON(-1)))
	if err != nil {
		return nil
	}
	return parsed.Geometry()
}

// IsEmpty reports whether g covers no area.
func (g *Geometry) IsEmpty() bool {
	return g == nil || g.g == nil || g.g.IsEmpty()
}

// Area returns the planar area; empty geometries have zero area.
func (g *Geometry) Area() float64 {
	if g.IsEmpty() {
		return 0
	}
	return g.g.Area()
}

// IsValid reports OGC validity. Empty is valid.
func (g *Geometry) IsValid() bool {
	return g.IsEmpty() || g.g.IsValid()
}

// IsAreal reports whether g is a Polygon or MultiPolygon.
func (g *Geometry) IsAreal() bool {
	if g.IsEmpty() {
		return false
	}
	t := g.g.TypeID()
	return t == typePolygon || t == typeMultiPolygon
}

// Clone returns an independent copy.
func (g *Geometry) Clone() *Geometry {
	if g.IsEmpty() {
		return nil
	}
	return &Geometry{g: g.g.Clone()}
}

// Bound returns the bounding box. Empty returns the zero bound.
func (g *Geometry) Bound() orb.Bound {
	o := g.Orb()
	if o == nil {
		return orb.Bound{}
	}
	return o.Bound()
}

// Difference returns g − other, keeping only areal parts.
func (g *Geometry) Difference(other *Geometry) (*Geometry, error) {
	if g.IsEmpty() {
		return nil, nil
	}
	if other.IsEmpty() {
		return g.Clone(), nil
	}
	out, err := guard("difference", func() *geos.Geom { return g.g.Difference(other.g) })
	if err != nil {
		return nil, err
	}
	return polygonal(out)
}

// Union returns g ∪ other.
func (g *Geometry) Union(other *Geometry) (*Geometry, error) {
	switch {
	case g.IsEmpty():
		return other.Clone(), nil
	case other.IsEmpty():
		return g.Clone(), nil
	}
	out, err := guard("union", func() *geos.Geom { return g.g.Union(other.g) })
	if err != nil {
		return nil, err
	}
	return polygonal(out)
}

// Intersection returns g ∩ other, keeping only areal parts.
func (g *Geometry) Intersection(other *Geometry) (*Geometry, error) {
	if g.IsEmpty() || other.IsEmpty() {
		return nil, nil
	}
	out, err := guard("intersection", func() *geos.Geom { return g.g.Intersection(other.g) })
	if err != nil {
		return nil, err
	}
	return polygonal(out)
}

// Intersects reports whether g and other share any point.
func (g *Geometry) Intersects(other *Geometry) bool {
	if g.IsEmpty() || other.IsEmpty() {
		return false
	}
	return g.g.Intersects(other.g)
}

// Contains reports whether p lies in the interior of g.
func (g *Geometry) Contains(p orb.Point) bool {
	if g.IsEmpty() {
		return false
	}
	pt, err := FromOrb(p)
	if err != nil || pt == nil {
		return false
	}
	return g.g.Contains(pt.g)
}

// Covers reports whether p lies in g or on its boundary.
func (g *Geometry) Covers(p orb.Point) bool {
	if g.IsEmpty() {
		return false
	}
	pt, err := FromOrb(p)
	if err != nil || pt == nil {
		return false
	}
	return g.g.Covers(pt.g)
}

// Buffer grows (d > 0) or shrinks (d < 0) g. Works on any geometry type,
// so it is also how points and lines are turned into areas.
func (g *Geometry) Buffer(d float64) (*Geometry, error) {
	if g.IsEmpty() {
		return nil, nil
	}
	out, err := guard("buffer", func() *geos.Geom { return g.g.Buffer(d, quadrantSegments) })
	if err != nil {
		return nil, err
	}
	return polygonal(out)
}

// Pieces splits g into its connected polygons.
func (g *Geometry) Pieces() []*Geometry {
	if g.IsEmpty() {
		return nil
	}
	if g.g.TypeID() == typePolygon {
		return []*Geometry{g.Clone()}
	}
	n := g.g.NumGeometries()
	pieces := make([]*Geometry, 0, n)
	for i := 0; i < n; i++ {
		if p := wrap(g.g.Geometry(i).Clone()); p != nil {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

// Equal reports whether g and other cover the same point set.
func (g *Geometry) Equal(other *Geometry) bool {
	if g.IsEmpty() || other.IsEmpty() {
		return g.IsEmpty() && other.IsEmpty()
	}
	return g.g.Equals(other.g)
}

// GeoJSON returns the geometry as a GeoJSON object; empty returns "null".
func (g *Geometry) GeoJSON() string {
	if g.IsEmpty() {
		return "null"
	}
	return g.g.ToGeoJSON(-1)
}

// polygonal drops points and lines that set operations can leave behind.
func polygonal(g *geos.Geom) (*Geometry, error) {
	if g == nil || g.IsEmpty() {
		return nil, nil
	}
	switch g.TypeID() {
	case typePolygon, typeMultiPolygon:
		return &Geometry{g: g}, nil
	}

	var mp orb.MultiPolygon
	n := g.NumGeometries()
	for i := 0; i < n; i++ {
		part := &Geometry{g: g.Geometry(i).Clone()}
		switch o := part.Orb().(type) {
		case orb.Polygon:
			mp = append(mp, o)
		case orb.MultiPolygon:
			mp = append(mp, o...)
		}
	}
	if len(mp) == 0 {
		return nil, nil
	}
	if len(mp) == 1 {
		return FromOrb(mp[0])
	}
	merged, err := FromOrb(mp)
	if err != nil || merged == nil {
		return nil, err
	}
	// parts of a collection may touch; a unary union makes them a valid multipolygon
	out, err := guard("unary union", func() *geos.Geom { return merged.g.UnaryUnion() })
	if err != nil {
		return nil, err
	}
	return wrap(out), nil
}
