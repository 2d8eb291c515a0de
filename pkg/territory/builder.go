// Package territory turns site samples into exclusive service territories:
// initial claims, priority-ordered conflict resolution and gap filling.
package territory

import (
	"github.com/paulmach/orb"

	"github.com/dd0wney/cluso-gridmap/pkg/config"
	"github.com/dd0wney/cluso-gridmap/pkg/geom"
	"github.com/dd0wney/cluso-gridmap/pkg/network"
)

// Claim is a site's initial, possibly overlapping, coverage polygon.
type Claim struct {
	Site     int // index into the site slice
	SiteID   string
	Location orb.Point
	Capacity float64
	Shape    *geom.Geometry
	Fallback bool // shape is the fallback disk
}

// Build returns one claim per site, in input order. Sites with fewer than
// three usable samples, or whose hull has no area, get a disk of
// FallbackRadius around their reference point. Missing geometry is normal
// and never an error.
func Build(sites []network.Site, cfg config.TerritoryConfig) []Claim {
	claims := make([]Claim, len(sites))
	for i, s := range sites {
		c := Claim{
			Site:     i,
			SiteID:   s.ID,
			Location: s.Location,
			Capacity: s.Capacity,
		}

		hull, err := geom.Hull(s.Samples)
		if err == nil && hull != nil {
			c.Shape = hull
		} else {
			c.Fallback = true
			c.Shape, _ = geom.Disk(s.Location, cfg.FallbackRadius)
		}
		claims[i] = c
	}
	return claims
}
