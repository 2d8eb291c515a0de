// Package ingest reads distributor exports into the typed inputs of a run.
// Each distributor names its layers and columns differently; a Profile maps
// the logical fields onto one layout and is consulted nowhere else.
package ingest

import (
	"fmt"
	"sort"
	"strings"
)

// Fields maps logical field names (the mapstructure keys of the record
// types) to source column names.
type Fields map[string]string

// Profile describes one distributor layout.
type Profile struct {
	Name        string
	Distributor string

	Sites        Fields
	Distribution Fields
	Substation   Fields
	Circuits     Fields
	Segments     Fields
	Buses        Fields

	// SharedUnits means a single transformer layer carries both the
	// distribution and the substation units.
	SharedUnits bool

	// Lon and Lat name the coordinate columns of CSV exports.
	Lon string
	Lat string
}

var profiles = map[string]Profile{
	"light": {
		Name:         "light",
		Distributor:  "LIGHT",
		Sites:        Fields{"id": "COD_ID", "name": "NOM"},
		Distribution: Fields{"site": "SUB", "circuit": "CTMT"},
		Substation:   Fields{"site": "SUB", "capacity": "POT_NOM"},
		Circuits:     Fields{"id": "COD_ID", "owner": "SUB"},
		Segments:     Fields{"id": "COD_ID", "from": "PAC_1", "to": "PAC_2"},
		Buses:        Fields{"endpoint": "PAC", "site": "SUB"},
		Lon:          "X",
		Lat:          "Y",
	},
	"enel": {
		Name:         "enel",
		Distributor:  "ENEL",
		Sites:        Fields{"id": "COD_ID", "name": "NOME"},
		Distribution: Fields{"site": "SUB", "circuit": "CTMT"},
		Substation:   Fields{"site": "SUB", "capacity": "POT_NOM"},
		Circuits:     Fields{"id": "COD_ID", "owner": "SUB"},
		Segments:     Fields{"id": "COD_ID", "from": "PAC_1", "to": "PAC_2"},
		Buses:        Fields{"endpoint": "PAC", "site": "SUB"},
		SharedUnits:  true,
		Lon:          "X",
		Lat:          "Y",
	},
	"generic": {
		Name:         "generic",
		Sites:        Fields{"id": "id", "name": "name", "capacity": "capacity"},
		Distribution: Fields{"site": "site", "circuit": "circuit"},
		Substation:   Fields{"site": "site", "capacity": "capacity"},
		Circuits:     Fields{"id": "id", "owner": "owner"},
		Segments:     Fields{"id": "id", "from": "from", "to": "to"},
		Buses:        Fields{"endpoint": "endpoint", "site": "site"},
		Lon:          "lon",
		Lat:          "lat",
	},
}

// Lookup returns the named profile. Names are case-insensitive.
func Lookup(name string) (Profile, error) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Profile{}, fmt.Errorf("unknown schema profile %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Names lists the built-in profiles in sorted order.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// remap renames source columns to logical keys. Columns the profile does
// not mention are dropped; a missing column simply leaves its key unset.
func (f Fields) remap(props map[string]any) map[string]any {
	out := make(map[string]any, len(f))
	for logical, column := range f {
		if v, ok := lookupColumn(props, column); ok {
			out[logical] = v
		}
	}
	return out
}

// lookupColumn finds a column exactly, then case-insensitively.
func lookupColumn(props map[string]any, column string) (any, bool) {
	if v, ok := props[column]; ok {
		return v, true
	}
	for k, v := range props {
		if strings.EqualFold(k, column) {
			return v, true
		}
	}
	return nil, false
}
