// Package config loads and validates the YAML run configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-gridmap/pkg/validation"
)

// Priority orders
const (
	PriorityLexicographic = "lexicographic"
	PriorityWeighted      = "weighted"
)

// Influence zones
const (
	ZoneTerritory = "territory"
	ZoneStation   = "station"
)

// Satellite tie-break rules
const (
	TieBreakFirst           = "first"
	TieBreakMostCircuits    = "most-circuits"
	TieBreakLargestCapacity = "largest-capacity"
)

// External identifier matching
const (
	MatchExact   = "exact"
	MatchNumeric = "numeric"
)

// Coordinate reference of the input files
const (
	CRSWGS84  = "wgs84"
	CRSPlanar = "planar"
)

// Config is the complete run configuration. Every stage receives the
// section it needs; nothing is read from package state.
type Config struct {
	Territory TerritoryConfig `yaml:"territory"`
	Topology  TopologyConfig  `yaml:"topology"`
	Hierarchy HierarchyConfig `yaml:"hierarchy"`
	Runtime   RuntimeConfig   `yaml:"runtime"`
	Logging   LoggingConfig   `yaml:"logging"`
	Input     InputConfig     `yaml:"input"`
	Output    OutputConfig    `yaml:"output"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// TerritoryConfig tunes building, resolving and hole filling. Lengths are
// metres, areas square metres.
type TerritoryConfig struct {
	FallbackRadius  float64 `yaml:"fallback_radius" validate:"gt=0"`
	MinGapArea      float64 `yaml:"min_gap_area" validate:"gte=0"`
	BorderTolerance float64 `yaml:"border_tolerance" validate:"gt=0"`
	SeamBuffer      float64 `yaml:"seam_buffer" validate:"gte=0"`
	VoronoiMargin   float64 `yaml:"voronoi_margin" validate:"gte=0"`
	ClipToBoundary  bool    `yaml:"clip_to_boundary"`
	Priority        string  `yaml:"priority" validate:"oneof=lexicographic weighted"`
	DepthWeight     float64 `yaml:"depth_weight" validate:"gte=0"`
	CapacityWeight  float64 `yaml:"capacity_weight" validate:"gte=0"`
	Epsilon         float64 `yaml:"epsilon" validate:"gt=0"`
}

// TopologyConfig tunes the segment-to-site proximity test.
type TopologyConfig struct {
	SegmentTolerance float64 `yaml:"segment_tolerance" validate:"gte=0"`
	InfluenceZone    string  `yaml:"influence_zone" validate:"oneof=territory station"`
}

// HierarchyConfig tunes classification and the parent search.
type HierarchyConfig struct {
	MaxHops              int     `yaml:"max_hops" validate:"gte=1,lte=10000"`
	SatelliteTieBreak    string  `yaml:"satellite_tie_break" validate:"oneof=first most-circuits largest-capacity"`
	ExternalMatch        string  `yaml:"external_match" validate:"oneof=exact numeric"`
	InheritCapacityBelow float64 `yaml:"inherit_capacity_below" validate:"gte=0"`
}

// RuntimeConfig sizes the worker pool; 0 means GOMAXPROCS.
type RuntimeConfig struct {
	Workers int `yaml:"workers" validate:"gte=0"`
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
}

// SourceConfig lists the exports of one distributor. Paths ending in
// .geojson or .json are read as feature collections, anything else as CSV.
type SourceConfig struct {
	Profile      string `yaml:"profile" validate:"required"`
	Sites        string `yaml:"sites" validate:"required"`
	Distribution string `yaml:"distribution"`
	Substation   string `yaml:"substation"`
	Circuits     string `yaml:"circuits"`
	Segments     string `yaml:"segments"`
	Buses        string `yaml:"buses"`
}

// InputConfig names the files a run reads.
type InputConfig struct {
	CRS      string         `yaml:"crs" validate:"oneof=wgs84 planar"`
	Boundary string         `yaml:"boundary"`
	External string         `yaml:"external"`
	Sources  []SourceConfig `yaml:"sources" validate:"dive"`
}

// S3Config publishes artifacts to a bucket when Bucket is set.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// PostgresConfig writes per-site records to a table when DSN is set.
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// OutputConfig controls serialisation and publishing.
type OutputConfig struct {
	GeoJSON     string         `yaml:"geojson"`
	Diagnostics string         `yaml:"diagnostics"`
	Simplify    float64        `yaml:"simplify" validate:"gte=0"`
	Snappy      bool           `yaml:"snappy"`
	S3          S3Config       `yaml:"s3"`
	Postgres    PostgresConfig `yaml:"postgres"`
}

// MetricsConfig writes a Prometheus textfile when Textfile is set.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the configuration used when a key is absent.
func Default() Config {
	return Config{
		Territory: TerritoryConfig{
			FallbackRadius:  0.5,
			MinGapArea:      1.0,
			BorderTolerance: 5.0,
			SeamBuffer:      0.01,
			VoronoiMargin:   10000,
			ClipToBoundary:  true,
			Priority:        PriorityLexicographic,
			DepthWeight:     1e6,
			CapacityWeight:  1,
			Epsilon:         1e-3,
		},
		Topology: TopologyConfig{
			SegmentTolerance: 15,
			InfluenceZone:    ZoneTerritory,
		},
		Hierarchy: HierarchyConfig{
			MaxHops:              50,
			SatelliteTieBreak:    TieBreakFirst,
			ExternalMatch:        MatchExact,
			InheritCapacityBelow: 0,
		},
		Logging: LoggingConfig{Level: "info"},
		Input:   InputConfig{CRS: CRSWGS84},
		Output: OutputConfig{
			GeoJSON:     "territories.geojson",
			Diagnostics: "diagnostics.json",
			Postgres:    PostgresConfig{Table: "gridmap_sites"},
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges with struct tags and cross-field rules with
// the fluent validator.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cv := validation.NewConfigValidator("config")
	cv.When(c.Territory.SeamBuffer > 0, func(cv *validation.ConfigValidator) {
		cv.LessFloat("territory.seam_buffer", c.Territory.SeamBuffer, "territory.border_tolerance", c.Territory.BorderTolerance)
	})
	cv.When(c.Territory.Priority == PriorityWeighted, func(cv *validation.ConfigValidator) {
		cv.Custom("territory.weights", func() error {
			if c.Territory.DepthWeight == 0 && c.Territory.CapacityWeight == 0 {
				return fmt.Errorf("depth_weight and capacity_weight cannot both be zero")
			}
			return nil
		})
	})
	cv.When(c.Topology.InfluenceZone == ZoneStation, func(cv *validation.ConfigValidator) {
		cv.PositiveFloat("topology.segment_tolerance", c.Topology.SegmentTolerance)
	})
	cv.When(c.Output.S3.Bucket != "", func(cv *validation.ConfigValidator) {
		cv.Required("output.s3.region", c.Output.S3.Region)
	})
	cv.When(c.Output.Postgres.DSN != "", func(cv *validation.ConfigValidator) {
		cv.Required("output.postgres.table", c.Output.Postgres.Table)
	})
	if err := cv.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ValidateInputs checks that the input section names enough files for a
// run. Core stages never need it; the CLI calls it before ingesting.
func (c *Config) ValidateInputs() error {
	cv := validation.NewConfigValidator("input")
	cv.Required("boundary", c.Input.Boundary)
	cv.Custom("sources", func() error {
		if len(c.Input.Sources) == 0 {
			return fmt.Errorf("at least one source is required")
		}
		return nil
	})
	return cv.Validate()
}
