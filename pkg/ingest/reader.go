package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Row is one record of an export: its attributes and optional geometry.
type Row struct {
	Props    map[string]any
	Geometry orb.Geometry
}

// ReadRows reads a GeoJSON feature collection (.geojson, .json) or a CSV
// file with a header row. CSV rows get a point geometry when both
// coordinate columns parse.
func ReadRows(path, lon, lat string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return readFeatures(path)
	default:
		return readCSV(path, lon, lat)
	}
}

func readFeatures(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	rows := make([]Row, 0, len(fc.Features))
	for _, f := range fc.Features {
		rows = append(rows, Row{Props: f.Properties, Geometry: f.Geometry})
	}
	return rows, nil
}

func readCSV(path, lon, lat string) ([]Row, error) {
	header, records, err := readTable(path)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(records))
	for _, record := range records {
		props := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(record) {
				props[col] = record[i]
			}
		}
		row := Row{Props: props}
		if p, ok := csvPoint(props, lon, lat); ok {
			row.Geometry = p
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// readTable returns the header and the data records of a CSV file.
func readTable(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		records = append(records, record)
	}
	return header, records, nil
}

func csvPoint(props map[string]any, lon, lat string) (orb.Point, bool) {
	if lon == "" || lat == "" {
		return orb.Point{}, false
	}
	xv, okx := lookupColumn(props, lon)
	yv, oky := lookupColumn(props, lat)
	if !okx || !oky {
		return orb.Point{}, false
	}
	x, errx := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(xv)), 64)
	y, erry := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(yv)), 64)
	if errx != nil || erry != nil {
		return orb.Point{}, false
	}
	return orb.Point{x, y}, true
}

// ReadBoundary reads the study area from a GeoJSON file holding a feature
// collection, a single feature or a bare geometry. Every polygonal part is
// kept.
func ReadBoundary(path string) (orb.MultiPolygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var geoms []orb.Geometry
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && len(fc.Features) > 0 {
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	} else if f, err := geojson.UnmarshalFeature(data); err == nil && f.Geometry != nil {
		geoms = append(geoms, f.Geometry)
	} else if g, err := geojson.UnmarshalGeometry(data); err == nil {
		geoms = append(geoms, g.Geometry())
	} else {
		return nil, fmt.Errorf("parse boundary %s: %w", path, err)
	}

	var mp orb.MultiPolygon
	for _, g := range geoms {
		switch g := g.(type) {
		case orb.Polygon:
			mp = append(mp, g)
		case orb.MultiPolygon:
			mp = append(mp, g...)
		}
	}
	return mp, nil
}

// ReadIdentifiers reads one identifier per row from the "id" column of a
// CSV file, or from its first column when there is no such header.
func ReadIdentifiers(path string) ([]string, error) {
	header, records, err := readTable(path)
	if err != nil {
		return nil, err
	}

	column := 0
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "id") {
			column = i
			break
		}
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		if column >= len(r) {
			continue
		}
		if id := strings.TrimSpace(r[column]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
