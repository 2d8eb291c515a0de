package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-gridmap/pkg/config"
	"github.com/dd0wney/cluso-gridmap/pkg/network"
	"github.com/dd0wney/cluso-gridmap/pkg/pipeline"
)

const exampleConfig = "testdata/gridmap.yaml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	outDir := t.TempDir()

	stdout, err := execute(t, "run", "--config", exampleConfig, "--out", outDir, "--workers", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Roles")
	assert.Contains(t, stdout, "FULL_DISTRIBUTION")

	data, err := os.ReadFile(filepath.Join(outDir, "territories.geojson"))
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 4)

	ids := make([]string, 0, len(fc.Features))
	for _, f := range fc.Features {
		ids = append(ids, f.ID.(string))
		if f.Geometry != nil {
			// written back in degrees
			b := f.Geometry.Bound()
			assert.InDelta(t, -43.25, b.Center().Lon(), 0.1)
			assert.InDelta(t, -22.9, b.Center().Lat(), 0.1)
		}
	}
	assert.Equal(t, []string{"1001", "2002", "E1", "E2"}, ids)

	diagData, err := os.ReadFile(filepath.Join(outDir, "reports", "diagnostics.json"))
	require.NoError(t, err)
	var diag map[string]any
	require.NoError(t, json.Unmarshal(diagData, &diag))
	assert.NotEmpty(t, diag["run_id"])
	assert.Contains(t, stdout, diag["run_id"].(string))

	prom, err := os.ReadFile(filepath.Join(outDir, "gridmap.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "gridmap_")
}

func TestRunCommandSnappy(t *testing.T) {
	dir := t.TempDir()
	raw, err := os.ReadFile(exampleConfig)
	require.NoError(t, err)

	root, err := filepath.Abs(filepath.Join("..", ".."))
	require.NoError(t, err)
	cfgText := strings.ReplaceAll(string(raw), "../../../", root+"/")
	cfgText = strings.Replace(cfgText, "  simplify: 1.0", "  simplify: 1.0\n  snappy: true", 1)
	cfgPath := filepath.Join(dir, "gridmap.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgText), 0o644))

	_, err = execute(t, "run", "--config", cfgPath, "--out", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "territories.geojson.sz"))
	assert.FileExists(t, filepath.Join(dir, "reports", "diagnostics.json.sz"))
}

func TestRunCommandAbsoluteOutputs(t *testing.T) {
	raw, err := os.ReadFile(exampleConfig)
	require.NoError(t, err)
	root, err := filepath.Abs(filepath.Join("..", ".."))
	require.NoError(t, err)

	dest := t.TempDir()
	cfgText := strings.ReplaceAll(string(raw), "../../../", root+"/")
	cfgText = strings.Replace(cfgText, "geojson: territories.geojson", "geojson: "+filepath.Join(dest, "geo", "territories.geojson"), 1)
	cfgText = strings.Replace(cfgText, "textfile: gridmap.prom", "textfile: "+filepath.Join(dest, "gridmap.prom"), 1)
	cfgPath := filepath.Join(t.TempDir(), "gridmap.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgText), 0o644))

	outDir := t.TempDir()
	_, err = execute(t, "run", "--config", cfgPath, "--out", outDir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dest, "geo", "territories.geojson"))
	assert.FileExists(t, filepath.Join(dest, "gridmap.prom"))
	assert.FileExists(t, filepath.Join(outDir, "reports", "diagnostics.json"), "relative paths stay under --out")
	assert.NoDirExists(t, filepath.Join(outDir, strings.TrimPrefix(dest, string(filepath.Separator))))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, exitFailure, exitCode(errors.New("read config: no such file")))
	empty := network.NewError(network.ErrEmptyInput, "run").Ref("sites").Build()
	assert.Equal(t, exitEmptyInput, exitCode(fmt.Errorf("pipeline: %w", empty)))
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "reports", "d.json"), outputPath("out", "reports/d.json"))
	assert.Equal(t, "/srv/gridmap/t.geojson", outputPath("out", "/srv/gridmap/t.geojson"))
}

func TestRunCommandMissingConfig(t *testing.T) {
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestRunCommandRejectsNegativeWorkers(t *testing.T) {
	_, err := execute(t, "run", "--config", exampleConfig, "--workers", "-1")
	require.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	stdout, err := execute(t, "validate", "--config", exampleConfig)
	require.NoError(t, err)
	assert.Contains(t, stdout, "is valid (2 sources)")
}

func TestValidateCommandMissingInput(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "gridmap.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
input:
  boundary: boundary.geojson
  sources:
    - profile: light
      sites: sub.geojson
`), 0o644))

	_, err := execute(t, "validate", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boundary.geojson")
}

func TestValidateCommandUnknownProfile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "gridmap.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
input:
  boundary: boundary.geojson
  sources:
    - profile: cemig
      sites: sub.geojson
`), 0o644))

	_, err := execute(t, "validate", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cemig")
}

func TestProfilesCommand(t *testing.T) {
	stdout, err := execute(t, "profiles")
	require.NoError(t, err)
	assert.Contains(t, stdout, "enel")
	assert.Contains(t, stdout, "light")
	assert.Contains(t, stdout, "generic")
}

func TestResolveInputs(t *testing.T) {
	in := config.InputConfig{
		Boundary: "b.geojson",
		External: "/abs/ext.csv",
		Sources:  []config.SourceConfig{{Sites: "s.csv"}},
	}
	resolveInputs(&in, "/data")
	assert.Equal(t, filepath.Join("/data", "b.geojson"), in.Boundary)
	assert.Equal(t, "/abs/ext.csv", in.External)
	assert.Equal(t, filepath.Join("/data", "s.csv"), in.Sources[0].Sites)
	assert.Empty(t, in.Sources[0].Buses)
}

func TestLogLevelPrecedence(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, "error", logLevel("error", config.LoggingConfig{Level: "info"}))
	assert.Equal(t, "debug", logLevel("", config.LoggingConfig{Level: "info"}))

	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, "info", logLevel("", config.LoggingConfig{Level: "info"}))
}

func TestSummaryRender(t *testing.T) {
	s := summary{
		RunID: "run-7",
		Result: &pipeline.Result{
			Sites: []pipeline.SiteResult{
				{ID: "A", Role: network.RoleFullDistribution, Area: 2e6},
				{ID: "B", Role: network.RoleSatelliteDistribution, Area: 1e6},
			},
			Diagnostics: pipeline.Diagnostics{Unresolved: []string{"A"}},
		},
		Outputs: []string{"out/territories.geojson"},
	}

	text := s.Render()
	assert.Contains(t, text, "run-7")
	assert.Contains(t, text, "3.00")
	assert.Contains(t, text, "out/territories.geojson")
	for _, role := range network.Roles {
		assert.Contains(t, text, string(role))
	}
}
