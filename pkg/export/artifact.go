package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-gridmap/pkg/pipeline"
)

// Content types of the artifacts a run produces
const (
	ContentTypeGeoJSON = "application/geo+json"
	ContentTypeJSON    = "application/json"
	ContentTypeSnappy  = "application/x-snappy"
)

// SnappyExt is appended to the name of a compressed artifact.
const SnappyExt = ".sz"

// Artifact is one serialised output of a run.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Compress returns a snappy block-compressed copy of a.
func (a Artifact) Compress() Artifact {
	return Artifact{
		Name:        a.Name + SnappyExt,
		ContentType: ContentTypeSnappy,
		Data:        snappy.Encode(nil, a.Data),
	}
}

// Decompress reverses Compress. Artifacts without the snappy extension are
// returned unchanged.
func Decompress(a Artifact) (Artifact, error) {
	if filepath.Ext(a.Name) != SnappyExt {
		return a, nil
	}
	data, err := snappy.Decode(nil, a.Data)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to decompress %s: %w", a.Name, err)
	}
	name := a.Name[:len(a.Name)-len(SnappyExt)]
	return Artifact{Name: name, ContentType: contentType(name), Data: data}, nil
}

func contentType(name string) string {
	if filepath.Ext(name) == ".geojson" {
		return ContentTypeGeoJSON
	}
	return ContentTypeJSON
}

// Artifacts renders the feature collection and diagnostics for a result.
// names are the file names to use; compress applies snappy to both.
func Artifacts(res *pipeline.Result, opts FeatureOptions, featuresName, diagnosticsName string, compress bool) ([]Artifact, error) {
	features, err := MarshalFeatures(res, opts)
	if err != nil {
		return nil, err
	}
	diag, err := MarshalDiagnostics(res.Diagnostics)
	if err != nil {
		return nil, err
	}

	out := []Artifact{
		{Name: featuresName, ContentType: ContentTypeGeoJSON, Data: features},
		{Name: diagnosticsName, ContentType: ContentTypeJSON, Data: diag},
	}
	if compress {
		for i := range out {
			out[i] = out[i].Compress()
		}
	}
	return out, nil
}

// WriteFile writes a under dir, creating dir when missing, and returns the
// full path.
func WriteFile(dir string, a Artifact) (string, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	path := filepath.Join(dir, a.Name)
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
