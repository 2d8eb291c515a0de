package export

import (
	"encoding/json"
	"fmt"

	"github.com/dd0wney/cluso-gridmap/pkg/network"
	"github.com/dd0wney/cluso-gridmap/pkg/pipeline"
)

// MarshalDiagnostics renders the diagnostics report as indented JSON. Empty
// lists are written as [] rather than null.
func MarshalDiagnostics(d pipeline.Diagnostics) ([]byte, error) {
	if d.Engulfed == nil {
		d.Engulfed = []string{}
	}
	if d.Dropped == nil {
		d.Dropped = []string{}
	}
	if d.Fallback == nil {
		d.Fallback = []string{}
	}
	if d.Unassigned == nil {
		d.Unassigned = []pipeline.GapInfo{}
	}
	if d.GapPieces == nil {
		d.GapPieces = map[string]int{}
	}
	if d.Unresolved == nil {
		d.Unresolved = []string{}
	}
	if d.BrokenCycles == nil {
		d.BrokenCycles = [][]string{}
	}
	if d.Inconsistencies == nil {
		d.Inconsistencies = []*network.Error{}
	}
	if d.Repairs == nil {
		d.Repairs = []*network.Error{}
	}
	if d.Stages == nil {
		d.Stages = []pipeline.StageTiming{}
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal diagnostics: %w", err)
	}
	return data, nil
}
