package network

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestErrorIs(t *testing.T) {
	cause := errors.New("self-intersection")
	err := GeometryError("resolve", "SE-1", cause)

	if !errors.Is(err, ErrGeometry) {
		t.Error("errors.Is(err, ErrGeometry) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
	if errors.Is(err, ErrInputInconsistency) {
		t.Error("geometry error should not match ErrInputInconsistency")
	}

	wrapped := fmt.Errorf("stage failed: %w", err)
	var target *Error
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find *Error")
	}
	if target.SiteID != "SE-1" {
		t.Errorf("SiteID = %q", target.SiteID)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "inconsistency",
			err:  InconsistencyError("classify", "A", "CIRC-9"),
			want: "classify: input inconsistency (site A) (ref CIRC-9)",
		},
		{
			name: "unresolved",
			err:  UnresolvedError("Z"),
			want: "classify: unresolved hierarchy (site Z)",
		},
		{
			name: "builder with cause",
			err:  NewError(ErrGeometry, "holes").Cause(errors.New("empty")).Build(),
			want: "holes: geometry error: empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorMarshalJSON(t *testing.T) {
	data, err := json.Marshal(InconsistencyError("topology", "", "PAC-1"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if rec["kind"] != "input inconsistency" || rec["ref"] != "PAC-1" {
		t.Errorf("record = %v", rec)
	}
	if _, ok := rec["site_id"]; ok {
		t.Error("empty site_id should be omitted")
	}
}

func TestIsRecoverable(t *testing.T) {
	if IsRecoverable(nil) {
		t.Error("nil is not an error")
	}
	if IsRecoverable(fmt.Errorf("run: %w", ErrEmptyInput)) {
		t.Error("empty input is fatal")
	}
	if !IsRecoverable(UnresolvedError("x")) {
		t.Error("unresolved hierarchy is recoverable")
	}
}

func TestRoleAndIndex(t *testing.T) {
	for _, r := range Roles {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if Role("HUB").Valid() {
		t.Error("unknown role reported valid")
	}

	idx := Index([]Site{{ID: "a"}, {ID: "b"}, {ID: "a"}})
	if len(idx) != 2 || idx["a"] != 0 || idx["b"] != 1 {
		t.Errorf("Index() = %v", idx)
	}

	eq := Equipment{DistributionCircuits: []string{"C1"}}
	if !eq.HasDistribution() || eq.HasSubstation() {
		t.Errorf("Equipment flags wrong: %+v", eq)
	}
}
