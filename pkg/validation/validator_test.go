package validation

import (
	"strings"
	"testing"
)

type siteRow struct {
	ID       string  `validate:"required"`
	Capacity float64 `validate:"gte=0"`
	Role     string  `validate:"omitempty,oneof=FULL SATELLITE"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name       string
		row        siteRow
		wantErr    bool
		errorField string
	}{
		{"valid", siteRow{ID: "SE-1", Capacity: 25}, false, ""},
		{"missing id", siteRow{Capacity: 25}, true, "ID"},
		{"negative capacity", siteRow{ID: "SE-1", Capacity: -1}, true, "Capacity"},
		{"bad role", siteRow{ID: "SE-1", Role: "HUB"}, true, "Role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.row)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.errorField) {
				t.Errorf("error %q should mention %s", err, tt.errorField)
			}
		})
	}

	if err := Struct(nil); err == nil {
		t.Error("nil should be rejected")
	}
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"AT_9501", false},
		{"", true},
		{"   ", true},
		{"bad\x00id", true},
		{strings.Repeat("x", 200), true},
	}

	for _, tt := range tests {
		if err := ValidateIdentifier(tt.id); (err != nil) != tt.wantErr {
			t.Errorf("ValidateIdentifier(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
	}
}
