package ingest

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/dd0wney/cluso-gridmap/pkg/validation"
)

type siteRecord struct {
	ID       string  `mapstructure:"id" validate:"required"`
	Name     string  `mapstructure:"name"`
	Capacity float64 `mapstructure:"capacity" validate:"gte=0"`
}

type unitRecord struct {
	Site     string  `mapstructure:"site" validate:"required"`
	Circuit  string  `mapstructure:"circuit"`
	Capacity float64 `mapstructure:"capacity" validate:"gte=0"`
}

type circuitRecord struct {
	ID    string `mapstructure:"id" validate:"required"`
	Owner string `mapstructure:"owner" validate:"required"`
}

type segmentRecord struct {
	ID   string `mapstructure:"id" validate:"required"`
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

type busRecord struct {
	Endpoint string `mapstructure:"endpoint" validate:"required"`
	Site     string `mapstructure:"site" validate:"required"`
}

// normalizeHook trims text and accepts a decimal comma for numbers, as
// exported by spreadsheet tools in pt-BR locales.
func normalizeHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	s := strings.TrimSpace(reflect.ValueOf(data).String())
	switch to.Kind() {
	case reflect.Float32, reflect.Float64:
		if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
			s = strings.Replace(s, ",", ".", 1)
		}
	}
	return s, nil
}

// decode maps a row onto a record through the profile fields and
// validates it.
func decode[T any](fields Fields, props map[string]any) (T, error) {
	var rec T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       normalizeHook,
		WeaklyTypedInput: true,
		Result:           &rec,
	})
	if err != nil {
		return rec, err
	}
	if err := dec.Decode(fields.remap(props)); err != nil {
		return rec, fmt.Errorf("decode: %w", err)
	}
	if err := validation.Struct(rec); err != nil {
		return rec, err
	}
	return rec, nil
}
