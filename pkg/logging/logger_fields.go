package logging

import (
	"time"
)

const stageKey = "stage"

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Stage names the pipeline stage emitting the entry
func Stage(name string) Field {
	return String(stageKey, name)
}

func Site(id string) Field {
	return String("site_id", id)
}

func Segment(id string) Field {
	return String("segment_id", id)
}

func Endpoint(id string) Field {
	return String("endpoint_id", id)
}

func Area(m2 float64) Field {
	return Float64("area_m2", m2)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

func Path(p string) Field {
	return String("path", p)
}
