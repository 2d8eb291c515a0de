package logging

import "sync"

// Recorded is one entry captured by a Recorder
type Recorded struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// Recorder is an in-memory Logger used by tests to assert that recoverable
// conditions were reported.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Recorded
	fields  []Field
	level   Level
}

// NewRecorder creates a Recorder capturing every level
func NewRecorder() *Recorder {
	return &Recorder{
		mu:      &sync.Mutex{},
		entries: &[]Recorded{},
		level:   DebugLevel,
	}
}

func (r *Recorder) record(level Level, msg string, fields []Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if level < r.level {
		return
	}
	m := make(map[string]any, len(r.fields)+len(fields))
	for _, f := range r.fields {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	*r.entries = append(*r.entries, Recorded{Level: level, Message: msg, Fields: m})
}

func (r *Recorder) Debug(msg string, fields ...Field) { r.record(DebugLevel, msg, fields) }
func (r *Recorder) Info(msg string, fields ...Field)  { r.record(InfoLevel, msg, fields) }
func (r *Recorder) Warn(msg string, fields ...Field)  { r.record(WarnLevel, msg, fields) }
func (r *Recorder) Error(msg string, fields ...Field) { r.record(ErrorLevel, msg, fields) }

func (r *Recorder) With(fields ...Field) Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	merged := make([]Field, 0, len(r.fields)+len(fields))
	merged = append(merged, r.fields...)
	merged = append(merged, fields...)
	return &Recorder{mu: r.mu, entries: r.entries, fields: merged, level: r.level}
}

func (r *Recorder) SetLevel(level Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.level = level
}

func (r *Recorder) GetLevel() Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

// Entries returns a copy of everything recorded so far
func (r *Recorder) Entries() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(*r.entries))
	copy(out, *r.entries)
	return out
}

// Count returns how many entries were recorded at the given level
func (r *Recorder) Count(level Level) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}
