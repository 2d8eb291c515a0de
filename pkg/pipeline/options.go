package pipeline

import (
	"github.com/google/uuid"

	"github.com/dd0wney/cluso-gridmap/pkg/logging"
	"github.com/dd0wney/cluso-gridmap/pkg/metrics"
)

type options struct {
	logger  logging.Logger
	metrics *metrics.Registry
	runID   string
}

// Option customises a run.
type Option func(*options)

// WithLogger sets the logger. Runs are silent by default.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records the run into r. Without it a private registry is
// used and discarded.
func WithMetrics(r *metrics.Registry) Option {
	return func(o *options) { o.metrics = r }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNopLogger()
	}
	if o.metrics == nil {
		o.metrics = metrics.NewRegistry()
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	return o
}
