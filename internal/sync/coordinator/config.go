package coordinator

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/rulegrab/rulegrab/internal/progress"
	"github.com/rulegrab/rulegrab/internal/status"
	"github.com/rulegrab/rulegrab/internal/telemetry"
)

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithTracker sets the tracker shared by every unit. Without one the
// coordinator creates a tracker with no observers.
func WithTracker(tracker *progress.Tracker) Option {
	return func(c *defaultCoordinator) {
		c.tracker = tracker
	}
}

// WithStatusPersistence enables the per-spec run report
func WithStatusPersistence(persistence status.StatusPersistence) Option {
	return func(c *defaultCoordinator) {
		c.statusPersistence = persistence
	}
}

// WithFetchMetrics sets the metrics recorded by each unit
func WithFetchMetrics(metrics *telemetry.FetchMetrics) Option {
	return func(c *defaultCoordinator) {
		c.metrics = metrics
	}
}

// WithTracerProvider sets the provider used for unit and source spans
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(c *defaultCoordinator) {
		c.tracerProvider = provider
	}
}

// WithRunID overrides the generated run id
func WithRunID(id string) Option {
	return func(c *defaultCoordinator) {
		if id != "" {
			c.runID = id
		}
	}
}

// WithMaxConcurrentUnits bounds how many units run at once. Zero or less
// runs every unit concurrently.
func WithMaxConcurrentUnits(n int) Option {
	return func(c *defaultCoordinator) {
		c.maxUnits = n
	}
}

// WithoutLock disables the output root lock
func WithoutLock() Option {
	return func(c *defaultCoordinator) {
		c.lock = false
	}
}
